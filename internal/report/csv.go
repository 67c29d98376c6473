package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/skyrebook/rebook_core/internal/rebooking"
)

// WriteCSV writes one line per row of the outcome
func WriteCSV(w io.Writer, outcome *rebooking.Outcome) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range Rows(outcome) {
		option, legs := "", ""
		if r.Option > 0 {
			option = strconv.Itoa(r.Option)
			legs = strconv.Itoa(r.Legs)
		}
		record := []string{
			r.RecordLocator,
			r.OriginalFlightID,
			r.Status,
			r.Route,
			option,
			r.FlightIDs,
			formatTime(r.Departure),
			formatTime(r.Arrival),
			legs,
			r.Error,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
