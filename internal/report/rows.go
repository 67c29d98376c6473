package report

import (
	"sort"
	"strings"
	"time"

	"github.com/skyrebook/rebook_core/internal/models"
	"github.com/skyrebook/rebook_core/internal/rebooking"
)

// Row statuses
const (
	StatusRebooked  = "rebooked"
	StatusNoOptions = "no_options"
	StatusFailed    = "failed"
)

// Row is one line of a rebooking report: one itinerary of one passenger, or
// a single line for a passenger without itineraries
type Row struct {
	RecordLocator    string
	OriginalFlightID string
	Status           string
	Route            string
	Option           int
	FlightIDs        string
	Departure        time.Time
	Arrival          time.Time
	Legs             int
	Error            string
}

var header = []string{
	"RECLOC", "ORIGINAL_DEP_KEY", "STATUS", "ROUTE", "OPTION",
	"FLIGHT_IDS", "DEP_DTMZ", "ARR_DTMZ", "LEGS", "ERROR",
}

// Rows flattens an outcome in a stable order: by record locator, then
// original flight, then route and itinerary order
func Rows(outcome *rebooking.Outcome) []Row {
	keys := make([]models.ResultKey, 0, len(outcome.Results)+len(outcome.Failures))
	for k := range outcome.Results {
		keys = append(keys, k)
	}
	for k := range outcome.Failures {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].RecordLocator != keys[j].RecordLocator {
			return keys[i].RecordLocator < keys[j].RecordLocator
		}
		return keys[i].OriginalFlightID < keys[j].OriginalFlightID
	})

	var rows []Row
	for _, k := range keys {
		base := Row{RecordLocator: k.RecordLocator, OriginalFlightID: k.OriginalFlightID}

		if err, failed := outcome.Failures[k]; failed {
			base.Status = StatusFailed
			base.Error = err.Error()
			rows = append(rows, base)
			continue
		}

		option := 0
		for _, route := range outcome.Results[k] {
			for _, it := range route.Itineraries {
				option++
				row := base
				row.Status = StatusRebooked
				row.Route = strings.Join(route.Route, "-")
				row.Option = option
				row.FlightIDs = strings.Join(it.FlightIDs, "|")
				row.Legs = len(it.Legs)
				if len(it.Legs) > 0 {
					row.Departure = it.Legs[0].DepTime
					row.Arrival = it.Legs[len(it.Legs)-1].ArrTime
				}
				rows = append(rows, row)
			}
		}
		if option == 0 {
			base.Status = StatusNoOptions
			rows = append(rows, base)
		}
	}
	return rows
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
