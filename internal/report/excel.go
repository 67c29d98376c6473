package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/skyrebook/rebook_core/internal/rebooking"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the Excel report
const (
	SheetSummary     = "Summary"
	SheetItineraries = "Itineraries"
	SheetFailures    = "Failures"
)

// WriteExcel writes a workbook with summary, itinerary and failure sheets
func WriteExcel(w io.Writer, outcome *rebooking.Outcome) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	rows := Rows(outcome)

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	// Remove the default sheet once another one exists
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	writeSummary(f, outcome, rows, headerStyle)

	if _, err := f.NewSheet(SheetItineraries); err != nil {
		return err
	}
	writeItineraries(f, rows, headerStyle)

	if _, err := f.NewSheet(SheetFailures); err != nil {
		return err
	}
	writeFailures(f, outcome, headerStyle)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, outcome *rebooking.Outcome, rows []Row, headerStyle int) {
	noOptions := 0
	for _, r := range rows {
		if r.Status == StatusNoOptions {
			noOptions++
		}
	}
	itineraries := 0
	for _, r := range rows {
		if r.Status == StatusRebooked {
			itineraries++
		}
	}

	f.SetCellValue(SheetSummary, cellAddr("A", 1), "Rebooking Report")
	f.SetCellStyle(SheetSummary, cellAddr("A", 1), cellAddr("B", 1), headerStyle)
	f.MergeCell(SheetSummary, cellAddr("A", 1), cellAddr("B", 1))

	lines := []struct {
		label string
		value any
	}{
		{"Run ID", outcome.RunID},
		{"Started", formatTime(outcome.StartedAt)},
		{"Finished", formatTime(outcome.FinishedAt)},
		{"Passengers", len(outcome.Results) + len(outcome.Failures)},
		{"Rebooked", outcome.Rebooked()},
		{"No options", noOptions},
		{"Failed", len(outcome.Failures)},
		{"Itineraries", itineraries},
	}
	for i, l := range lines {
		row := i + 3
		f.SetCellValue(SheetSummary, cellAddr("A", row), l.label)
		f.SetCellValue(SheetSummary, cellAddr("B", row), l.value)
	}
	f.SetColWidth(SheetSummary, "A", "A", 16)
	f.SetColWidth(SheetSummary, "B", "B", 40)
}

func writeItineraries(f *excelize.File, rows []Row, headerStyle int) {
	headers := []string{"Record Locator", "Original Flight", "Status", "Route", "Option", "Flights", "Departure", "Arrival", "Legs"}
	for i, h := range headers {
		f.SetCellValue(SheetItineraries, cellAddr(colName(i), 1), h)
	}
	f.SetCellStyle(SheetItineraries, "A1", cellAddr(colName(len(headers)-1), 1), headerStyle)

	line := 2
	for _, r := range rows {
		if r.Status == StatusFailed {
			continue
		}
		f.SetCellValue(SheetItineraries, cellAddr("A", line), r.RecordLocator)
		f.SetCellValue(SheetItineraries, cellAddr("B", line), r.OriginalFlightID)
		f.SetCellValue(SheetItineraries, cellAddr("C", line), r.Status)
		if r.Status == StatusRebooked {
			f.SetCellValue(SheetItineraries, cellAddr("D", line), r.Route)
			f.SetCellValue(SheetItineraries, cellAddr("E", line), r.Option)
			f.SetCellValue(SheetItineraries, cellAddr("F", line), r.FlightIDs)
			f.SetCellValue(SheetItineraries, cellAddr("G", line), formatTime(r.Departure))
			f.SetCellValue(SheetItineraries, cellAddr("H", line), formatTime(r.Arrival))
			f.SetCellValue(SheetItineraries, cellAddr("I", line), r.Legs)
		}
		line++
	}
	f.SetColWidth(SheetItineraries, "A", "I", 18)
	f.SetPanes(SheetItineraries, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeFailures(f *excelize.File, outcome *rebooking.Outcome, headerStyle int) {
	f.SetCellValue(SheetFailures, "A1", "Record Locator")
	f.SetCellValue(SheetFailures, "B1", "Original Flight")
	f.SetCellValue(SheetFailures, "C1", "Error")
	f.SetCellStyle(SheetFailures, "A1", "C1", headerStyle)

	keys := make([]string, 0, len(outcome.Failures))
	byKey := make(map[string][3]string, len(outcome.Failures))
	for k, err := range outcome.Failures {
		keys = append(keys, k.String())
		byKey[k.String()] = [3]string{k.RecordLocator, k.OriginalFlightID, err.Error()}
	}
	sort.Strings(keys)

	for i, k := range keys {
		row := i + 2
		v := byKey[k]
		f.SetCellValue(SheetFailures, cellAddr("A", row), v[0])
		f.SetCellValue(SheetFailures, cellAddr("B", row), v[1])
		f.SetCellValue(SheetFailures, cellAddr("C", row), v[2])
	}
	f.SetColWidth(SheetFailures, "A", "B", 18)
	f.SetColWidth(SheetFailures, "C", "C", 60)
}

func cellAddr(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// colName maps 0 to A, 1 to B; reports never exceed 26 columns
func colName(i int) string {
	return string(rune('A' + i))
}
