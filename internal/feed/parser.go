package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/skyrebook/rebook_core/internal/logger"
	"github.com/skyrebook/rebook_core/internal/models"
)

// Paths locates the CSV files of a batch run. Airports is optional.
type Paths struct {
	AvailableFlights string
	Passengers       string
	CancelledFlights string
	Airports         string
}

// Feed holds the parsed input of a batch run
type Feed struct {
	Flights    []models.AvailableFlight
	Passengers []models.PassengerRecord
	Cancelled  []models.CancelledFlight
	Airports   []models.AirportRecord
}

// Load parses every feed file named in paths
func Load(paths Paths) (*Feed, error) {
	feed := &Feed{}

	flights, err := ParseAvailableFlights(paths.AvailableFlights)
	if err != nil {
		return nil, fmt.Errorf("failed to parse available flights (required): %w", err)
	}
	feed.Flights = flights
	logger.Info("Parsed available flights", "count", len(flights))

	passengers, err := ParsePassengers(paths.Passengers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse passengers (required): %w", err)
	}
	feed.Passengers = passengers
	logger.Info("Parsed passengers", "count", len(passengers))

	cancelled, err := ParseCancelledFlights(paths.CancelledFlights)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cancelled flights (required): %w", err)
	}
	feed.Cancelled = cancelled
	logger.Info("Parsed cancelled flights", "count", len(cancelled))

	if paths.Airports != "" {
		if airports, err := ParseAirports(paths.Airports); err == nil {
			feed.Airports = airports
			logger.Info("Parsed airports", "count", len(airports))
		} else {
			logger.Warn("failed to parse airports", "error", err)
		}
	}

	return feed, nil
}

// ParseAvailableFlights parses the available flights feed
func ParseAvailableFlights(filePath string) ([]models.AvailableFlight, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseAvailableFlightsFromReader(file)
}

func ParseAvailableFlightsFromReader(reader io.Reader) ([]models.AvailableFlight, error) {
	csvReader, colMap, err := openCSV(reader, "ORIG_CD", "DEST_CD", "DEP_DTMZ", "ARR_DTMZ", "DEP_KEY")
	if err != nil {
		return nil, err
	}

	var flights []models.AvailableFlight
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping malformed flight row", "error", err)
			continue
		}

		flightID := getField(record, colMap, "DEP_KEY")
		origin := NormalizeCode(getField(record, colMap, "ORIG_CD"))
		destination := NormalizeCode(getField(record, colMap, "DEST_CD"))
		if flightID == "" || origin == "" || destination == "" {
			logger.Warn("skipping flight with missing required fields", "flight_id", flightID)
			continue
		}

		depTime, err := ParseTimestamp(getField(record, colMap, "DEP_DTMZ"))
		if err != nil {
			logger.Warn("invalid departure time", "flight_id", flightID, "error", err)
			continue
		}
		arrTime, err := ParseTimestamp(getField(record, colMap, "ARR_DTMZ"))
		if err != nil {
			logger.Warn("invalid arrival time", "flight_id", flightID, "error", err)
			continue
		}
		cAvail, err := ParseCount(getField(record, colMap, "C_AVAIL_CNT"))
		if err != nil {
			logger.Warn("invalid business availability", "flight_id", flightID, "error", err)
			continue
		}
		yAvail, err := ParseCount(getField(record, colMap, "Y_AVAIL_CNT"))
		if err != nil {
			logger.Warn("invalid economy availability", "flight_id", flightID, "error", err)
			continue
		}

		flights = append(flights, models.AvailableFlight{
			Origin:      origin,
			Destination: destination,
			DepTime:     depTime,
			ArrTime:     arrTime,
			CAvail:      cAvail,
			YAvail:      yAvail,
			FlightID:    flightID,
		})
	}

	return flights, nil
}

// ParsePassengers parses the passenger (PNR) feed
func ParsePassengers(filePath string) ([]models.PassengerRecord, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParsePassengersFromReader(file)
}

func ParsePassengersFromReader(reader io.Reader) ([]models.PassengerRecord, error) {
	csvReader, colMap, err := openCSV(reader, "RECLOC", "OPER_OD_ORIG_CD", "OPER_OD_DEST_CD", "CABIN_CD", "PAX_CNT", "DEP_KEY")
	if err != nil {
		return nil, err
	}

	var passengers []models.PassengerRecord
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping malformed passenger row", "error", err)
			continue
		}

		recloc := getField(record, colMap, "RECLOC")
		flightID := getField(record, colMap, "DEP_KEY")
		if recloc == "" || flightID == "" {
			logger.Warn("skipping passenger with missing required fields", "recloc", recloc)
			continue
		}

		cabin, err := models.ParseCabin(getField(record, colMap, "CABIN_CD"))
		if err != nil {
			logger.Warn("invalid cabin", "recloc", recloc, "error", err)
			continue
		}
		paxCount, err := ParseCount(getField(record, colMap, "PAX_CNT"))
		if err != nil {
			logger.Warn("invalid passenger count", "recloc", recloc, "error", err)
			continue
		}

		p := models.PassengerRecord{
			RecordLocator: recloc,
			Origin:        NormalizeCode(getField(record, colMap, "OPER_OD_ORIG_CD")),
			Destination:   NormalizeCode(getField(record, colMap, "OPER_OD_DEST_CD")),
			Cabin:         cabin,
			PaxCount:      paxCount,
			FlightID:      flightID,
		}

		// departure is optional in this feed
		if raw := getField(record, colMap, "DEP_DTMZ"); raw != "" {
			depTime, err := ParseTimestamp(raw)
			if err != nil {
				logger.Warn("invalid passenger departure time", "recloc", recloc, "error", err)
			} else {
				p.DepTime = depTime
			}
		}

		passengers = append(passengers, p)
	}

	return passengers, nil
}

// ParseCancelledFlights parses the cancelled (target) flights feed
func ParseCancelledFlights(filePath string) ([]models.CancelledFlight, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseCancelledFlightsFromReader(file)
}

func ParseCancelledFlightsFromReader(reader io.Reader) ([]models.CancelledFlight, error) {
	csvReader, colMap, err := openCSV(reader, "DEP_KEY")
	if err != nil {
		return nil, err
	}

	var cancelled []models.CancelledFlight
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping malformed cancelled flight row", "error", err)
			continue
		}

		flightID := getField(record, colMap, "DEP_KEY")
		if flightID == "" {
			logger.Warn("skipping cancelled flight without DEP_KEY")
			continue
		}

		c := models.CancelledFlight{
			FlightID:    flightID,
			Origin:      NormalizeCode(getField(record, colMap, "ORIG_CD")),
			Destination: NormalizeCode(getField(record, colMap, "DEST_CD")),
		}
		if raw := getField(record, colMap, "DEP_DTMZ"); raw != "" {
			depTime, err := ParseTimestamp(raw)
			if err != nil {
				logger.Warn("invalid cancelled flight departure time", "flight_id", flightID, "error", err)
			} else {
				c.DepTime = depTime
			}
		}

		cancelled = append(cancelled, c)
	}

	return cancelled, nil
}

// ParseAirports parses the airport metadata feed
func ParseAirports(filePath string) ([]models.AirportRecord, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseAirportsFromReader(file)
}

func ParseAirportsFromReader(reader io.Reader) ([]models.AirportRecord, error) {
	csvReader, colMap, err := openCSV(reader, "iata", "lat", "lon")
	if err != nil {
		return nil, err
	}

	var airports []models.AirportRecord
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping malformed airport row", "error", err)
			continue
		}

		code := NormalizeCode(getField(record, colMap, "iata"))
		latStr := getField(record, colMap, "lat")
		lonStr := getField(record, colMap, "lon")
		if code == "" || latStr == "" || lonStr == "" {
			logger.Warn("skipping airport with missing required fields", "iata", code)
			continue
		}

		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			logger.Warn("invalid latitude", "iata", code, "error", err)
			continue
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			logger.Warn("invalid longitude", "iata", code, "error", err)
			continue
		}

		airports = append(airports, models.AirportRecord{
			Code: code,
			Name: getField(record, colMap, "name"),
			City: getField(record, colMap, "city"),
			Lat:  lat,
			Lon:  lon,
		})
	}

	return airports, nil
}

// Helper functions

// openCSV reads the header and checks the required columns are present
func openCSV(reader io.Reader, required ...string) (*csv.Reader, map[string]int, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	colMap := makeColumnMap(header)
	var missing []string
	for _, col := range required {
		if _, ok := colMap[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return csvReader, colMap, nil
}

func makeColumnMap(header []string) map[string]int {
	colMap := make(map[string]int)
	for i, col := range header {
		// strip a UTF-8 BOM left by spreadsheet exports
		colMap[strings.TrimPrefix(strings.TrimSpace(col), "\ufeff")] = i
	}
	return colMap
}

func getField(record []string, colMap map[string]int, fieldName string) string {
	if idx, ok := colMap[fieldName]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
