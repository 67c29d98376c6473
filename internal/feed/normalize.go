package feed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/skyrebook/rebook_core/internal/logger"
	"github.com/skyrebook/rebook_core/internal/models"
)

// timestamp layouts accepted by the feeds, zoned first
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses a feed timestamp. Values without a zone are UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp format: %s", value)
}

// maxCount bounds seat and passenger counts so their absolute value fits any int
const maxCount = math.MaxInt32

// ParseCount parses a seat or passenger count and returns its absolute value.
// Empty values count as zero; integral floats such as "3.0" are accepted.
func ParseCount(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		if n < -maxCount || n > maxCount {
			return 0, fmt.Errorf("count out of range: %s", value)
		}
		return abs(int(n)), nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid count: %s", value)
	}
	if f < -maxCount || f > maxCount {
		return 0, fmt.Errorf("count out of range: %s", value)
	}
	return abs(int(f)), nil
}

// NormalizeCode trims and uppercases an airport code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ValidateFlights drops flights the network cannot use: missing ids or
// airports, an arrival not after the departure, or a repeated flight id
func ValidateFlights(flights []models.AvailableFlight) []models.AvailableFlight {
	cleaned := make([]models.AvailableFlight, 0, len(flights))
	seen := make(map[string]bool, len(flights))

	for _, f := range flights {
		if f.FlightID == "" || f.Origin == "" || f.Destination == "" {
			logger.Warn("flight with missing fields, skipping", "flight_id", f.FlightID)
			continue
		}
		if !f.DepTime.Before(f.ArrTime) {
			logger.Warn("flight arrives before it departs, skipping",
				"flight_id", f.FlightID,
				"dep_time", f.DepTime,
				"arr_time", f.ArrTime,
			)
			continue
		}
		if seen[f.FlightID] {
			logger.Warn("duplicate flight id, skipping", "flight_id", f.FlightID)
			continue
		}
		seen[f.FlightID] = true
		cleaned = append(cleaned, f)
	}

	if len(cleaned) < len(flights) {
		logger.Info("Cleaned flights", "removed", len(flights)-len(cleaned))
	}
	return cleaned
}

// AffectedPassengers joins passengers with the cancelled flights on the flight
// key. The original departure comes from the passenger row when present and
// from the cancelled flight otherwise; it stays zero when neither has one.
func AffectedPassengers(passengers []models.PassengerRecord, cancelled []models.CancelledFlight) []models.AffectedPassenger {
	byID := make(map[string]models.CancelledFlight, len(cancelled))
	for _, c := range cancelled {
		if _, ok := byID[c.FlightID]; !ok {
			byID[c.FlightID] = c
		}
	}

	affected := make([]models.AffectedPassenger, 0)
	for _, p := range passengers {
		c, ok := byID[p.FlightID]
		if !ok {
			continue
		}

		depTime := p.DepTime
		if depTime.IsZero() {
			depTime = c.DepTime
		}

		affected = append(affected, models.AffectedPassenger{
			RecordLocator:    p.RecordLocator,
			Origin:           p.Origin,
			Destination:      p.Destination,
			Cabin:            p.Cabin,
			PaxCount:         p.PaxCount,
			OriginalFlightID: p.FlightID,
			OriginalDepTime:  depTime,
		})
	}

	logger.Info("Matched affected passengers",
		"passengers", len(passengers),
		"cancelled_flights", len(byID),
		"affected", len(affected),
	)
	return affected
}
