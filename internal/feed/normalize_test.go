package feed

import (
	"testing"
	"time"

	"github.com/skyrebook/rebook_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 10, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		value    string
		expected time.Time
		hasError bool
	}{
		{name: "RFC3339 UTC", value: "2024-05-10T10:30:00Z", expected: want},
		{name: "RFC3339 with offset", value: "2024-05-10T12:30:00+02:00", expected: want},
		{name: "Space separated with zone", value: "2024-05-10 10:30:00Z", expected: want},
		{name: "Space separated seconds", value: "2024-05-10 10:30:00", expected: want},
		{name: "Space separated minutes", value: "2024-05-10 10:30", expected: want},
		{name: "T separated without zone", value: "2024-05-10T10:30:00", expected: want},
		{name: "Fractional seconds", value: "2024-05-10 10:30:00.000", expected: want},
		{name: "Date only", value: "2024-05-10", expected: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
		{name: "Surrounding spaces", value: "  2024-05-10 10:30 ", expected: want},
		{name: "Empty", value: "", hasError: true},
		{name: "Garbage", value: "10/05/2024 10h30", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseTimestamp(tt.value)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(result), "got %s", result)
			assert.Equal(t, time.UTC, result.Location())
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		value    string
		expected int
		hasError bool
	}{
		{value: "7", expected: 7},
		{value: "-7", expected: 7},
		{value: "", expected: 0},
		{value: "3.0", expected: 3},
		{value: "-2.0", expected: 2},
		{value: "2.5", hasError: true},
		{value: "many", hasError: true},
		{value: "2147483647", expected: 2147483647},
		{value: "-2147483647", expected: 2147483647},
		{value: "2147483648", hasError: true},
		{value: "-9223372036854775808", hasError: true},
		{value: "99999999999999999999", hasError: true},
		{value: "1e30", hasError: true},
		{value: "-1e30", hasError: true},
		{value: "NaN", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			result, err := ParseCount(tt.value)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
			assert.GreaterOrEqual(t, result, 0)
		})
	}
}

func TestValidateFlights(t *testing.T) {
	dep := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	arr := dep.Add(2 * time.Hour)

	tests := []struct {
		name     string
		flights  []models.AvailableFlight
		expected []string
	}{
		{
			name: "All valid",
			flights: []models.AvailableFlight{
				{FlightID: "F1", Origin: "A", Destination: "B", DepTime: dep, ArrTime: arr},
				{FlightID: "F2", Origin: "B", Destination: "C", DepTime: dep, ArrTime: arr},
			},
			expected: []string{"F1", "F2"},
		},
		{
			name: "Arrival before departure",
			flights: []models.AvailableFlight{
				{FlightID: "F1", Origin: "A", Destination: "B", DepTime: arr, ArrTime: dep},
				{FlightID: "F2", Origin: "A", Destination: "B", DepTime: dep, ArrTime: dep},
			},
			expected: []string{},
		},
		{
			name: "Missing fields",
			flights: []models.AvailableFlight{
				{FlightID: "", Origin: "A", Destination: "B", DepTime: dep, ArrTime: arr},
				{FlightID: "F2", Origin: "A", Destination: "", DepTime: dep, ArrTime: arr},
			},
			expected: []string{},
		},
		{
			name: "Duplicate id keeps first",
			flights: []models.AvailableFlight{
				{FlightID: "F1", Origin: "A", Destination: "B", DepTime: dep, ArrTime: arr},
				{FlightID: "F1", Origin: "C", Destination: "D", DepTime: dep, ArrTime: arr},
			},
			expected: []string{"F1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateFlights(tt.flights)
			ids := []string{}
			for _, f := range result {
				ids = append(ids, f.FlightID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestAffectedPassengers(t *testing.T) {
	cancelledDep := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	ownDep := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	passengers := []models.PassengerRecord{
		{RecordLocator: "R1", Origin: "A", Destination: "C", Cabin: models.CabinEconomy, PaxCount: 2, FlightID: "X1"},
		{RecordLocator: "R2", Origin: "A", Destination: "C", Cabin: models.CabinBusiness, PaxCount: 1, FlightID: "X1", DepTime: ownDep},
		{RecordLocator: "R3", Origin: "A", Destination: "C", Cabin: models.CabinEconomy, PaxCount: 1, FlightID: "OK1"},
		{RecordLocator: "R4", Origin: "B", Destination: "C", Cabin: models.CabinEconomy, PaxCount: 3, FlightID: "X2"},
	}
	cancelled := []models.CancelledFlight{
		{FlightID: "X1", DepTime: cancelledDep},
		{FlightID: "X1", DepTime: cancelledDep.Add(time.Hour)},
		{FlightID: "X2"},
	}

	affected := AffectedPassengers(passengers, cancelled)
	require.Len(t, affected, 3)

	assert.Equal(t, models.ResultKey{RecordLocator: "R1", OriginalFlightID: "X1"}, affected[0].Key())
	assert.Equal(t, cancelledDep, affected[0].OriginalDepTime)
	assert.Equal(t, 2, affected[0].PaxCount)

	assert.Equal(t, ownDep, affected[1].OriginalDepTime, "passenger departure wins")

	assert.Equal(t, "R4", affected[2].RecordLocator)
	assert.True(t, affected[2].OriginalDepTime.IsZero())
}
