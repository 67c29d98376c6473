package airports

import (
	"testing"

	"github.com/skyrebook/rebook_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDirectory() *Directory {
	return NewDirectory([]models.AirportRecord{
		{Code: "AMS", Name: "Schiphol", City: "Amsterdam", Lat: 52.3086, Lon: 4.7639},
		{Code: "RTM", Name: "Rotterdam The Hague", City: "Rotterdam", Lat: 51.9569, Lon: 4.4372},
		{Code: "BRU", Name: "Brussels", City: "Brussels", Lat: 50.9014, Lon: 4.4844},
		{Code: "DUS", Name: "Dusseldorf", City: "Dusseldorf", Lat: 51.2895, Lon: 6.7668},
		{Code: "JFK", Name: "John F Kennedy", City: "New York", Lat: 40.6398, Lon: -73.7789},
		{Code: "ams", Name: "Duplicate", Lat: 0, Lon: 0},
	})
}

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{
			name:     "Zero distance",
			lat1:     52.3086,
			lon1:     4.7639,
			lat2:     52.3086,
			lon2:     4.7639,
			expected: 0,
			delta:    0.001,
		},
		{
			name:     "One degree of latitude",
			lat1:     10,
			lon1:     20,
			lat2:     11,
			lon2:     20,
			expected: 111.19,
			delta:    0.1,
		},
		{
			name:     "Amsterdam to New York",
			lat1:     52.3086,
			lon1:     4.7639,
			lat2:     40.6398,
			lon2:     -73.7789,
			expected: 5860,
			delta:    50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := haversineDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, result, tt.delta)
		})
	}
}

func TestLookup(t *testing.T) {
	d := testDirectory()
	assert.Equal(t, 5, d.Len())

	a, ok := d.Lookup("ams")
	require.True(t, ok)
	assert.Equal(t, "Schiphol", a.Name, "first record wins")

	_, ok = d.Lookup("XXX")
	assert.False(t, ok)
}

func TestNearby(t *testing.T) {
	d := testDirectory()

	neighbors, err := d.Nearby("AMS", DefaultRadiusKm)
	require.NoError(t, err)

	codes := []string{}
	for _, n := range neighbors {
		codes = append(codes, n.Airport.Code)
		assert.LessOrEqual(t, n.DistanceKm, DefaultRadiusKm)
	}
	assert.Equal(t, []string{"RTM", "BRU", "DUS"}, codes)

	t.Run("Sorted by distance", func(t *testing.T) {
		for i := 1; i < len(neighbors); i++ {
			assert.LessOrEqual(t, neighbors[i-1].DistanceKm, neighbors[i].DistanceKm)
		}
	})

	t.Run("Small radius", func(t *testing.T) {
		assert.Equal(t, []string{"RTM"}, d.NearbyCodes("AMS", 60))
	})

	t.Run("Unknown airport", func(t *testing.T) {
		_, err := d.Nearby("XXX", DefaultRadiusKm)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, d.NearbyCodes("XXX", DefaultRadiusKm))
	})

	t.Run("Isolated airport", func(t *testing.T) {
		neighbors, err := d.Nearby("JFK", DefaultRadiusKm)
		require.NoError(t, err)
		assert.Empty(t, neighbors)
	})
}
