package routing

import (
	"testing"

	"github.com/skyrebook/rebook_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessPolicy(t *testing.T) {
	policy := &BusinessPolicy{}

	t.Run("Cabin", func(t *testing.T) {
		assert.Equal(t, models.CabinBusiness, policy.Cabin())
	})

	tests := []struct {
		name     string
		flight   models.Flight
		seats    int
		expected bool
	}{
		{"Business seats alone", models.Flight{CAvail: 4, YAvail: 0}, 4, true},
		{"Economy seats count too", models.Flight{CAvail: 0, YAvail: 5}, 5, true},
		{"Combined exactly covers", models.Flight{CAvail: 2, YAvail: 3}, 5, true},
		{"Combined falls short", models.Flight{CAvail: 2, YAvail: 3}, 6, false},
		{"Zero seats always fit", models.Flight{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, policy.Admits(tt.flight, tt.seats))
		})
	}
}

func TestEconomyPolicy(t *testing.T) {
	policy := &EconomyPolicy{}

	t.Run("Cabin", func(t *testing.T) {
		assert.Equal(t, models.CabinEconomy, policy.Cabin())
	})

	tests := []struct {
		name     string
		flight   models.Flight
		seats    int
		expected bool
	}{
		{"Enough economy seats", models.Flight{YAvail: 3}, 3, true},
		{"Business seats do not count", models.Flight{CAvail: 9, YAvail: 0}, 1, false},
		{"Economy short by one", models.Flight{CAvail: 9, YAvail: 2}, 3, false},
		{"Zero seats always fit", models.Flight{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, policy.Admits(tt.flight, tt.seats))
		})
	}
}

func TestGetPolicy(t *testing.T) {
	tests := []struct {
		cabin    models.Cabin
		expected models.Cabin
	}{
		{models.CabinBusiness, models.CabinBusiness},
		{models.CabinEconomy, models.CabinEconomy},
	}

	for _, tt := range tests {
		t.Run(string(tt.cabin), func(t *testing.T) {
			policy, err := GetPolicy(tt.cabin)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, policy.Cabin())
		})
	}

	t.Run("Unknown cabin", func(t *testing.T) {
		_, err := GetPolicy("F")
		assert.ErrorIs(t, err, ErrInvalidCabin)
	})
}

func TestGetAllPolicies(t *testing.T) {
	policies := GetAllPolicies()
	assert.Len(t, policies, 2)

	cabins := make(map[models.Cabin]bool)
	for _, p := range policies {
		cabins[p.Cabin()] = true
	}
	assert.True(t, cabins[models.CabinBusiness])
	assert.True(t, cabins[models.CabinEconomy])
}
