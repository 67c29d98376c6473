package routing

import (
	"errors"
	"fmt"

	"github.com/skyrebook/rebook_core/internal/models"
)

// ErrInvalidCabin is returned for a cabin code with no seat policy
var ErrInvalidCabin = errors.New("invalid cabin")

// CabinPolicy decides whether a flight can seat a party in one cabin.
// Policies only read availability; nothing is decremented.
type CabinPolicy interface {
	Cabin() models.Cabin
	Admits(f models.Flight, seats int) bool
}

// BusinessPolicy accepts a flight when business and economy seats together
// cover the party, since business passengers may be downgraded
type BusinessPolicy struct{}

func (p *BusinessPolicy) Cabin() models.Cabin {
	return models.CabinBusiness
}

func (p *BusinessPolicy) Admits(f models.Flight, seats int) bool {
	return seats <= f.CAvail+f.YAvail
}

// EconomyPolicy only counts economy seats
type EconomyPolicy struct{}

func (p *EconomyPolicy) Cabin() models.Cabin {
	return models.CabinEconomy
}

func (p *EconomyPolicy) Admits(f models.Flight, seats int) bool {
	return seats <= f.YAvail
}

// GetPolicy returns the seat policy of a cabin
func GetPolicy(cabin models.Cabin) (CabinPolicy, error) {
	switch cabin {
	case models.CabinBusiness:
		return &BusinessPolicy{}, nil
	case models.CabinEconomy:
		return &EconomyPolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCabin, cabin)
	}
}

// GetAllPolicies returns the policy of every known cabin
func GetAllPolicies() []CabinPolicy {
	return []CabinPolicy{
		&BusinessPolicy{},
		&EconomyPolicy{},
	}
}
