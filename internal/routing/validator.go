package routing

import (
	"time"

	"github.com/skyrebook/rebook_core/internal/models"
)

// Rules holds the timing bounds applied while resolving itineraries
type Rules struct {
	MaxDepartureDrift time.Duration // first leg may leave at most this long after the original departure
	MaxLayover        time.Duration // longest allowed wait between two legs
}

// DefaultRules returns the operational bounds: 72h drift and 23h layover
func DefaultRules() Rules {
	return Rules{
		MaxDepartureDrift: 72 * time.Hour,
		MaxLayover:        23 * time.Hour,
	}
}

// validLegs returns the flights of one hop that can seat the party.
// On the first hop a flight is also dropped when it departs more than
// MaxDepartureDrift after originalDep; earlier departures always pass.
func validLegs(flights []models.Flight, policy CabinPolicy, seats int, firstHop bool, originalDep time.Time, rules Rules) []models.CandidateLeg {
	legs := make([]models.CandidateLeg, 0, len(flights))
	for _, f := range flights {
		if firstHop && f.DepTime.Sub(originalDep) > rules.MaxDepartureDrift {
			continue
		}
		if !policy.Admits(f, seats) {
			continue
		}
		legs = append(legs, models.CandidateLeg{
			Source:      f.Origin,
			Destination: f.Destination,
			FlightID:    f.FlightID,
			Key:         f.Key,
			DepTime:     f.DepTime,
			ArrTime:     f.ArrTime,
			CAvail:      f.CAvail,
			YAvail:      f.YAvail,
		})
	}
	return legs
}
