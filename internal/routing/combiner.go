package routing

import (
	"sort"
	"strings"

	"github.com/skyrebook/rebook_core/internal/models"
)

// connects reports whether next can follow prev within the layover bound
func connects(prev, next models.CandidateLeg, rules Rules) bool {
	if next.DepTime.Before(prev.ArrTime) {
		return false
	}
	return next.DepTime.Sub(prev.ArrTime) <= rules.MaxLayover
}

// combine chains per-hop candidates into itineraries. Partial itineraries are
// extended one hop at a time and a prefix that cannot connect is dropped
// before the next hop is considered.
func combine(hops [][]models.CandidateLeg, rules Rules) []models.Itinerary {
	if len(hops) == 0 {
		return nil
	}

	frontier := make([][]models.CandidateLeg, 0, len(hops[0]))
	for _, leg := range hops[0] {
		frontier = append(frontier, []models.CandidateLeg{leg})
	}

	for _, candidates := range hops[1:] {
		next := make([][]models.CandidateLeg, 0, len(frontier))
		for _, partial := range frontier {
			last := partial[len(partial)-1]
			for _, leg := range candidates {
				if !connects(last, leg, rules) {
					continue
				}
				extended := make([]models.CandidateLeg, len(partial), len(partial)+1)
				copy(extended, partial)
				next = append(next, append(extended, leg))
			}
		}
		if len(next) == 0 {
			return nil
		}
		frontier = next
	}

	unique := make(map[string]models.Itinerary, len(frontier))
	for _, legs := range frontier {
		ids := make([]string, len(legs))
		for i, leg := range legs {
			ids[i] = leg.FlightID
		}
		key := strings.Join(ids, "\x1f")
		if _, ok := unique[key]; ok {
			continue
		}
		unique[key] = models.Itinerary{FlightIDs: ids, Legs: legs}
	}

	keys := make([]string, 0, len(unique))
	for k := range unique {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	itineraries := make([]models.Itinerary, 0, len(keys))
	for _, k := range keys {
		itineraries = append(itineraries, unique[k])
	}
	return itineraries
}
