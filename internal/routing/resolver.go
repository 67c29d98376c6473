package routing

import (
	"context"
	"fmt"

	"github.com/skyrebook/rebook_core/internal/graph"
	"github.com/skyrebook/rebook_core/internal/logger"
	"github.com/skyrebook/rebook_core/internal/models"
)

// Resolver finds feasible replacement itineraries on a flight network
type Resolver struct {
	network *graph.FlightNetwork
	rules   Rules
}

// NewResolver creates a resolver over a built network
func NewResolver(network *graph.FlightNetwork, rules Rules) *Resolver {
	return &Resolver{network: network, rules: rules}
}

// Network returns the network the resolver reads from
func (r *Resolver) Network() *graph.FlightNetwork {
	return r.network
}

// Rules returns the timing bounds in effect
func (r *Resolver) Rules() Rules {
	return r.rules
}

// FindAllValidPaths returns, for every route shape from the request origin to
// its destination with at most maxLegs hops, the itineraries that satisfy the
// capacity and timing rules. Route shapes without any itinerary are omitted,
// so an empty result means no rebooking is possible.
func (r *Resolver) FindAllValidPaths(ctx context.Context, req models.RebookingRequest, maxLegs int) ([]models.RouteOptions, error) {
	policy, err := GetPolicy(req.Cabin)
	if err != nil {
		return nil, err
	}

	seats := req.Seats
	if seats < 0 {
		seats = 0
	}

	routes, err := r.network.FindAllPaths(req.Origin, req.Destination, maxLegs)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate routes: %w", err)
	}

	results := make([]models.RouteOptions, 0, len(routes))
	for _, route := range routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		itineraries := r.resolveRoute(route, policy, seats, req)
		if len(itineraries) == 0 {
			continue
		}
		results = append(results, models.RouteOptions{Route: route, Itineraries: itineraries})
	}

	logger.Debug("Resolved itineraries",
		"recloc", req.RecordLocator,
		"origin", req.Origin,
		"destination", req.Destination,
		"routes", len(routes),
		"feasible_routes", len(results),
	)
	return results, nil
}

func (r *Resolver) resolveRoute(route []string, policy CabinPolicy, seats int, req models.RebookingRequest) []models.Itinerary {
	hops := make([][]models.CandidateLeg, 0, len(route)-1)
	for i := 0; i < len(route)-1; i++ {
		flights := r.network.Flights(route[i], route[i+1])
		legs := validLegs(flights, policy, seats, i == 0, req.OriginalDepTime, r.rules)
		if len(legs) == 0 {
			return nil
		}
		hops = append(hops, legs)
	}
	return combine(hops, r.rules)
}
