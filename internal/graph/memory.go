package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/skyrebook/rebook_core/internal/logger"
	"github.com/skyrebook/rebook_core/internal/models"
)

// ErrUnknownAirport is returned when a query names an airport absent from the network
var ErrUnknownAirport = errors.New("unknown airport")

// pairKey identifies the ordered airport pair of a set of parallel flights
type pairKey struct {
	origin      string
	destination string
}

// FlightNetwork holds the flight schedule as a directed multigraph.
// Airports are nodes, flights are edges, and any number of flights may
// connect the same ordered pair.
type FlightNetwork struct {
	mu        sync.RWMutex
	airports  map[string]struct{}
	neighbors map[string][]string         // origin -> destinations in insertion order
	flights   map[pairKey][]models.Flight // (origin, destination) -> parallel flights
	count     int
	version   string
}

// NewFlightNetwork creates an empty network with a fresh version id
func NewFlightNetwork() *FlightNetwork {
	return &FlightNetwork{
		airports:  make(map[string]struct{}),
		neighbors: make(map[string][]string),
		flights:   make(map[pairKey][]models.Flight),
		version:   uuid.NewString(),
	}
}

// AddFlight inserts one directed flight. Nothing is validated here: callers
// hand over parsed timestamps and non-negative seat counts.
func (n *FlightNetwork) AddFlight(origin, destination string, depTime, arrTime time.Time, cAvail, yAvail int, flightID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.airports[origin] = struct{}{}
	n.airports[destination] = struct{}{}

	key := pairKey{origin: origin, destination: destination}
	existing := n.flights[key]
	if len(existing) == 0 {
		n.neighbors[origin] = append(n.neighbors[origin], destination)
	}

	n.flights[key] = append(existing, models.Flight{
		Origin:      origin,
		Destination: destination,
		Key:         len(existing),
		FlightID:    flightID,
		DepTime:     depTime,
		ArrTime:     arrTime,
		CAvail:      cAvail,
		YAvail:      yAvail,
	})
	n.count++
}

// Flights returns a copy of all parallel flights from origin to destination
func (n *FlightNetwork) Flights(origin, destination string) []models.Flight {
	n.mu.RLock()
	defer n.mu.RUnlock()

	edges := n.flights[pairKey{origin: origin, destination: destination}]
	out := make([]models.Flight, len(edges))
	copy(out, edges)
	return out
}

// HasAirport reports whether the airport is a node of the network
func (n *FlightNetwork) HasAirport(code string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.airports[code]
	return ok
}

// Airports returns all airport codes, sorted
func (n *FlightNetwork) Airports() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	codes := make([]string, 0, len(n.airports))
	for code := range n.airports {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Neighbors returns the airports directly reachable from origin
func (n *FlightNetwork) Neighbors(origin string) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]string, len(n.neighbors[origin]))
	copy(out, n.neighbors[origin])
	return out
}

// Version identifies this network instance; it changes whenever a network is rebuilt
func (n *FlightNetwork) Version() string {
	return n.version
}

// Stats returns airport, flight and airport-pair counts
func (n *FlightNetwork) Stats() models.NetworkStats {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return models.NetworkStats{
		Airports: len(n.airports),
		Flights:  n.count,
		Routes:   len(n.flights),
		Version:  n.version,
	}
}

// String lists every flight of the network
func (n *FlightNetwork) String() string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "FlightNetwork with %d airports and %d flights:", len(n.airports), n.count)

	origins := make([]string, 0, len(n.neighbors))
	for origin := range n.neighbors {
		origins = append(origins, origin)
	}
	sort.Strings(origins)

	for _, origin := range origins {
		for _, destination := range n.neighbors[origin] {
			for _, f := range n.flights[pairKey{origin: origin, destination: destination}] {
				fmt.Fprintf(&b, "\n%s -> %s (flight %d, %s): dep_time=%s, arr_time=%s, C seats=%d, Y seats=%d",
					f.Origin, f.Destination, f.Key, f.FlightID,
					f.DepTime.Format(time.RFC3339), f.ArrTime.Format(time.RFC3339), f.CAvail, f.YAvail)
			}
		}
	}

	return b.String()
}

// Querier is the read side of a pgx pool
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadFromDB fills the network from the available_flight table
func (n *FlightNetwork) LoadFromDB(ctx context.Context, db Querier) error {
	startTime := time.Now()
	logger.Info("Loading flight network into memory...")

	rows, err := db.Query(ctx, `
		SELECT origin, destination, dep_time, arr_time, c_avail, y_avail, flight_id
		FROM available_flight
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to load flights: %w", err)
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var f models.AvailableFlight
		if err := rows.Scan(&f.Origin, &f.Destination, &f.DepTime, &f.ArrTime,
			&f.CAvail, &f.YAvail, &f.FlightID); err != nil {
			logger.Warn("failed to scan flight", "error", err)
			continue
		}
		n.AddFlight(f.Origin, f.Destination, f.DepTime.UTC(), f.ArrTime.UTC(), f.CAvail, f.YAvail, f.FlightID)
		loaded++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read flights: %w", err)
	}

	stats := n.Stats()
	logger.Info("Flight network loaded",
		"duration", time.Since(startTime),
		"flights", loaded,
		"airports", stats.Airports,
		"version", stats.Version,
	)

	return nil
}
