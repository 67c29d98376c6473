package rebooking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skyrebook/rebook_core/internal/airports"
	"github.com/skyrebook/rebook_core/internal/cache"
	"github.com/skyrebook/rebook_core/internal/graph"
	"github.com/skyrebook/rebook_core/internal/logger"
	"github.com/skyrebook/rebook_core/internal/metrics"
	"github.com/skyrebook/rebook_core/internal/models"
	"github.com/skyrebook/rebook_core/internal/routing"
)

// ErrMissingDeparture is recorded for a passenger whose original departure is unknown.
// The drift rule needs it, so such a passenger is never resolved with a guessed time.
var ErrMissingDeparture = errors.New("original departure time missing")

// Cache stores resolved itineraries between runs
type Cache interface {
	GetItineraries(ctx context.Context, key string) ([]models.RouteOptions, bool, error)
	SetItineraries(ctx context.Context, key string, routes []models.RouteOptions) error
}

// Options tunes a driver
type Options struct {
	MaxLegs        int
	Workers        int
	NearbyRadiusKm float64 // 0 disables nearby airport widening
	CachePrefix    string
}

// Outcome is the result of one rebooking run.
// Every affected passenger appears in exactly one of Results and Failures.
type Outcome struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    map[models.ResultKey][]models.RouteOptions
	Failures   map[models.ResultKey]error
}

// Rebooked counts passengers with at least one itinerary
func (o *Outcome) Rebooked() int {
	n := 0
	for _, routes := range o.Results {
		if len(routes) > 0 {
			n++
		}
	}
	return n
}

// Driver resolves replacement itineraries for affected passengers
type Driver struct {
	resolver *routing.Resolver
	opts     Options
	cache    Cache
	airports *airports.Directory
	metrics  *metrics.Metrics
}

// DriverOption customizes a Driver
type DriverOption func(*Driver)

// WithCache consults c before resolving a request
func WithCache(c Cache) DriverOption {
	return func(d *Driver) {
		d.cache = c
	}
}

// WithAirports enables nearby airport widening when Options.NearbyRadiusKm > 0
func WithAirports(dir *airports.Directory) DriverOption {
	return func(d *Driver) {
		d.airports = dir
	}
}

// WithMetrics records per passenger metrics
func WithMetrics(m *metrics.Metrics) DriverOption {
	return func(d *Driver) {
		d.metrics = m
	}
}

// NewDriver creates a driver over a resolver
func NewDriver(resolver *routing.Resolver, opts Options, options ...DriverOption) *Driver {
	if opts.MaxLegs < 1 {
		opts.MaxLegs = 2
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	d := &Driver{resolver: resolver, opts: opts}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// RequestFor builds the rebooking request of an affected passenger
func RequestFor(p models.AffectedPassenger) (models.RebookingRequest, error) {
	if p.OriginalDepTime.IsZero() {
		return models.RebookingRequest{}, fmt.Errorf("%w: %s", ErrMissingDeparture, p.Key())
	}

	seats := p.PaxCount
	if seats < 0 {
		seats = -seats
	}

	return models.RebookingRequest{
		RecordLocator:    p.RecordLocator,
		Origin:           p.Origin,
		Destination:      p.Destination,
		Cabin:            p.Cabin,
		Seats:            seats,
		OriginalDepTime:  p.OriginalDepTime,
		OriginalFlightID: p.OriginalFlightID,
	}, nil
}

// Run resolves every passenger with a bounded worker pool. On cancellation it
// returns the partial outcome together with the context error.
func (d *Driver) Run(ctx context.Context, passengers []models.AffectedPassenger) (*Outcome, error) {
	outcome := &Outcome{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Results:   make(map[models.ResultKey][]models.RouteOptions, len(passengers)),
		Failures:  make(map[models.ResultKey]error),
	}
	log := logger.WithRun(outcome.RunID)
	log.Info("Starting rebooking run",
		"passengers", len(passengers),
		"workers", d.opts.Workers,
		"max_legs", d.opts.MaxLegs,
		"network_version", d.resolver.Network().Version(),
	)
	if d.metrics != nil {
		d.metrics.RunsTotal.Inc()
	}

	type job struct {
		index     int
		passenger models.AffectedPassenger
	}

	jobs := make(chan job)
	var mu sync.Mutex
	var wg sync.WaitGroup
	// input position of the row currently stored under each key
	stored := make(map[models.ResultKey]int, len(passengers))

	for i := 0; i < d.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				routes, err := d.process(ctx, j.passenger, log)

				mu.Lock()
				key := j.passenger.Key()
				if prev, ok := stored[key]; ok {
					log.Warn("duplicate passenger key, keeping last row", "key", key.String())
					if prev > j.index {
						mu.Unlock()
						continue
					}
				}
				stored[key] = j.index
				delete(outcome.Results, key)
				delete(outcome.Failures, key)
				if err != nil {
					outcome.Failures[key] = err
				} else {
					outcome.Results[key] = routes
				}
				mu.Unlock()
			}
		}()
	}

	var runErr error
feed:
	for i, p := range passengers {
		if runErr = ctx.Err(); runErr != nil {
			break
		}
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		case jobs <- job{index: i, passenger: p}:
		}
	}
	close(jobs)
	wg.Wait()

	outcome.FinishedAt = time.Now().UTC()
	log.Info("Rebooking run finished",
		"duration", outcome.FinishedAt.Sub(outcome.StartedAt),
		"results", len(outcome.Results),
		"rebooked", outcome.Rebooked(),
		"failures", len(outcome.Failures),
	)
	return outcome, runErr
}

func (d *Driver) process(ctx context.Context, p models.AffectedPassenger, log *slog.Logger) ([]models.RouteOptions, error) {
	start := time.Now()

	req, err := RequestFor(p)
	if err == nil {
		var routes []models.RouteOptions
		routes, err = d.Resolve(ctx, req)
		if err == nil {
			d.observe(req.Cabin, start, routes)
			return routes, nil
		}
	}

	log.Warn("passenger not resolved", "key", p.Key().String(), "error", err)
	if d.metrics != nil {
		d.metrics.PassengersProcessed.WithLabelValues("failed").Inc()
	}
	return nil, err
}

func (d *Driver) observe(cabin models.Cabin, start time.Time, routes []models.RouteOptions) {
	if d.metrics == nil {
		return
	}
	count := 0
	for _, r := range routes {
		count += len(r.Itineraries)
	}

	status := "rebooked"
	if count == 0 {
		status = "no_options"
	}
	d.metrics.PassengersProcessed.WithLabelValues(status).Inc()
	d.metrics.ResolveDuration.WithLabelValues(string(cabin)).Observe(time.Since(start).Seconds())
	d.metrics.ItinerariesFound.Observe(float64(count))
}

// Resolve returns the itineraries of one request. With nearby widening on,
// route shapes from airports near the origin and to airports near the
// destination follow those of the requested pair.
func (d *Driver) Resolve(ctx context.Context, req models.RebookingRequest) ([]models.RouteOptions, error) {
	routes, err := d.resolveCached(ctx, req)
	if err != nil {
		return nil, err
	}

	if d.opts.NearbyRadiusKm <= 0 || d.airports == nil {
		return routes, nil
	}

	origins := append([]string{req.Origin}, d.airports.NearbyCodes(req.Origin, d.opts.NearbyRadiusKm)...)
	destinations := append([]string{req.Destination}, d.airports.NearbyCodes(req.Destination, d.opts.NearbyRadiusKm)...)

	for _, origin := range origins {
		for _, destination := range destinations {
			if origin == req.Origin && destination == req.Destination {
				continue
			}
			if origin == destination {
				continue
			}

			alt := req
			alt.Origin = origin
			alt.Destination = destination

			extra, err := d.resolveCached(ctx, alt)
			if errors.Is(err, graph.ErrUnknownAirport) {
				continue // nearby airport without flights
			}
			if err != nil {
				return nil, err
			}
			routes = append(routes, extra...)
		}
	}

	return routes, nil
}

func (d *Driver) resolveCached(ctx context.Context, req models.RebookingRequest) ([]models.RouteOptions, error) {
	if d.cache == nil {
		return d.resolver.FindAllValidPaths(ctx, req, d.opts.MaxLegs)
	}

	key := cache.ItineraryKey(d.opts.CachePrefix, d.resolver.Network().Version(), req, d.opts.MaxLegs, d.resolver.Rules())

	routes, ok, err := d.cache.GetItineraries(ctx, key)
	switch {
	case err != nil:
		logger.Warn("itinerary cache read failed", "error", err)
		d.cacheLookup("error")
	case ok:
		d.cacheLookup("hit")
		return routes, nil
	default:
		d.cacheLookup("miss")
	}

	routes, err = d.resolver.FindAllValidPaths(ctx, req, d.opts.MaxLegs)
	if err != nil {
		return nil, err
	}

	if err := d.cache.SetItineraries(ctx, key, routes); err != nil {
		logger.Warn("failed to cache itineraries", "error", err)
	}
	return routes, nil
}

func (d *Driver) cacheLookup(result string) {
	if d.metrics != nil {
		d.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
