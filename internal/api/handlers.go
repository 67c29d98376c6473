package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/skyrebook/rebook_core/internal/airports"
	"github.com/skyrebook/rebook_core/internal/cache"
	"github.com/skyrebook/rebook_core/internal/db"
	"github.com/skyrebook/rebook_core/internal/feed"
	"github.com/skyrebook/rebook_core/internal/graph"
	"github.com/skyrebook/rebook_core/internal/logger"
	"github.com/skyrebook/rebook_core/internal/models"
	"github.com/skyrebook/rebook_core/internal/rebooking"
	"github.com/skyrebook/rebook_core/internal/routing"
)

// maxLegsLimit caps the hop limit a client may ask for
const maxLegsLimit = 4

// Handler serves the rebooking API over one loaded network
type Handler struct {
	resolver    *routing.Resolver
	driver      *rebooking.Driver
	airports    *airports.Directory
	cache       *cache.ItineraryCache
	cachePrefix string
	db          db.Pinger
	maxLegs     int
}

// HandlerOption customizes a Handler
type HandlerOption func(*Handler)

// WithAirportDirectory enables the nearby airports endpoint
func WithAirportDirectory(dir *airports.Directory) HandlerOption {
	return func(h *Handler) {
		h.airports = dir
	}
}

// WithItineraryCache caches itinerary searches in Redis
func WithItineraryCache(c *cache.ItineraryCache, prefix string) HandlerOption {
	return func(h *Handler) {
		h.cache = c
		h.cachePrefix = prefix
	}
}

// WithDatabase adds the schedule database to the health check
func WithDatabase(p db.Pinger) HandlerOption {
	return func(h *Handler) {
		h.db = p
	}
}

// NewHandler creates a handler; maxLegs is the default hop limit of searches
func NewHandler(resolver *routing.Resolver, driver *rebooking.Driver, maxLegs int, opts ...HandlerOption) *Handler {
	h := &Handler{resolver: resolver, driver: driver, maxLegs: maxLegs}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ItinerarySearchResponse is the response of GET /v1/itineraries
type ItinerarySearchResponse struct {
	Origin      string                `json:"origin"`
	Destination string                `json:"destination"`
	Cabin       models.Cabin          `json:"cabin"`
	Seats       int                   `json:"seats"`
	MaxLegs     int                   `json:"max_legs"`
	Routes      []models.RouteOptions `json:"routes"`
	Itineraries int                   `json:"itineraries"`
}

// Itineraries handles GET /v1/itineraries
func (h *Handler) Itineraries(c *fiber.Ctx) error {
	from := feed.NormalizeCode(c.Query("from"))
	to := feed.NormalizeCode(c.Query("to"))
	if from == "" || to == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing required parameters: from and to",
		})
	}

	cabin, err := models.ParseCabin(c.Query("cabin", "Y"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid cabin: %v", err),
		})
	}

	seats, err := strconv.Atoi(c.Query("seats", "1"))
	if err != nil || seats < 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid seats (must be a non-negative integer)",
		})
	}

	departureStr := c.Query("departure")
	if departureStr == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing required parameter: departure",
		})
	}
	departure, err := feed.ParseTimestamp(departureStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid departure: %v", err),
		})
	}

	maxLegs := h.maxLegs
	if raw := c.Query("max_legs"); raw != "" {
		maxLegs, err = strconv.Atoi(raw)
		if err != nil || maxLegs < 1 || maxLegs > maxLegsLimit {
			return c.Status(400).JSON(fiber.Map{
				"error": fmt.Sprintf("invalid max_legs (must be between 1 and %d)", maxLegsLimit),
			})
		}
	}

	req := models.RebookingRequest{
		Origin:          from,
		Destination:     to,
		Cabin:           cabin,
		Seats:           seats,
		OriginalDepTime: departure,
	}

	routes, err := h.resolve(c.Context(), req, maxLegs)
	if errors.Is(err, graph.ErrUnknownAirport) {
		return c.Status(404).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		logger.Error("itinerary search failed", "error", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	count := 0
	for _, r := range routes {
		count += len(r.Itineraries)
	}

	return c.JSON(ItinerarySearchResponse{
		Origin:      from,
		Destination: to,
		Cabin:       cabin,
		Seats:       seats,
		MaxLegs:     maxLegs,
		Routes:      routes,
		Itineraries: count,
	})
}

// resolve resolves a request through the cache. Concurrent identical requests
// wait for the first one instead of all computing the same result.
func (h *Handler) resolve(ctx context.Context, req models.RebookingRequest, maxLegs int) ([]models.RouteOptions, error) {
	if h.cache == nil {
		return h.resolver.FindAllValidPaths(ctx, req, maxLegs)
	}

	key := cache.ItineraryKey(h.cachePrefix, h.resolver.Network().Version(), req, maxLegs, h.resolver.Rules())

	if routes, ok, err := h.cache.GetItineraries(ctx, key); err == nil && ok {
		return routes, nil
	}

	acquired, err := h.cache.AcquireLock(ctx, key)
	if err != nil {
		// Continue without lock (degrade gracefully)
		logger.Warn("failed to acquire lock", "error", err)
	} else if !acquired {
		routes, ok, err := h.cache.WaitForResult(ctx, key)
		if err == nil && ok {
			return routes, nil
		}
		// If waiting failed, compute anyway
	}

	defer func() {
		if acquired {
			h.cache.ReleaseLock(ctx, key)
		}
	}()

	routes, err := h.resolver.FindAllValidPaths(ctx, req, maxLegs)
	if err != nil {
		return nil, err
	}

	if err := h.cache.SetItineraries(ctx, key, routes); err != nil {
		logger.Warn("failed to cache itineraries", "error", err)
	}
	return routes, nil
}

// NearbyAirportsResponse is the response of GET /v1/airports/:code/nearby
type NearbyAirportsResponse struct {
	Airport  models.Airport      `json:"airport"`
	RadiusKm float64             `json:"radius_km"`
	Nearby   []airports.Neighbor `json:"nearby"`
}

// NearbyAirports handles GET /v1/airports/:code/nearby
func (h *Handler) NearbyAirports(c *fiber.Ctx) error {
	if h.airports == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "airport metadata not loaded",
		})
	}

	radius, err := strconv.ParseFloat(c.Query("radius_km", strconv.FormatFloat(airports.DefaultRadiusKm, 'f', -1, 64)), 64)
	if err != nil || radius < 0 || radius > 2000 {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid radius_km (must be between 0 and 2000)",
		})
	}

	code := strings.ToUpper(c.Params("code"))
	airport, ok := h.airports.Lookup(code)
	if !ok {
		return c.Status(404).JSON(fiber.Map{
			"error": fmt.Sprintf("airport not found: %s", code),
		})
	}

	nearby, err := h.airports.Nearby(code, radius)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(NearbyAirportsResponse{
		Airport:  airport,
		RadiusKm: radius,
		Nearby:   nearby,
	})
}

// PassengerResult is one resolved passenger of a rebooking run
type PassengerResult struct {
	RecordLocator    string                `json:"record_locator"`
	OriginalFlightID string                `json:"original_flight_id"`
	Routes           []models.RouteOptions `json:"routes"`
}

// PassengerFailure is one passenger that could not be resolved
type PassengerFailure struct {
	RecordLocator    string `json:"record_locator"`
	OriginalFlightID string `json:"original_flight_id"`
	Error            string `json:"error"`
}

// RebookingResponse is the response of POST /v1/rebookings
type RebookingResponse struct {
	RunID      string             `json:"run_id"`
	DurationMs int64              `json:"duration_ms"`
	Rebooked   int                `json:"rebooked"`
	Results    []PassengerResult  `json:"results"`
	Failures   []PassengerFailure `json:"failures"`
}

// Rebookings handles POST /v1/rebookings with a JSON list of affected passengers
func (h *Handler) Rebookings(c *fiber.Ctx) error {
	var passengers []models.AffectedPassenger
	if err := c.BodyParser(&passengers); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid body: %v", err),
		})
	}
	if len(passengers) == 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "no passengers given",
		})
	}

	for i := range passengers {
		passengers[i].Origin = feed.NormalizeCode(passengers[i].Origin)
		passengers[i].Destination = feed.NormalizeCode(passengers[i].Destination)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 30*time.Second)
	defer cancel()

	outcome, err := h.driver.Run(ctx, passengers)
	if err != nil {
		logger.Error("rebooking run aborted", "error", err)
		return c.Status(503).JSON(fiber.Map{
			"error": "rebooking run aborted",
		})
	}

	return c.JSON(buildRebookingResponse(outcome))
}

func buildRebookingResponse(outcome *rebooking.Outcome) RebookingResponse {
	resp := RebookingResponse{
		RunID:      outcome.RunID,
		DurationMs: outcome.FinishedAt.Sub(outcome.StartedAt).Milliseconds(),
		Rebooked:   outcome.Rebooked(),
		Results:    make([]PassengerResult, 0, len(outcome.Results)),
		Failures:   make([]PassengerFailure, 0, len(outcome.Failures)),
	}

	for key, routes := range outcome.Results {
		resp.Results = append(resp.Results, PassengerResult{
			RecordLocator:    key.RecordLocator,
			OriginalFlightID: key.OriginalFlightID,
			Routes:           routes,
		})
	}
	for key, err := range outcome.Failures {
		resp.Failures = append(resp.Failures, PassengerFailure{
			RecordLocator:    key.RecordLocator,
			OriginalFlightID: key.OriginalFlightID,
			Error:            err.Error(),
		})
	}

	sortResults(resp.Results)
	sortFailures(resp.Failures)
	return resp
}

// NetworkStats handles GET /v1/network/stats
func (h *Handler) NetworkStats(c *fiber.Ctx) error {
	return c.JSON(h.resolver.Network().Stats())
}

// Health handles the /health endpoint
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx := c.Context()
	checks := fiber.Map{}
	healthy := true

	if h.db != nil {
		if err := db.HealthCheck(ctx, h.db); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}

	if h.cache != nil {
		if err := h.cache.HealthCheck(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	stats := h.resolver.Network().Stats()
	checks["network"] = fmt.Sprintf("%d airports, %d flights", stats.Airports, stats.Flights)

	status := "healthy"
	httpStatus := 200
	if !healthy {
		status = "unhealthy"
		httpStatus = 503
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}
