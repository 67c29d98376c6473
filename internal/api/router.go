package api

import (
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register mounts every endpoint on app. A nil gatherer leaves /metrics out.
func (h *Handler) Register(app *fiber.App, gatherer prometheus.Gatherer) {
	app.Get("/health", h.Health)
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/v1")
	v1.Get("/network/stats", h.NetworkStats)
	v1.Get("/itineraries", h.Itineraries)
	v1.Get("/airports/:code/nearby", h.NearbyAirports)
	v1.Post("/rebookings", h.Rebookings)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})
}

func sortResults(results []PassengerResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].RecordLocator != results[j].RecordLocator {
			return results[i].RecordLocator < results[j].RecordLocator
		}
		return results[i].OriginalFlightID < results[j].OriginalFlightID
	})
}

func sortFailures(failures []PassengerFailure) {
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].RecordLocator != failures[j].RecordLocator {
			return failures[i].RecordLocator < failures[j].RecordLocator
		}
		return failures[i].OriginalFlightID < failures[j].OriginalFlightID
	})
}
