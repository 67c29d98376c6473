package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/skyrebook/rebook_core/internal/airports"
	"github.com/skyrebook/rebook_core/internal/api"
	"github.com/skyrebook/rebook_core/internal/cache"
	"github.com/skyrebook/rebook_core/internal/config"
	"github.com/skyrebook/rebook_core/internal/db"
	"github.com/skyrebook/rebook_core/internal/feed"
	"github.com/skyrebook/rebook_core/internal/graph"
	"github.com/skyrebook/rebook_core/internal/logger"
	"github.com/skyrebook/rebook_core/internal/metrics"
	"github.com/skyrebook/rebook_core/internal/middleware"
	"github.com/skyrebook/rebook_core/internal/rebooking"
	"github.com/skyrebook/rebook_core/internal/routing"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML")
	flag.Parse()

	var opts []config.LoaderOption
	if *configPath != "" {
		opts = append(opts, config.WithConfigFile(*configPath))
	}
	cfg, err := config.NewLoader(opts...).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	logger.Info("Starting rebooking API server...")

	ctx := context.Background()
	var handlerOpts []api.HandlerOption

	// Load the flight network into memory
	network := graph.NewFlightNetwork()
	if cfg.Input.Source == "postgres" {
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		defer pool.Close()
		logger.Info("Database connection established")

		if err := network.LoadFromDB(ctx, pool); err != nil {
			logger.Fatal("Failed to load flight network", "error", err)
		}
		handlerOpts = append(handlerOpts, api.WithDatabase(pool))
	} else {
		flights, err := feed.ParseAvailableFlights(cfg.Input.AvailableFlights)
		if err != nil {
			logger.Fatal("Failed to parse available flights", "error", err)
		}
		network = graph.BuildNetwork(feed.ValidateFlights(flights))
	}
	logger.Info("Flight network loaded into memory", "stats", network.Stats())

	var dir *airports.Directory
	if cfg.Input.Airports != "" {
		records, err := feed.ParseAirports(cfg.Input.Airports)
		if err != nil {
			logger.Warn("Failed to parse airports, nearby lookups disabled", "error", err)
		} else {
			dir = airports.NewDirectory(records)
			handlerOpts = append(handlerOpts, api.WithAirportDirectory(dir))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, cfg.Metrics.Namespace)
	stats := network.Stats()
	m.ObserveNetwork(stats.Airports, stats.Flights)

	driverOpts := []rebooking.DriverOption{rebooking.WithMetrics(m)}
	if dir != nil {
		driverOpts = append(driverOpts, rebooking.WithAirports(dir))
	}

	// Redis is optional: without it the API computes every search
	var rdb redis.Cmdable
	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, caching and rate limiting disabled", "error", err)
		} else {
			defer client.Close()
			logger.Info("Redis connection established")
			rdb = client
			itineraryCache := cache.NewItineraryCache(client, cfg.Redis)
			handlerOpts = append(handlerOpts, api.WithItineraryCache(itineraryCache, cfg.Redis.KeyPrefix))
			driverOpts = append(driverOpts, rebooking.WithCache(itineraryCache))
		}
	}

	resolver := routing.NewResolver(network, routing.Rules{
		MaxDepartureDrift: cfg.Rebooking.MaxDepartureDrift,
		MaxLayover:        cfg.Rebooking.MaxLayover,
	})
	driver := rebooking.NewDriver(resolver, rebooking.Options{
		MaxLegs:        cfg.Rebooking.MaxLegs,
		Workers:        cfg.Rebooking.Workers,
		NearbyRadiusKm: cfg.Rebooking.NearbyRadiusKm,
		CachePrefix:    cfg.Redis.KeyPrefix,
	}, driverOpts...)
	handler := api.NewHandler(resolver, driver, cfg.Rebooking.MaxLegs, handlerOpts...)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Rebooking API",
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	if cfg.Metrics.Enabled {
		app.Use(middleware.MetricsMiddleware(m))
	}
	app.Use(middleware.RateLimitMiddleware(rdb, cfg.Redis.KeyPrefix, cfg.HTTP.RateLimitPerSec))

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = reg
	}
	handler.Register(app, gatherer)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logger.Error("Error during shutdown", "error", err)
		}
	}()

	logger.Info("Server listening",
		"addr", addr,
		"itineraries", fmt.Sprintf("http://localhost%s/v1/itineraries?from=AMS&to=JFK&departure=2024-05-10T08:00:00Z", addr),
		"health", fmt.Sprintf("http://localhost%s/health", addr),
	)

	if err := app.Listen(addr); err != nil {
		logger.Fatal("Failed to start server", "error", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	logger.Error("Request failed", "path", c.Path(), "error", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
