package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/skyrebook/rebook_core/internal/airports"
	"github.com/skyrebook/rebook_core/internal/cache"
	"github.com/skyrebook/rebook_core/internal/config"
	"github.com/skyrebook/rebook_core/internal/db"
	"github.com/skyrebook/rebook_core/internal/events"
	"github.com/skyrebook/rebook_core/internal/feed"
	"github.com/skyrebook/rebook_core/internal/graph"
	"github.com/skyrebook/rebook_core/internal/logger"
	"github.com/skyrebook/rebook_core/internal/metrics"
	"github.com/skyrebook/rebook_core/internal/rebooking"
	"github.com/skyrebook/rebook_core/internal/report"
	"github.com/skyrebook/rebook_core/internal/routing"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML (default: search config.yaml, config/config.yaml)")
	output := flag.String("output", "", "Report file (overrides report.output; .xlsx selects the Excel format)")
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
	if *output != "" {
		cfg.Report.Output = *output
		if filepath.Ext(*output) == ".xlsx" {
			cfg.Report.Format = "xlsx"
		}
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal("Rebooking run failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	startTime := time.Now()

	network, inputs, err := loadInputs(ctx, cfg)
	if err != nil {
		return err
	}

	affected := feed.AffectedPassengers(inputs.Passengers, inputs.Cancelled)
	logger.Info("Affected passengers", "count", len(affected))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer, cfg.Metrics.Namespace)
		stats := network.Stats()
		m.ObserveNetwork(stats.Airports, stats.Flights)
	}

	rules := routing.Rules{
		MaxDepartureDrift: cfg.Rebooking.MaxDepartureDrift,
		MaxLayover:        cfg.Rebooking.MaxLayover,
	}
	resolver := routing.NewResolver(network, rules)

	var driverOpts []rebooking.DriverOption
	if m != nil {
		driverOpts = append(driverOpts, rebooking.WithMetrics(m))
	}
	if len(inputs.Airports) > 0 {
		driverOpts = append(driverOpts, rebooking.WithAirports(airports.NewDirectory(inputs.Airports)))
	}
	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, running without itinerary cache", "error", err)
		} else {
			defer client.Close()
			driverOpts = append(driverOpts, rebooking.WithCache(cache.NewItineraryCache(client, cfg.Redis)))
		}
	}

	driver := rebooking.NewDriver(resolver, rebooking.Options{
		MaxLegs:        cfg.Rebooking.MaxLegs,
		Workers:        cfg.Rebooking.Workers,
		NearbyRadiusKm: cfg.Rebooking.NearbyRadiusKm,
		CachePrefix:    cfg.Redis.KeyPrefix,
	}, driverOpts...)

	outcome, err := driver.Run(ctx, affected)
	if err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}

	if err := writeReport(cfg.Report, outcome); err != nil {
		return err
	}

	if cfg.Kafka.Enabled {
		producer := events.NewProducer(cfg.Kafka)
		defer producer.Close()

		published, err := producer.PublishOutcome(ctx, outcome)
		if err != nil {
			// The report is already written; events are best effort
			logger.Error("Failed to publish rebooking events", "error", err)
		} else {
			logger.Info("Published rebooking events", "count", published, "topic", cfg.Kafka.Topic)
		}
	}

	logger.Info("Rebooking run completed",
		"run_id", outcome.RunID,
		"passengers", len(affected),
		"rebooked", outcome.Rebooked(),
		"failed", len(outcome.Failures),
		"report", cfg.Report.Output,
		"duration", time.Since(startTime).String(),
	)
	return nil
}

// loadInputs reads the passenger side of the run from CSV and the network
// from either the flights CSV or the available_flight table
func loadInputs(ctx context.Context, cfg *config.Config) (*graph.FlightNetwork, *feed.Feed, error) {
	if cfg.Input.Source == "csv" {
		inputs, err := feed.Load(feed.Paths{
			AvailableFlights: cfg.Input.AvailableFlights,
			Passengers:       cfg.Input.Passengers,
			CancelledFlights: cfg.Input.CancelledFlights,
			Airports:         cfg.Input.Airports,
		})
		if err != nil {
			return nil, nil, err
		}
		return graph.BuildNetwork(feed.ValidateFlights(inputs.Flights)), inputs, nil
	}

	inputs := &feed.Feed{}
	var err error
	if inputs.Passengers, err = feed.ParsePassengers(cfg.Input.Passengers); err != nil {
		return nil, nil, fmt.Errorf("failed to parse passengers: %w", err)
	}
	if inputs.Cancelled, err = feed.ParseCancelledFlights(cfg.Input.CancelledFlights); err != nil {
		return nil, nil, fmt.Errorf("failed to parse cancelled flights: %w", err)
	}
	if cfg.Input.Airports != "" {
		if inputs.Airports, err = feed.ParseAirports(cfg.Input.Airports); err != nil {
			logger.Warn("failed to parse airports", "error", err)
		}
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	defer pool.Close()

	network := graph.NewFlightNetwork()
	if err := network.LoadFromDB(ctx, pool); err != nil {
		return nil, nil, err
	}
	return network, inputs, nil
}

func writeReport(cfg config.ReportConfig, outcome *rebooking.Outcome) error {
	if dir := filepath.Dir(cfg.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	file, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer file.Close()

	switch cfg.Format {
	case "xlsx":
		err = report.WriteExcel(file, outcome)
	default:
		err = report.WriteCSV(file, outcome)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
