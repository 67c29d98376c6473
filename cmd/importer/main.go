package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skyrebook/rebook_core/internal/config"
	"github.com/skyrebook/rebook_core/internal/db"
	"github.com/skyrebook/rebook_core/internal/feed"
	"github.com/skyrebook/rebook_core/internal/graph"
	"github.com/skyrebook/rebook_core/internal/logger"
)

func main() {
	// Command-line flags
	flightsPath := flag.String("flights", "", "Path to the available flights CSV (default: input.available_flights)")
	configPath := flag.String("config", "", "Path to config YAML")
	clearFirst := flag.Bool("clear", false, "Remove stored flights before importing")

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
	logger.Init(cfg.Log.Level)

	path := *flightsPath
	if path == "" {
		path = cfg.Input.AvailableFlights
	}

	// Validate file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("Usage: rebook-import [--flights=<available_flights.csv>] [--config=<config.yaml>] [--clear]")
		flag.PrintDefaults()
		logger.Fatal("Flights file not found", "path", path)
	}

	logger.Info("Starting flight import...", "file", path, "clear", *clearFirst)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := runImport(ctx, pool, path, *clearFirst); err != nil {
		logger.Fatal("Import failed", "error", err)
	}

	logger.Info("Import completed successfully!")
}

func runImport(ctx context.Context, pool *pgxpool.Pool, path string, clearFirst bool) error {
	startTime := time.Now()

	logger.Info("Step 1/3: Parsing available flights...")
	flights, err := feed.ParseAvailableFlights(path)
	if err != nil {
		return fmt.Errorf("failed to parse flights: %w", err)
	}

	logger.Info("Step 2/3: Validating flights...")
	flights = feed.ValidateFlights(flights)

	// Begin transaction
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	logger.Info("Step 3/3: Importing flights to database...")
	builder := graph.NewBuilder(tx)
	if err := builder.EnsureSchema(ctx); err != nil {
		return err
	}
	if clearFirst {
		if err := builder.ClearFlights(ctx); err != nil {
			return err
		}
	}

	count, err := builder.ImportFlights(ctx, flights)
	if err != nil {
		return fmt.Errorf("failed to import flights: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("Import summary",
		"flights", count,
		"duration", time.Since(startTime).String(),
	)
	return nil
}
