package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/skyrebook/rebook_core/internal/config"
	"github.com/skyrebook/rebook_core/internal/logger"
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
	logger.Init(cfg.Log.Level)

	logger.Info("Testing database connection...",
		"host", fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port),
		"user", cfg.Database.User,
		"database", cfg.Database.Database,
	)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatal("Failed to create connection", "error", err)
	}
	defer db.Close()

	// Ping database
	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", "error", err)
	}
	logger.Info("Connection successful")

	// Check PostgreSQL version
	var pgVersion string
	if err := db.QueryRow("SELECT version()").Scan(&pgVersion); err != nil {
		logger.Warn("Could not get PostgreSQL version", "error", err)
	} else {
		logger.Info("PostgreSQL version", "version", pgVersion)
	}

	// Check the schedule table
	var exists bool
	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'available_flight'
		)
	`).Scan(&exists)
	if err != nil {
		logger.Fatal("Failed to inspect schema", "error", err)
	}
	if !exists {
		logger.Warn("Table available_flight missing, run the importer first")
		return
	}

	var flights, airports int
	if err := db.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT origin)
		FROM available_flight
	`).Scan(&flights, &airports); err != nil {
		logger.Fatal("Failed to count flights", "error", err)
	}
	logger.Info("Schedule table ready", "flights", flights, "origin_airports", airports)
}
