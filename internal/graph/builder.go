package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/skyrebook/rebook_core/internal/logger"
	"github.com/skyrebook/rebook_core/internal/models"
)

const batchSize = 1000 // batch insert size

// BuildNetwork creates an in-memory network with one edge per available flight
func BuildNetwork(flights []models.AvailableFlight) *FlightNetwork {
	network := NewFlightNetwork()
	for _, f := range flights {
		network.AddFlight(f.Origin, f.Destination, f.DepTime, f.ArrTime, f.CAvail, f.YAvail, f.FlightID)
	}

	stats := network.Stats()
	logger.Info("Built flight network",
		"airports", stats.Airports,
		"flights", stats.Flights,
		"routes", stats.Routes,
	)
	return network
}

// DBTX is the subset of a pgx pool used by the builder
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Builder stores the available flights feed in PostgreSQL
type Builder struct {
	db DBTX
}

// NewBuilder creates a new schedule builder
func NewBuilder(db DBTX) *Builder {
	return &Builder{db: db}
}

// EnsureSchema creates the available_flight table if it does not exist
func (b *Builder) EnsureSchema(ctx context.Context) error {
	_, err := b.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS available_flight (
			id          BIGSERIAL PRIMARY KEY,
			flight_id   TEXT NOT NULL UNIQUE,
			origin      TEXT NOT NULL,
			destination TEXT NOT NULL,
			dep_time    TIMESTAMPTZ NOT NULL,
			arr_time    TIMESTAMPTZ NOT NULL,
			c_avail     INTEGER NOT NULL DEFAULT 0,
			y_avail     INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create available_flight: %w", err)
	}
	return nil
}

// ClearFlights removes every stored flight
func (b *Builder) ClearFlights(ctx context.Context) error {
	logger.Info("Clearing stored flights...")
	if _, err := b.db.Exec(ctx, "TRUNCATE TABLE available_flight"); err != nil {
		return fmt.Errorf("failed to clear flights: %w", err)
	}
	return nil
}

// ImportFlights upserts flights in batches keyed by flight_id
func (b *Builder) ImportFlights(ctx context.Context, flights []models.AvailableFlight) (int, error) {
	startTime := time.Now()
	batch := &pgx.Batch{}
	count := 0

	for _, f := range flights {
		batch.Queue(`
			INSERT INTO available_flight (flight_id, origin, destination, dep_time, arr_time, c_avail, y_avail)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (flight_id) DO UPDATE
			SET origin = EXCLUDED.origin,
			    destination = EXCLUDED.destination,
			    dep_time = EXCLUDED.dep_time,
			    arr_time = EXCLUDED.arr_time,
			    c_avail = EXCLUDED.c_avail,
			    y_avail = EXCLUDED.y_avail
		`, f.FlightID, f.Origin, f.Destination, f.DepTime, f.ArrTime, f.CAvail, f.YAvail)
		count++

		if batch.Len() >= batchSize {
			if err := b.executeBatch(ctx, batch); err != nil {
				return 0, err
			}
			batch = &pgx.Batch{}
		}
	}

	if batch.Len() > 0 {
		if err := b.executeBatch(ctx, batch); err != nil {
			return 0, err
		}
	}

	logger.Info("Imported flights", "count", count, "duration", time.Since(startTime))
	return count, nil
}

func (b *Builder) executeBatch(ctx context.Context, batch *pgx.Batch) error {
	results := b.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch execution failed at query %d: %w", i, err)
		}
	}

	return nil
}
