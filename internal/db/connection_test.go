package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/skyrebook/rebook_core/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		Database: "rebook",
		User:     "rebook",
		Password: "secret",
		SSLMode:  "disable",
		MinConns: 2,
		MaxConns: 12,
	}

	t.Run("Pool sizes and target", func(t *testing.T) {
		pc, err := PoolConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, int32(2), pc.MinConns)
		assert.Equal(t, int32(12), pc.MaxConns)
		assert.Equal(t, "db.internal", pc.ConnConfig.Host)
		assert.Equal(t, "rebook", pc.ConnConfig.Database)
		assert.NotEqual(t, pgx.QueryExecModeSimpleProtocol, pc.ConnConfig.DefaultQueryExecMode)
	})

	t.Run("Simple protocol when asked", func(t *testing.T) {
		c := cfg
		c.SimpleProtocol = true
		pc, err := PoolConfig(c)
		require.NoError(t, err)
		assert.Equal(t, pgx.QueryExecModeSimpleProtocol, pc.ConnConfig.DefaultQueryExecMode)
	})

	t.Run("Simple protocol behind a pooler port", func(t *testing.T) {
		c := cfg
		c.Port = 6543
		pc, err := PoolConfig(c)
		require.NoError(t, err)
		assert.Equal(t, pgx.QueryExecModeSimpleProtocol, pc.ConnConfig.DefaultQueryExecMode)
	})
}

func TestHealthCheck(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

		assert.NoError(t, HealthCheck(context.Background(), mock))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ping fails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		err = HealthCheck(context.Background(), mock)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database ping failed")
	})

	t.Run("Missing table", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New(`relation "available_flight" does not exist`))

		err = HealthCheck(context.Background(), mock)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "available_flight not readable")
	})

	t.Run("Nil pool", func(t *testing.T) {
		assert.Error(t, HealthCheck(context.Background(), nil))
	})
}
