package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/or-scheduler-api/pkg/config"
)

// NewPostgres returns a configured PostgreSQL client for schedule run storage.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return db, nil
}

// schema is applied idempotently at startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS schedule_runs (
		id UUID PRIMARY KEY,
		horizon_start TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		placed_count INTEGER NOT NULL DEFAULT 0,
		unplaced_count INTEGER NOT NULL DEFAULT 0,
		meta JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_assignments (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES schedule_runs(id) ON DELETE CASCADE,
		case_id TEXT NOT NULL,
		surgery_type TEXT NOT NULL,
		surgeon TEXT NOT NULL,
		patient_age INTEGER NOT NULL,
		room INTEGER NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		estimated_duration DOUBLE PRECISION NOT NULL,
		delay_risk TEXT NOT NULL,
		original_time TIMESTAMPTZ NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (run_id, room, start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_runs_created_at ON schedule_runs (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_assignments_run ON schedule_assignments (run_id, start_time)`,
}

// EnsureSchema creates the schedule tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db sqlx.ExecerContext) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
