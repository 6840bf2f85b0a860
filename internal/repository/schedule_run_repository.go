package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

const scheduleRunColumns = `id, horizon_start, status, placed_count, unplaced_count, meta, created_at`

// ScheduleRunRepository persists the header row of each scheduling pass.
type ScheduleRunRepository struct {
	db *sqlx.DB
}

// NewScheduleRunRepository constructs repository.
func NewScheduleRunRepository(db *sqlx.DB) *ScheduleRunRepository {
	return &ScheduleRunRepository{db: db}
}

func (r *ScheduleRunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a run. Re-inserting the same ID is a no-op so persistence
// retries stay idempotent.
func (r *ScheduleRunRepository) Create(ctx context.Context, exec sqlx.ExtContext, run *models.ScheduleRun) error {
	if run == nil {
		return fmt.Errorf("schedule run payload is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.ScheduleRunStatusCompleted
	}
	if len(run.Meta) == 0 {
		run.Meta = types.JSONText(`{}`)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO schedule_runs (id, horizon_start, status, placed_count, unplaced_count, meta, created_at)
VALUES (:id, :horizon_start, :status, :placed_count, :unplaced_count, :meta, :created_at)
ON CONFLICT (id) DO NOTHING`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, run); err != nil {
		return fmt.Errorf("insert schedule run: %w", err)
	}
	return nil
}

// FindByID loads a run by its identifier. It returns sql.ErrNoRows when absent.
func (r *ScheduleRunRepository) FindByID(ctx context.Context, id string) (*models.ScheduleRun, error) {
	query := `SELECT ` + scheduleRunColumns + ` FROM schedule_runs WHERE id = $1`
	var run models.ScheduleRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the most recent runs first.
func (r *ScheduleRunRepository) List(ctx context.Context, limit int) ([]models.ScheduleRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + scheduleRunColumns + ` FROM schedule_runs ORDER BY created_at DESC LIMIT $1`
	var runs []models.ScheduleRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list schedule runs: %w", err)
	}
	return runs, nil
}
