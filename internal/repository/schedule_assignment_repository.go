package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

// ScheduleAssignmentRepository stores the rows of a persisted schedule.
type ScheduleAssignmentRepository struct {
	db *sqlx.DB
}

// NewScheduleAssignmentRepository builds repository.
func NewScheduleAssignmentRepository(db *sqlx.DB) *ScheduleAssignmentRepository {
	return &ScheduleAssignmentRepository{db: db}
}

func (r *ScheduleAssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch writes assignments for a run. A room can hold one case per start
// time within a run; duplicates from a retried job are ignored.
func (r *ScheduleAssignmentRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, rows []models.ScheduleRunAssignment) error {
	if len(rows) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO schedule_assignments (id, run_id, case_id, surgery_type, surgeon, patient_age, room, start_time, end_time, estimated_duration, delay_risk, original_time, score, created_at)
VALUES (:id, :run_id, :case_id, :surgery_type, :surgeon, :patient_age, :room, :start_time, :end_time, :estimated_duration, :delay_risk, :original_time, :score, :created_at)
ON CONFLICT (run_id, room, start_time) DO NOTHING`

	for i := range rows {
		row := &rows[i]
		if row.RunID == "" {
			return fmt.Errorf("assignment %s has no run_id", row.CaseID)
		}
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, row); err != nil {
			return fmt.Errorf("insert schedule assignment: %w", err)
		}
	}
	return nil
}

// ListByRun returns a run's assignments ordered by start time, then room.
func (r *ScheduleAssignmentRepository) ListByRun(ctx context.Context, runID string) ([]models.ScheduleRunAssignment, error) {
	const query = `SELECT id, run_id, case_id, surgery_type, surgeon, patient_age, room, start_time, end_time, estimated_duration, delay_risk, original_time, score, created_at
FROM schedule_assignments WHERE run_id = $1 ORDER BY start_time ASC, room ASC`
	var rows []models.ScheduleRunAssignment
	if err := r.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("list schedule assignments: %w", err)
	}
	return rows, nil
}
