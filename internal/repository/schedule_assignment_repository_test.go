package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

func TestScheduleAssignmentRepositoryInsertBatch(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleAssignmentRepository(db)

	start := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	rows := []models.ScheduleRunAssignment{
		{RunID: "run-1", CaseID: "c1", SurgeryType: "Hip Replacement", Surgeon: "Dr. Smith", PatientAge: 72, Room: 1, StartTime: start, EndTime: start.Add(150 * time.Minute), EstimatedDurationMinutes: 120, DelayRisk: models.DelayRiskLow, OriginalTime: start, Score: 85},
		{RunID: "run-1", CaseID: "c2", SurgeryType: "Arthroscopy", Surgeon: "Dr. Lee", PatientAge: 40, Room: 2, StartTime: start, EndTime: start.Add(90 * time.Minute), EstimatedDurationMinutes: 60, DelayRisk: models.DelayRiskHigh, OriginalTime: start, Score: 70},
	}

	mock.ExpectBegin()
	for _, row := range rows {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_assignments")).
			WithArgs(sqlmock.AnyArg(), "run-1", row.CaseID, row.SurgeryType, row.Surgeon, row.PatientAge, row.Room, start, row.EndTime, row.EstimatedDurationMinutes, string(row.DelayRisk), start, row.Score, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.InsertBatch(context.Background(), tx, rows))
	require.NoError(t, tx.Commit())

	for _, row := range rows {
		assert.NotEmpty(t, row.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleAssignmentRepositoryInsertBatchRequiresRun(t *testing.T) {
	db, _, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	err := NewScheduleAssignmentRepository(db).InsertBatch(context.Background(), nil, []models.ScheduleRunAssignment{{CaseID: "c1"}})
	assert.Error(t, err)
	assert.NoError(t, NewScheduleAssignmentRepository(db).InsertBatch(context.Background(), nil, nil))
}

func TestScheduleAssignmentRepositoryInsertBatchError(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_assignments")).WillReturnError(errors.New("deadlock detected"))

	err := NewScheduleAssignmentRepository(db).InsertBatch(context.Background(), nil, []models.ScheduleRunAssignment{{RunID: "run-1", CaseID: "c1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
}

func TestScheduleAssignmentRepositoryListByRun(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleAssignmentRepository(db)

	start := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "run_id", "case_id", "surgery_type", "surgeon", "patient_age", "room", "start_time", "end_time", "estimated_duration", "delay_risk", "original_time", "score", "created_at"}).
		AddRow("a1", "run-1", "c1", "Hip Replacement", "Dr. Smith", 72, 1, start, start.Add(150*time.Minute), 120.0, "Low Risk", start, 85, start)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_assignments WHERE run_id = $1 ORDER BY start_time ASC, room ASC")).
		WithArgs("run-1").
		WillReturnRows(rows)

	list, err := repo.ListByRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.DelayRiskLow, list[0].DelayRisk)
	assert.Equal(t, 120.0, list[0].EstimatedDurationMinutes)
	assert.Equal(t, 85, list[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}
