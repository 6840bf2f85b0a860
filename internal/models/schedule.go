package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduledAssignment is the placement of one surgery into an operating room.
type ScheduledAssignment struct {
	Surgery                  Surgery   `json:"surgery"`
	Date                     time.Time `json:"date"`
	StartTime                time.Time `json:"start_time"`
	Room                     int       `json:"room"`
	EstimatedDurationMinutes float64   `json:"estimated_duration"`
	SlotCount                int       `json:"slot_count"`
	DelayRisk                DelayRisk `json:"delay_risk"`
	OriginalTime             time.Time `json:"original_time"`
	Score                    int       `json:"score"`
}

// EndTime is the end of the occupied slot run, cleanup buffer included.
func (a ScheduledAssignment) EndTime(slotMinutes int) time.Time {
	return a.StartTime.Add(time.Duration(a.SlotCount*slotMinutes) * time.Minute)
}

// PlacementStatus is the terminal state of a surgery within one scheduling pass.
type PlacementStatus string

const (
	PlacementPlaced   PlacementStatus = "PLACED"
	PlacementUnplaced PlacementStatus = "UNPLACED"
)

// UnplacedReason explains why a surgery did not make it into the schedule.
type UnplacedReason string

const (
	UnplacedNoFeasibleSlot   UnplacedReason = "NO_FEASIBLE_SLOT"
	UnplacedPredictorFailure UnplacedReason = "PREDICTOR_FAILURE"
)

// Placement records the outcome for a single input surgery.
type Placement struct {
	Surgery    Surgery              `json:"surgery"`
	Status     PlacementStatus      `json:"status"`
	Reason     UnplacedReason       `json:"reason,omitempty"`
	Detail     string               `json:"detail,omitempty"`
	Assignment *ScheduledAssignment `json:"assignment,omitempty"`
}

// ScheduleRunStatus tracks a persisted scheduling pass.
type ScheduleRunStatus string

const (
	ScheduleRunStatusCompleted ScheduleRunStatus = "COMPLETED"
	ScheduleRunStatusEmpty     ScheduleRunStatus = "EMPTY"
)

// ScheduleRun is the persisted header of one scheduling pass.
type ScheduleRun struct {
	ID            string            `db:"id" json:"id"`
	HorizonStart  time.Time         `db:"horizon_start" json:"horizon_start"`
	Status        ScheduleRunStatus `db:"status" json:"status"`
	PlacedCount   int               `db:"placed_count" json:"placed_count"`
	UnplacedCount int               `db:"unplaced_count" json:"unplaced_count"`
	Meta          types.JSONText    `db:"meta" json:"meta"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

// ScheduleRunAssignment is a persisted row of a run's schedule.
type ScheduleRunAssignment struct {
	ID                       string    `db:"id" json:"id"`
	RunID                    string    `db:"run_id" json:"run_id"`
	CaseID                   string    `db:"case_id" json:"case_id"`
	SurgeryType              string    `db:"surgery_type" json:"surgery_type"`
	Surgeon                  string    `db:"surgeon" json:"surgeon"`
	PatientAge               int       `db:"patient_age" json:"patient_age"`
	Room                     int       `db:"room" json:"room"`
	StartTime                time.Time `db:"start_time" json:"start_time"`
	EndTime                  time.Time `db:"end_time" json:"end_time"`
	EstimatedDurationMinutes float64   `db:"estimated_duration" json:"estimated_duration"`
	DelayRisk                DelayRisk `db:"delay_risk" json:"delay_risk"`
	OriginalTime             time.Time `db:"original_time" json:"original_time"`
	Score                    int       `db:"score" json:"score"`
	CreatedAt                time.Time `db:"created_at" json:"created_at"`
}
