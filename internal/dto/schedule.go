package dto

import "time"

// SurgeryRequest is one pending case as sent by the scheduling front end.
type SurgeryRequest struct {
	ID               string   `json:"id,omitempty" yaml:"id,omitempty" validate:"omitempty,max=64"`
	PatientAge       int      `json:"patient_age" yaml:"patient_age" validate:"min=0,max=120"`
	BMI              float64  `json:"bmi" yaml:"bmi" validate:"min=0,max=100"`
	SurgeryType      string   `json:"surgery_type" yaml:"surgery_type" validate:"required"`
	Surgeon          string   `json:"surgeon" yaml:"surgeon"`
	Anesthesiologist string   `json:"anesthesiologist" yaml:"anesthesiologist"`
	Nurse            string   `json:"nurse" yaml:"nurse"`
	DayOfWeek        string   `json:"day_of_week" yaml:"day_of_week"`
	TimePreference   string   `json:"time_preference" yaml:"time_preference"`
	PreOpPrepTime    float64  `json:"pre_op_prep_time" yaml:"pre_op_prep_time" validate:"min=0"`
	TransferToORTime float64  `json:"transfer_to_or_time" yaml:"transfer_to_or_time" validate:"min=0"`
	AnesthesiaTime   float64  `json:"anesthesia_time" yaml:"anesthesia_time" validate:"min=0"`
	PositioningTime  float64  `json:"positioning_time" yaml:"positioning_time" validate:"min=0"`
	Comorbidities    string   `json:"comorbidities" yaml:"comorbidities"`
	InstrumentReady  string   `json:"instrument_ready" yaml:"instrument_ready" validate:"omitempty,oneof=Y N y n"`
	PACUBedReady     string   `json:"pacu_bed_ready" yaml:"pacu_bed_ready" validate:"omitempty,oneof=Y N y n"`
	TotalORTime      *float64 `json:"total_or_time,omitempty" yaml:"total_or_time,omitempty"`
	ScheduledStart   string   `json:"scheduled_start" yaml:"scheduled_start" validate:"required"`
}

// ScheduleOptions overrides the configured operating-room defaults for one run.
type ScheduleOptions struct {
	Rooms          *int     `json:"rooms,omitempty" yaml:"rooms,omitempty" validate:"omitempty,min=1,max=50"`
	StartHour      *int     `json:"start_hour,omitempty" yaml:"start_hour,omitempty" validate:"omitempty,min=0,max=23"`
	EndHour        *int     `json:"end_hour,omitempty" yaml:"end_hour,omitempty" validate:"omitempty,min=1,max=24"`
	SlotMinutes    *int     `json:"slot_minutes,omitempty" yaml:"slot_minutes,omitempty" validate:"omitempty,min=1,max=60"`
	CleanupMinutes *int     `json:"cleanup_minutes,omitempty" yaml:"cleanup_minutes,omitempty" validate:"omitempty,min=0"`
	Weekdays       []string `json:"weekdays,omitempty" yaml:"weekdays,omitempty"`
	HorizonDays    *int     `json:"horizon_days,omitempty" yaml:"horizon_days,omitempty" validate:"omitempty,min=1,max=31"`
	Timezone       string   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// ScheduleRequest asks for one weekly scheduling pass.
type ScheduleRequest struct {
	Surgeries []SurgeryRequest `json:"surgeries" yaml:"surgeries" validate:"dive"`
	StartDate string           `json:"start_date" yaml:"start_date" validate:"required"`
	Options   *ScheduleOptions `json:"options,omitempty" yaml:"options,omitempty"`
}

// ScheduledSurgery is one row of a generated schedule.
type ScheduledSurgery struct {
	CaseID            string    `json:"case_id"`
	SurgeryType       string    `json:"surgery_type"`
	PatientAge        int       `json:"patient_age"`
	Surgeon           string    `json:"surgeon"`
	ScheduledDate     string    `json:"scheduled_date"`
	ScheduledTime     string    `json:"scheduled_time"`
	OperatingRoom     int       `json:"operating_room"`
	EstimatedDuration float64   `json:"estimated_duration"`
	DelayRisk         string    `json:"delay_risk"`
	OriginalTime      string    `json:"original_time"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	SlotCount         int       `json:"slot_count,omitempty"`
	Score             int       `json:"score"`
}

// UnplacedSurgery reports a case left out of the schedule.
type UnplacedSurgery struct {
	CaseID      string `json:"case_id"`
	SurgeryType string `json:"surgery_type"`
	PatientAge  int    `json:"patient_age"`
	Reason      string `json:"reason"`
	Detail      string `json:"detail,omitempty"`
}

// ScheduleStats summarises one pass.
type ScheduleStats struct {
	Cases       int     `json:"cases"`
	Placed      int     `json:"placed"`
	Unplaced    int     `json:"unplaced"`
	SlotsTotal  int     `json:"slots_total"`
	SlotsUsed   int     `json:"slots_used"`
	Utilization float64 `json:"utilization"`
	DurationMS  int64   `json:"duration_ms"`
}

// ScheduleResponse is the result of POST /schedule and GET /schedules/:id.
type ScheduleResponse struct {
	RunID        string             `json:"run_id"`
	HorizonStart string             `json:"horizon_start"`
	Schedule     []ScheduledSurgery `json:"schedule"`
	Unplaced     []UnplacedSurgery  `json:"unplaced"`
	Stats        ScheduleStats      `json:"stats"`
}

// ScheduleRunSummary lists stored runs.
type ScheduleRunSummary struct {
	ID            string    `json:"id"`
	HorizonStart  time.Time `json:"horizon_start"`
	Status        string    `json:"status"`
	PlacedCount   int       `json:"placed_count"`
	UnplacedCount int       `json:"unplaced_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// ScheduleRunQuery pages the run list.
type ScheduleRunQuery struct {
	Limit int `form:"limit" json:"limit" validate:"omitempty,min=1,max=200"`
}

// PredictionResponse mirrors the model service /predict contract.
type PredictionResponse struct {
	DelayProbability  float64 `json:"delay_probability"`
	PredictedDelay    string  `json:"predicted_delay"`
	PredictedDuration float64 `json:"predicted_duration"`
	DurationRange     string  `json:"duration_range"`
}

// BatchImportResponse is the result of POST /batch-import.
type BatchImportResponse struct {
	ImportedCount int                `json:"imported_count"`
	RunID         string             `json:"run_id"`
	Schedule      []ScheduledSurgery `json:"schedule"`
	Unplaced      []UnplacedSurgery  `json:"unplaced"`
	Errors        []string           `json:"errors"`
}
