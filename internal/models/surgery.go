package models

import "time"

// Surgery is a pending request for operating-room time.
type Surgery struct {
	ID                 string    `json:"id" yaml:"id"`
	PatientAge         int       `json:"patient_age" yaml:"patient_age"`
	BMI                float64   `json:"bmi" yaml:"bmi"`
	SurgeryType        string    `json:"surgery_type" yaml:"surgery_type"`
	Surgeon            string    `json:"surgeon" yaml:"surgeon"`
	Anesthesiologist   string    `json:"anesthesiologist" yaml:"anesthesiologist"`
	Nurse              string    `json:"nurse" yaml:"nurse"`
	Comorbidities      string    `json:"comorbidities" yaml:"comorbidities"`
	DayOfWeek          string    `json:"day_of_week" yaml:"day_of_week"`
	TimePreference     string    `json:"time_preference" yaml:"time_preference"`
	InstrumentReady    bool      `json:"instrument_ready" yaml:"instrument_ready"`
	PACUBedReady       bool      `json:"pacu_bed_ready" yaml:"pacu_bed_ready"`
	PreOpPrepMinutes   float64   `json:"pre_op_prep_time" yaml:"pre_op_prep_time"`
	TransferMinutes    float64   `json:"transfer_to_or_time" yaml:"transfer_to_or_time"`
	AnesthesiaMinutes  float64   `json:"anesthesia_time" yaml:"anesthesia_time"`
	PositioningMinutes float64   `json:"positioning_time" yaml:"positioning_time"`
	TotalORMinutes     *float64  `json:"total_or_time,omitempty" yaml:"total_or_time,omitempty"`
	ScheduledStart     time.Time `json:"scheduled_start" yaml:"scheduled_start"`
}

// Complexity is the mean of the pre-op, anesthesia and positioning prep times.
// Transfer time is not part of it.
func (s Surgery) Complexity() float64 {
	return (s.PreOpPrepMinutes + s.AnesthesiaMinutes + s.PositioningMinutes) / 3
}

// PrepMinutes sums all four prep components.
func (s Surgery) PrepMinutes() float64 {
	return s.PreOpPrepMinutes + s.TransferMinutes + s.AnesthesiaMinutes + s.PositioningMinutes
}

// KnownDuration returns the recorded total OR time when one was supplied.
func (s Surgery) KnownDuration() (float64, bool) {
	if s.TotalORMinutes == nil || *s.TotalORMinutes <= 0 {
		return 0, false
	}
	return *s.TotalORMinutes, true
}

// Time preference labels used by batch imports.
const (
	TimePreferenceMorning      = "Morning"
	TimePreferenceAfternoon    = "Afternoon"
	TimePreferenceNoPreference = "No Preference"
)
