package models

// DelayRisk labels the predicted likelihood of a late start.
type DelayRisk string

const (
	DelayRiskHigh DelayRisk = "High Risk"
	DelayRiskLow  DelayRisk = "Low Risk"
)

// IsHigh reports whether the label marks a high delay risk.
func (r DelayRisk) IsHigh() bool {
	return r == DelayRiskHigh
}

// Prediction is the estimate returned by a predictor for one surgery.
type Prediction struct {
	DelayProbability         float64   `json:"delay_probability"`
	DelayRisk                DelayRisk `json:"predicted_delay"`
	EstimatedDurationMinutes float64   `json:"predicted_duration"`
	DurationLow              float64   `json:"duration_low"`
	DurationHigh             float64   `json:"duration_high"`
}
