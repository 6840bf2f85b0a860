package predictor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

// RuleConfig tunes the deterministic predictor.
type RuleConfig struct {
	// AgeCutPoints and BMICutPoints are the 20/40/60/80th percentiles of the
	// historical case mix; each value maps to a risk band of 1..5.
	AgeCutPoints      [4]float64
	BMICutPoints      [4]float64
	HighRiskThreshold float64
	DurationRMSE      float64
	// Baselines holds the typical total OR minutes per procedure.
	Baselines       map[string]float64
	DefaultBaseline float64
}

// DefaultRuleConfig returns cut points and baselines taken from the historical
// 1000-case data set.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		AgeCutPoints:      [4]float64{31, 44, 57, 70},
		BMICutPoints:      [4]float64{22.8, 26.3, 29.9, 33.8},
		HighRiskThreshold: 0.5,
		DurationRMSE:      15,
		Baselines: map[string]float64{
			"hip replacement":     120,
			"knee replacement":    110,
			"acl repair":          90,
			"arthroscopy":         60,
			"cataract surgery":    40,
			"appendectomy":        70,
			"gallbladder removal": 80,
			"hernia repair":       65,
			"spinal fusion":       180,
			"cardiac bypass":      240,
		},
		DefaultBaseline: 90,
	}
}

// RulePredictor scores cases from patient risk bands, readiness flags and the
// procedure baseline. It needs no external service.
type RulePredictor struct {
	cfg RuleConfig
}

// NewRulePredictor builds a predictor, filling zero settings from DefaultRuleConfig.
func NewRulePredictor(cfg RuleConfig) *RulePredictor {
	def := DefaultRuleConfig()
	if cfg.AgeCutPoints == ([4]float64{}) {
		cfg.AgeCutPoints = def.AgeCutPoints
	}
	if cfg.BMICutPoints == ([4]float64{}) {
		cfg.BMICutPoints = def.BMICutPoints
	}
	if cfg.HighRiskThreshold <= 0 || cfg.HighRiskThreshold >= 1 {
		cfg.HighRiskThreshold = def.HighRiskThreshold
	}
	if cfg.DurationRMSE < 0 {
		cfg.DurationRMSE = def.DurationRMSE
	}
	if len(cfg.Baselines) == 0 {
		cfg.Baselines = def.Baselines
	}
	if cfg.DefaultBaseline <= 0 {
		cfg.DefaultBaseline = def.DefaultBaseline
	}
	return &RulePredictor{cfg: cfg}
}

// Predict implements scheduler.Predictor.
func (p *RulePredictor) Predict(ctx context.Context, s models.Surgery) (models.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return models.Prediction{}, err
	}
	if s.PatientAge < 0 || s.BMI < 0 {
		return models.Prediction{}, fmt.Errorf("%w: negative age or BMI", ErrInvalidCase)
	}

	risk := RiskBand(float64(s.PatientAge), p.cfg.AgeCutPoints) + RiskBand(s.BMI, p.cfg.BMICutPoints)
	comorbid := hasComorbidity(s.Comorbidities)

	model := p.baseline(s.SurgeryType) * (1 + 0.02*float64(risk-6))
	if comorbid {
		model += 10
	}
	duration := round(math.Max(s.PrepMinutes(), model), 1)

	prob := 0.10 + 0.035*float64(risk-2)
	if !s.InstrumentReady {
		prob += 0.25
	}
	if !s.PACUBedReady {
		prob += 0.15
	}
	if comorbid {
		prob += 0.05
	}
	if s.ScheduledStart.Hour() >= 12 {
		prob += 0.05
	}
	prob = round(math.Min(0.99, math.Max(0.01, prob)), 2)

	label := models.DelayRiskLow
	if prob > p.cfg.HighRiskThreshold {
		label = models.DelayRiskHigh
	}
	return models.Prediction{
		DelayProbability:         prob,
		DelayRisk:                label,
		EstimatedDurationMinutes: duration,
		DurationLow:              round(duration-p.cfg.DurationRMSE, 1),
		DurationHigh:             round(duration+p.cfg.DurationRMSE, 1),
	}, nil
}

func (p *RulePredictor) baseline(surgeryType string) float64 {
	if v, ok := p.cfg.Baselines[strings.ToLower(strings.TrimSpace(surgeryType))]; ok {
		return v
	}
	return p.cfg.DefaultBaseline
}

// RiskBand maps a value onto 1..5 using the inclusive upper bounds in cuts.
func RiskBand(value float64, cuts [4]float64) int {
	for i, cut := range cuts {
		if value <= cut {
			return i + 1
		}
	}
	return 5
}

func hasComorbidity(raw string) bool {
	v := strings.TrimSpace(strings.ToLower(raw))
	return v != "" && v != "none"
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
