package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

// ErrPredictor wraps a predictor error or an unusable prediction for a single case.
var ErrPredictor = errors.New("predictor failure")

// Predictor estimates duration and delay risk for a surgery.
type Predictor interface {
	Predict(ctx context.Context, surgery models.Surgery) (models.Prediction, error)
}

// PredictorFunc adapts a function to the Predictor interface.
type PredictorFunc func(ctx context.Context, surgery models.Surgery) (models.Prediction, error)

// Predict calls f.
func (f PredictorFunc) Predict(ctx context.Context, surgery models.Surgery) (models.Prediction, error) {
	return f(ctx, surgery)
}

// Result is the outcome of one scheduling pass.
type Result struct {
	HorizonStart time.Time
	Config       Config
	// Schedule is ordered by start time, then room.
	Schedule []models.ScheduledAssignment
	// Placements follow the input order, one per surgery.
	Placements []models.Placement
	SlotsTotal int
	SlotsUsed  int
}

// Unplaced lists the placements that did not produce an assignment.
func (r *Result) Unplaced() []models.Placement {
	var out []models.Placement
	for _, p := range r.Placements {
		if p.Status == models.PlacementUnplaced {
			out = append(out, p)
		}
	}
	return out
}

// Builder runs the greedy single-pass allocation.
type Builder struct {
	predictor Predictor
	logger    *zap.Logger
}

// NewBuilder wires a builder around the given predictor.
func NewBuilder(predictor Predictor, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{predictor: predictor, logger: logger}
}

// Build assigns surgeries to slots of a freshly generated grid. Each call owns its
// grid, so concurrent calls do not interfere. The context is checked between
// cases; once it is done Build returns its error and no schedule.
func (b *Builder) Build(ctx context.Context, surgeries []models.Surgery, horizonStart time.Time, cfg Config) (*Result, error) {
	if b.predictor == nil {
		return nil, fmt.Errorf("%w: predictor is required", ErrInvalidConfig)
	}
	grid, err := NewGrid(horizonStart, cfg)
	if err != nil {
		return nil, err
	}

	return b.run(ctx, grid, surgeries, horizonStart, cfg)
}

func (b *Builder) run(ctx context.Context, grid *Grid, surgeries []models.Surgery, horizonStart time.Time, cfg Config) (*Result, error) {
	result := &Result{
		HorizonStart: horizonStart,
		Config:       cfg,
		Schedule:     make([]models.ScheduledAssignment, 0, len(surgeries)),
		Placements:   make([]models.Placement, len(surgeries)),
		SlotsTotal:   grid.Len(),
	}

	for _, idx := range processingOrder(surgeries) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("schedule pass interrupted: %w", err)
		}
		placement := b.place(ctx, grid, surgeries[idx], cfg)
		result.Placements[idx] = placement
		if placement.Assignment != nil {
			result.Schedule = append(result.Schedule, *placement.Assignment)
		}
	}

	// Ordered by date, then start time, then room.
	sort.SliceStable(result.Schedule, func(i, j int) bool {
		a, c := result.Schedule[i], result.Schedule[j]
		if !a.Date.Equal(c.Date) {
			return a.Date.Before(c.Date)
		}
		if !a.StartTime.Equal(c.StartTime) {
			return a.StartTime.Before(c.StartTime)
		}
		return a.Room < c.Room
	})
	result.SlotsUsed = grid.Reserved()

	b.logger.Info("schedule pass finished",
		zap.Int("cases", len(surgeries)),
		zap.Int("placed", len(result.Schedule)),
		zap.Int("unplaced", len(surgeries)-len(result.Schedule)),
		zap.Int("slots_used", result.SlotsUsed),
		zap.Int("slots_total", result.SlotsTotal),
	)
	return result, nil
}

// processingOrder sorts by complexity then patient age, both descending. The sort
// is stable so equal keys keep their input order.
func processingOrder(surgeries []models.Surgery) []int {
	order := make([]int, len(surgeries))
	complexity := make([]float64, len(surgeries))
	for i, s := range surgeries {
		order[i] = i
		complexity[i] = s.Complexity()
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, c := order[i], order[j]
		if complexity[a] != complexity[c] {
			return complexity[a] > complexity[c]
		}
		return surgeries[a].PatientAge > surgeries[c].PatientAge
	})
	return order
}

func (b *Builder) place(ctx context.Context, grid *Grid, s models.Surgery, cfg Config) models.Placement {
	prediction, err := b.predict(ctx, s)
	if err != nil {
		b.logger.Warn("predictor failed, case left unplaced", zap.String("case_id", s.ID), zap.Error(err))
		return models.Placement{Surgery: s, Status: models.PlacementUnplaced, Reason: models.UnplacedPredictorFailure, Detail: err.Error()}
	}

	duration, ok := s.KnownDuration()
	if !ok {
		duration = prediction.EstimatedDurationMinutes
		if invalidMinutes(duration) {
			err := fmt.Errorf("%w: estimated duration %v", ErrPredictor, duration)
			b.logger.Warn("predictor failed, case left unplaced", zap.String("case_id", s.ID), zap.Error(err))
			return models.Placement{Surgery: s, Status: models.PlacementUnplaced, Reason: models.UnplacedPredictorFailure, Detail: err.Error()}
		}
	}
	need := int(math.Ceil((duration + float64(cfg.CleanupMinutes)) / float64(cfg.SlotMinutes)))
	highRisk := prediction.DelayRisk.IsHigh()

	var (
		run   slotRun
		score int
		found bool
	)
	if w, ok := grid.dayWindow(s.ScheduledStart); ok {
		run, score, found = grid.findBestSlot(s, highRisk, w, need)
	}
	if !found {
		run, score, found = grid.findBestSlot(s, highRisk, grid.fullWindow(), need)
	}
	if !found {
		b.logger.Debug("no feasible slot run", zap.String("case_id", s.ID), zap.Int("slots_needed", need))
		return models.Placement{
			Surgery: s,
			Status:  models.PlacementUnplaced,
			Reason:  models.UnplacedNoFeasibleSlot,
			Detail:  fmt.Sprintf("no run of %d consecutive free slots in the horizon", need),
		}
	}

	grid.reserve(run.Room, run.Pos, run.Length)
	y, m, d := run.Start.Date()
	assignment := &models.ScheduledAssignment{
		Surgery:                  s,
		Date:                     time.Date(y, m, d, 0, 0, 0, 0, run.Start.Location()),
		StartTime:                run.Start,
		Room:                     run.Room,
		EstimatedDurationMinutes: duration,
		SlotCount:                run.Length,
		DelayRisk:                prediction.DelayRisk,
		OriginalTime:             s.ScheduledStart,
		Score:                    score,
	}
	return models.Placement{Surgery: s, Status: models.PlacementPlaced, Assignment: assignment}
}

func (b *Builder) predict(ctx context.Context, s models.Surgery) (models.Prediction, error) {
	prediction, err := b.predictor.Predict(ctx, s)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("%w: %v", ErrPredictor, err)
	}
	if prediction.DelayRisk != models.DelayRiskHigh && prediction.DelayRisk != models.DelayRiskLow {
		return models.Prediction{}, fmt.Errorf("%w: unknown delay risk %q", ErrPredictor, prediction.DelayRisk)
	}
	p := prediction.DelayProbability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return models.Prediction{}, fmt.Errorf("%w: delay probability %v out of range", ErrPredictor, p)
	}
	return prediction, nil
}

func invalidMinutes(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v <= 0
}

// BuildWeeklySchedule runs one pass with a throwaway builder and returns only the schedule.
func BuildWeeklySchedule(ctx context.Context, predictor Predictor, surgeries []models.Surgery, horizonStart time.Time, cfg Config) ([]models.ScheduledAssignment, error) {
	result, err := NewBuilder(predictor, nil).Build(ctx, surgeries, horizonStart, cfg)
	if err != nil {
		return nil, err
	}
	return result.Schedule, nil
}
