package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
	"github.com/noah-isme/or-scheduler-api/internal/predictor"
	"github.com/noah-isme/or-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
)

// PredictionService answers single-case duration and delay-risk estimates.
type PredictionService struct {
	predictor scheduler.Predictor
	validator *validator.Validate
	location  *time.Location
	logger    *zap.Logger
}

// NewPredictionService constructs the service. loc is used for start times
// given without an offset.
func NewPredictionService(p scheduler.Predictor, validate *validator.Validate, loc *time.Location, logger *zap.Logger) *PredictionService {
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionService{predictor: p, validator: validate, location: loc, logger: logger}
}

// Predict estimates one case.
func (s *PredictionService) Predict(ctx context.Context, req dto.SurgeryRequest) (*dto.PredictionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid surgery payload")
	}
	surgery, err := toSurgery(req, s.location)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "scheduled_start is invalid")
	}

	prediction, err := s.predictor.Predict(ctx, surgery)
	if err != nil {
		switch {
		case errors.Is(err, predictor.ErrInvalidCase):
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		case errors.Is(err, predictor.ErrUnavailable):
			return nil, appErrors.Wrap(err, appErrors.ErrPredictorUnavailable.Code, appErrors.ErrPredictorUnavailable.Status, appErrors.ErrPredictorUnavailable.Message)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, "prediction timed out")
		default:
			s.logger.Error("prediction failed", zap.String("case_id", surgery.ID), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to predict surgery")
		}
	}

	return &dto.PredictionResponse{
		DelayProbability:  prediction.DelayProbability,
		PredictedDelay:    string(prediction.DelayRisk),
		PredictedDuration: prediction.EstimatedDurationMinutes,
		DurationRange:     fmt.Sprintf("%.1f - %.1f", prediction.DurationLow, prediction.DurationHigh),
	}, nil
}
