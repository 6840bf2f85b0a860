package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
	"github.com/noah-isme/or-scheduler-api/internal/models"
	"github.com/noah-isme/or-scheduler-api/internal/predictor"
	"github.com/noah-isme/or-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
)

func predictionRequest() dto.SurgeryRequest {
	return dto.SurgeryRequest{
		PatientAge: 65, BMI: 28.5, SurgeryType: "Hip Replacement", Surgeon: "Dr. Smith",
		Anesthesiologist: "Dr. Brown", Nurse: "Nurse A", DayOfWeek: "Monday",
		PreOpPrepTime: 45, TransferToORTime: 10, AnesthesiaTime: 25, PositioningTime: 20,
		Comorbidities: "Hypertension", InstrumentReady: "Y", PACUBedReady: "Y",
		ScheduledStart: "2025-03-10 09:00:00",
	}
}

func TestPredictionServicePredict(t *testing.T) {
	var seen models.Surgery
	p := scheduler.PredictorFunc(func(ctx context.Context, s models.Surgery) (models.Prediction, error) {
		seen = s
		return models.Prediction{DelayProbability: 0.62, DelayRisk: models.DelayRiskHigh, EstimatedDurationMinutes: 130, DurationLow: 115, DurationHigh: 145}, nil
	})
	svc := NewPredictionService(p, nil, nil, nil)

	resp, err := svc.Predict(context.Background(), predictionRequest())
	require.NoError(t, err)
	assert.Equal(t, 0.62, resp.DelayProbability)
	assert.Equal(t, "High Risk", resp.PredictedDelay)
	assert.Equal(t, 130.0, resp.PredictedDuration)
	assert.Equal(t, "115.0 - 145.0", resp.DurationRange)

	assert.Equal(t, 9, seen.ScheduledStart.Hour())
	assert.True(t, seen.InstrumentReady)
	assert.NotEmpty(t, seen.ID)
}

func TestPredictionServiceWithRules(t *testing.T) {
	svc := NewPredictionService(predictor.NewRulePredictor(predictor.DefaultRuleConfig()), nil, nil, nil)

	resp, err := svc.Predict(context.Background(), predictionRequest())
	require.NoError(t, err)
	assert.Contains(t, []string{"High Risk", "Low Risk"}, resp.PredictedDelay)
	assert.GreaterOrEqual(t, resp.PredictedDuration, 100.0)
}

func TestPredictionServiceErrors(t *testing.T) {
	failing := func(err error) scheduler.Predictor {
		return scheduler.PredictorFunc(func(ctx context.Context, s models.Surgery) (models.Prediction, error) {
			return models.Prediction{}, err
		})
	}

	cases := []struct {
		name string
		err  error
		code string
	}{
		{"invalid case", fmt.Errorf("%w: negative prep", predictor.ErrInvalidCase), appErrors.ErrValidation.Code},
		{"remote down", fmt.Errorf("%w: status 503", predictor.ErrUnavailable), appErrors.ErrPredictorUnavailable.Code},
		{"deadline", context.DeadlineExceeded, appErrors.ErrTimeout.Code},
		{"other", fmt.Errorf("boom"), appErrors.ErrInternal.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewPredictionService(failing(tc.err), nil, nil, nil)
			_, err := svc.Predict(context.Background(), predictionRequest())
			requireAppError(t, err, tc.code)
		})
	}
}

func TestPredictionServiceValidation(t *testing.T) {
	svc := NewPredictionService(fixedPrediction, nil, nil, nil)

	req := predictionRequest()
	req.InstrumentReady = "maybe"
	_, err := svc.Predict(context.Background(), req)
	requireAppError(t, err, appErrors.ErrValidation.Code)

	req = predictionRequest()
	req.ScheduledStart = "next week"
	_, err = svc.Predict(context.Background(), req)
	requireAppError(t, err, appErrors.ErrValidation.Code)
}
