package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

const scheduledStartLayout = "2006-01-02 15:04:05"

// RemotePredictor calls an external model service exposing POST /predict.
type RemotePredictor struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

type remoteRequest struct {
	PatientAge       int     `json:"patient_age"`
	BMI              float64 `json:"bmi"`
	SurgeryType      string  `json:"surgery_type"`
	Surgeon          string  `json:"surgeon"`
	Anesthesiologist string  `json:"anesthesiologist"`
	Nurse            string  `json:"nurse"`
	DayOfWeek        string  `json:"day_of_week"`
	TimePreference   string  `json:"time_preference"`
	PreOpPrepTime    float64 `json:"pre_op_prep_time"`
	TransferToORTime float64 `json:"transfer_to_or_time"`
	AnesthesiaTime   float64 `json:"anesthesia_time"`
	PositioningTime  float64 `json:"positioning_time"`
	Comorbidities    string  `json:"comorbidities"`
	InstrumentReady  string  `json:"instrument_ready"`
	PACUBedReady     string  `json:"pacu_bed_ready"`
	ScheduledStart   string  `json:"scheduled_start"`
}

type remoteResponse struct {
	DelayProbability  float64 `json:"delay_probability"`
	PredictedDelay    string  `json:"predicted_delay"`
	PredictedDuration float64 `json:"predicted_duration"`
	DurationRange     string  `json:"duration_range"`
}

// NewRemotePredictor targets baseURL + "/predict".
func NewRemotePredictor(baseURL string, timeout time.Duration, logger *zap.Logger) *RemotePredictor {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemotePredictor{
		endpoint: strings.TrimRight(baseURL, "/") + "/predict",
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Predict implements scheduler.Predictor.
func (p *RemotePredictor) Predict(ctx context.Context, s models.Surgery) (models.Prediction, error) {
	body, err := json.Marshal(toRemoteRequest(s))
	if err != nil {
		return models.Prediction{}, fmt.Errorf("encode predict request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.Prediction{}, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.logger.Warn("predictor returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("case_id", s.ID),
			zap.ByteString("body", snippet),
		)
		return models.Prediction{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Prediction{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	p.logger.Debug("remote prediction", zap.String("case_id", s.ID), zap.Duration("latency", time.Since(start)))

	low, high := parseRange(out.DurationRange, out.PredictedDuration)
	return models.Prediction{
		DelayProbability:         out.DelayProbability,
		DelayRisk:                models.DelayRisk(out.PredictedDelay),
		EstimatedDurationMinutes: out.PredictedDuration,
		DurationLow:              low,
		DurationHigh:             high,
	}, nil
}

func toRemoteRequest(s models.Surgery) remoteRequest {
	return remoteRequest{
		PatientAge:       s.PatientAge,
		BMI:              s.BMI,
		SurgeryType:      s.SurgeryType,
		Surgeon:          s.Surgeon,
		Anesthesiologist: s.Anesthesiologist,
		Nurse:            s.Nurse,
		DayOfWeek:        s.DayOfWeek,
		TimePreference:   s.TimePreference,
		PreOpPrepTime:    s.PreOpPrepMinutes,
		TransferToORTime: s.TransferMinutes,
		AnesthesiaTime:   s.AnesthesiaMinutes,
		PositioningTime:  s.PositioningMinutes,
		Comorbidities:    s.Comorbidities,
		InstrumentReady:  yesNo(s.InstrumentReady),
		PACUBedReady:     yesNo(s.PACUBedReady),
		ScheduledStart:   s.ScheduledStart.Format(scheduledStartLayout),
	}
}

// parseRange reads the "low - high" string the model service returns. A
// missing or malformed range collapses to the point estimate.
func parseRange(raw string, point float64) (float64, float64) {
	parts := strings.SplitN(raw, " - ", 2)
	if len(parts) != 2 {
		return point, point
	}
	low, errLow := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	high, errHigh := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLow != nil || errHigh != nil {
		return point, point
	}
	return low, high
}

func yesNo(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}
