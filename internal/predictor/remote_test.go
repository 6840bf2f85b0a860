package predictor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

func TestRemotePredictorRoundTrip(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"delay_probability":0.62,"predicted_delay":"High Risk","predicted_duration":118.5,"duration_range":"103.2 - 133.8"}`))
	}))
	defer srv.Close()

	p := NewRemotePredictor(srv.URL+"/", time.Second, nil)
	got, err := p.Predict(context.Background(), hipReplacement())
	require.NoError(t, err)

	assert.Equal(t, models.Prediction{
		DelayProbability:         0.62,
		DelayRisk:                models.DelayRiskHigh,
		EstimatedDurationMinutes: 118.5,
		DurationLow:              103.2,
		DurationHigh:             133.8,
	}, got)
	assert.Equal(t, "Hip Replacement", received["surgery_type"])
	assert.Equal(t, "Y", received["instrument_ready"])
	assert.Equal(t, "2025-03-10 09:00:00", received["scheduled_start"])
	assert.EqualValues(t, 45, received["pre_op_prep_time"])
}

func TestRemotePredictorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewRemotePredictor(srv.URL, time.Second, nil).Predict(context.Background(), hipReplacement())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "500")
}

func TestRemotePredictorBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewRemotePredictor(srv.URL, time.Second, nil).Predict(context.Background(), hipReplacement())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRemotePredictorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemotePredictor(url, 200*time.Millisecond, nil).Predict(context.Background(), hipReplacement())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseRange(t *testing.T) {
	low, high := parseRange("90.5 - 120", 100)
	assert.Equal(t, 90.5, low)
	assert.Equal(t, 120.0, high)

	low, high = parseRange("", 100)
	assert.Equal(t, 100.0, low)
	assert.Equal(t, 100.0, high)

	low, high = parseRange("a - b", 80)
	assert.Equal(t, 80.0, low)
	assert.Equal(t, 80.0, high)
}
