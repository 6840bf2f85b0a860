// Package predictor provides duration and delay-risk estimators for the
// scheduling pass.
package predictor

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/or-scheduler-api/internal/scheduler"
	"github.com/noah-isme/or-scheduler-api/pkg/config"
)

var (
	// ErrInvalidCase rejects inputs no estimate can be made for.
	ErrInvalidCase = errors.New("invalid case for prediction")
	// ErrUnavailable marks a remote model that could not be reached or answered badly.
	ErrUnavailable = errors.New("predictor unavailable")
)

// New selects the predictor backend from configuration and wraps it with the
// cache when one is supplied.
func New(cfg config.PredictorConfig, cache Cache, logger *zap.Logger) (scheduler.Predictor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var base scheduler.Predictor
	switch cfg.Mode {
	case "", config.PredictorModeRules:
		rc := DefaultRuleConfig()
		if cfg.HighRiskThreshold > 0 {
			rc.HighRiskThreshold = cfg.HighRiskThreshold
		}
		if cfg.DurationRMSE > 0 {
			rc.DurationRMSE = cfg.DurationRMSE
		}
		base = NewRulePredictor(rc)
	case config.PredictorModeRemote:
		if cfg.URL == "" {
			return nil, fmt.Errorf("predictor mode %q requires PREDICTOR_URL", cfg.Mode)
		}
		base = NewRemotePredictor(cfg.URL, cfg.Timeout, logger)
	default:
		return nil, fmt.Errorf("unknown predictor mode %q", cfg.Mode)
	}

	if cache == nil || !cfg.CacheEnabled {
		return base, nil
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return NewCachedPredictor(base, cache, ttl, logger), nil
}
