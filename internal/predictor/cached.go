package predictor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/or-scheduler-api/internal/models"
	"github.com/noah-isme/or-scheduler-api/internal/scheduler"
)

const cacheKeyPrefix = "prediction:"

// Cache is the subset of the cache service the decorator needs. Get reports a
// hit with its boolean result.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedPredictor memoises another predictor. Cache failures fall through to
// the wrapped predictor and never fail the call.
type CachedPredictor struct {
	next   scheduler.Predictor
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedPredictor wraps next.
func NewCachedPredictor(next scheduler.Predictor, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedPredictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedPredictor{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Predict implements scheduler.Predictor.
func (p *CachedPredictor) Predict(ctx context.Context, s models.Surgery) (models.Prediction, error) {
	key := CacheKey(s)

	var cached models.Prediction
	hit, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		p.logger.Debug("prediction cache read failed", zap.String("case_id", s.ID), zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	prediction, err := p.next.Predict(ctx, s)
	if err != nil {
		return models.Prediction{}, err
	}
	if err := p.cache.Set(ctx, key, prediction, p.ttl); err != nil {
		p.logger.Debug("prediction cache write failed", zap.String("case_id", s.ID), zap.Error(err))
	}
	return prediction, nil
}

// CacheKey hashes the attributes a prediction depends on. The case ID and any
// recorded total OR time are left out, so identical cases share an entry. The
// start keeps its zone offset since predictors read the local hour.
func CacheKey(s models.Surgery) string {
	s.ID = ""
	s.TotalORMinutes = nil
	raw, _ := json.Marshal(s)
	sum := sha256.Sum256(raw)
	return cacheKeyPrefix + hex.EncodeToString(sum[:16])
}
