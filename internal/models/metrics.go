package models

import "time"

// SystemMetrics is a point-in-time summary of the service counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	SchedulePasses           uint64    `json:"schedule_passes"`
	AveragePassDurationMs    float64   `json:"average_pass_duration_ms"`
	CasesPlaced              uint64    `json:"cases_placed"`
	CasesUnplaced            uint64    `json:"cases_unplaced"`
	PredictorFailures        uint64    `json:"predictor_failures"`
	LastUtilization          float64   `json:"last_utilization"`
	PersistenceFailures      uint64    `json:"persistence_failures"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
