package models

import "time"

// SystemMetrics is a point-in-time digest of the instrumentation counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	TransactionCount         uint64    `json:"transaction_count"`
	AverageTransactionMs     float64   `json:"average_transaction_ms"`
	LifecycleConflicts       uint64    `json:"lifecycle_conflicts"`
	EventsDispatched         uint64    `json:"events_dispatched"`
	EventsFailed             uint64    `json:"events_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
