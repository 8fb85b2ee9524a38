package models

import "time"

// SystemMetrics is the counter summary returned by the health endpoint.
// CacheHitRatio is a percentage.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Transitions              uint64    `json:"transitions"`
	TransitionFailures       uint64    `json:"transition_failures"`
	NotificationsCreated     uint64    `json:"notifications_created"`
	CrossSystemFailures      uint64    `json:"cross_system_failures"`
	StaleRefreshes           uint64    `json:"stale_refreshes"`
	Goroutines               int       `json:"goroutines"`
	UptimeSeconds            int64     `json:"uptime_seconds"`
	GeneratedAt              time.Time `json:"generated_at"`
}
