package models

import "time"

// SystemMetrics is a lightweight snapshot served next to the health probe.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	BackendCalls             uint64    `json:"backend_calls"`
	BackendErrors            uint64    `json:"backend_errors"`
	RelayCalls               uint64    `json:"relay_calls"`
	RelayFailures            uint64    `json:"relay_failures"`
	OpenConversations        int       `json:"open_conversations"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
