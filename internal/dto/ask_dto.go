package dto

import "time"

type AskRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// Server-sent event payloads for POST /api/ask.

type AskMetaEvent struct {
	Grounded bool     `json:"grounded"`
	Sources  []string `json:"sources"`
}

type AskTokenEvent struct {
	Text string `json:"text"`
}

type AskDoneEvent struct {
	Grounded bool `json:"grounded"`
}

type AskErrorEvent struct {
	Message string `json:"message"`
}

type LastIngestResponse struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Details    map[string]interface{} `json:"details"`
}

type HealthResponse struct {
	Status         string              `json:"status"`
	Passages       int64               `json:"passages"`
	StoreReachable bool                `json:"store_reachable"`
	ModelReachable bool                `json:"model_reachable"`
	LastIngest     *LastIngestResponse `json:"last_ingest,omitempty"`
}
