package domain

import "time"

// Metric event names
const (
	EventAnswer  = "answer"
	EventIngest  = "ingest"
	EventLLMCall = "llm_call"
)

// MetricEvent is one append-only observability record. The service emits one
// per served answer, one per generator call and one per ingest run.
type MetricEvent struct {
	TS        time.Time
	Event     string
	LatencyMS int64
	Question  string
	K         int
	Route     Route
	UsedTools []string
	Extra     map[string]any
}
