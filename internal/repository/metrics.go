package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quayside-labs/deskrag/internal/domain"
)

// metricRecord is the JSONL serialization of one metric event.
type metricRecord struct {
	TS        string         `json:"ts"`
	Event     string         `json:"event"`
	LatencyMS int64          `json:"latency_ms"`
	Q         string         `json:"q,omitempty"`
	K         int            `json:"k,omitempty"`
	Route     string         `json:"route,omitempty"`
	UsedTools []string       `json:"used_tools,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MetricsRepository appends observability events to a JSONL file. The file
// is opened per write so external rotation never strands a handle.
type MetricsRepository struct {
	mu   sync.Mutex
	path string
}

func NewMetricsRepository(path string) *MetricsRepository {
	return &MetricsRepository{path: path}
}

// Record appends one event. Concurrent calls are serialized so lines never
// interleave.
func (r *MetricsRepository) Record(event domain.MetricEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	ts := event.TS
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec := metricRecord{
		TS:        ts.UTC().Format(time.RFC3339Nano),
		Event:     event.Event,
		LatencyMS: event.LatencyMS,
		Q:         event.Question,
		K:         event.K,
		Route:     string(event.Route),
		UsedTools: event.UsedTools,
		Extra:     event.Extra,
	}
	if err := json.NewEncoder(f).Encode(rec); err != nil {
		return fmt.Errorf("failed to append metric event: %w", err)
	}
	return nil
}
