package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/quayside-labs/deskrag/internal/domain"
	"github.com/quayside-labs/deskrag/internal/extract"
	"github.com/quayside-labs/deskrag/internal/telemetry"
)

// DocumentFile is one raw document discovered by a source.
type DocumentFile struct {
	Source string
	Kind   domain.SourceKind
}

// DocumentSource lists and reads raw documents for ingestion.
type DocumentSource interface {
	List(ctx context.Context) ([]DocumentFile, error)
	Read(ctx context.Context, source string) ([]byte, error)
}

// CorpusStore persists and reloads the chunked corpus.
type CorpusStore interface {
	Write(chunks []domain.Chunk) error
	Load() ([]domain.Chunk, error)
}

// MetricsRecorder appends observability events.
type MetricsRecorder interface {
	Record(event domain.MetricEvent) error
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	Documents int
	Chunks    int
	BytesRead int64
	Sources   []string
}

// IngestService rebuilds the corpus from the document source and publishes
// a fresh retriever. Runs are serialized by a mutex; the handle swap at the
// end is the only point where readers observe the new corpus.
type IngestService struct {
	mu       sync.Mutex
	source   DocumentSource
	corpus   CorpusStore
	metrics  MetricsRecorder
	handle   *RetrieverHandle
	chunkCfg ChunkConfig
	retCfg   RetrieverConfig
}

// NewIngestService creates a new IngestService. metrics may be nil.
func NewIngestService(
	source DocumentSource,
	corpus CorpusStore,
	metrics MetricsRecorder,
	handle *RetrieverHandle,
	chunkCfg ChunkConfig,
	retCfg RetrieverConfig,
) *IngestService {
	return &IngestService{
		source:   source,
		corpus:   corpus,
		metrics:  metrics,
		handle:   handle,
		chunkCfg: chunkCfg,
		retCfg:   retCfg,
	}
}

// Run executes one full ingestion: discover documents, extract and
// normalize their text, chunk, persist the corpus, and swap the retriever.
// Documents that fail to read or parse are logged and skipped; a run that
// yields no documents at all fails with domain.ErrCorpusEmpty.
func (s *IngestService) Run(ctx context.Context) (*IngestStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "IngestService.Run", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	start := time.Now()

	files, err := s.source.List(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	// Corpus order must not depend on filesystem or bucket listing quirks.
	sort.Slice(files, func(i, j int) bool { return files[i].Source < files[j].Source })

	stats := &IngestStats{}
	var chunks []domain.Chunk
	for _, f := range files {
		data, err := s.source.Read(ctx, f.Source)
		if err != nil {
			log.Printf("ingest: skipping %s: %v", f.Source, err)
			continue
		}

		text, err := extract.Text(f.Kind, data)
		if err != nil {
			log.Printf("ingest: skipping %s: %v", f.Source, err)
			continue
		}

		doc := domain.Document{Source: f.Source, Kind: f.Kind, Text: extract.Normalize(text)}
		if err := domain.ValidateDocument(&doc); err != nil {
			log.Printf("ingest: skipping %s: %v", f.Source, err)
			continue
		}
		docChunks := ChunkDocument(doc.Source, doc.Text, s.chunkCfg)

		stats.Documents++
		stats.BytesRead += int64(len(data))
		stats.Sources = append(stats.Sources, f.Source)
		stats.Chunks += len(docChunks)
		chunks = append(chunks, docChunks...)
	}

	if stats.Documents == 0 {
		span.SetError(domain.ErrCorpusEmpty)
		return nil, domain.ErrCorpusEmpty
	}

	if err := s.corpus.Write(chunks); err != nil {
		span.SetError(err)
		return nil, err
	}
	s.handle.Swap(NewRetriever(chunks, s.retCfg))

	s.recordMetric(domain.MetricEvent{
		Event:     domain.EventIngest,
		LatencyMS: time.Since(start).Milliseconds(),
		Extra: map[string]any{
			"documents":  stats.Documents,
			"chunks":     stats.Chunks,
			"bytes_read": stats.BytesRead,
		},
	})

	log.Printf("ingest: %d documents, %d chunks, %d bytes in %s",
		stats.Documents, stats.Chunks, stats.BytesRead, time.Since(start).Round(time.Millisecond))
	return stats, nil
}

// LoadExisting publishes the retriever for a previously persisted corpus.
// Returns domain.ErrCorpusMissing when no corpus file exists yet; callers
// may treat that as a cold start rather than a failure.
func (s *IngestService) LoadExisting() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks, err := s.corpus.Load()
	if err != nil {
		return err
	}
	s.handle.Swap(NewRetriever(chunks, s.retCfg))
	log.Printf("ingest: loaded existing corpus with %d chunks", len(chunks))
	return nil
}

func (s *IngestService) recordMetric(event domain.MetricEvent) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.Record(event); err != nil {
		log.Printf("metrics: failed to record %s event: %v", event.Event, err)
	}
}
