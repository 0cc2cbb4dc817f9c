package jobs

import (
	"context"
	"log"
	"time"
)

// Reindexer rebuilds the corpus and republishes the retriever.
type Reindexer interface {
	Reindex(ctx context.Context) error
}

// ReindexFunc adapts a function to the Reindexer interface.
type ReindexFunc func(ctx context.Context) error

func (f ReindexFunc) Reindex(ctx context.Context) error { return f(ctx) }

// Worker periodically re-ingests the document tree so corpus changes made
// outside the API (rsync drops, bucket syncs) show up without a manual
// ingest call.
type Worker struct {
	reindexer Reindexer
	interval  time.Duration
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(reindexer Reindexer, interval time.Duration) *Worker {
	return &Worker{
		reindexer: reindexer,
		interval:  interval,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start begins the worker's reindex loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("reindex worker started with interval: %v", w.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("reindex worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("reindex worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.reindexer.Reindex(ctx); err != nil {
				log.Printf("reindex worker: %v", err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("reindex worker shutdown complete")
}
