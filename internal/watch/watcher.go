// Package watch re-ingests the corpus when documents under the data
// directory change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quayside-labs/deskrag/internal/domain"
)

// DefaultDebounce is the quiet period after the last event before a
// reindex fires.
const DefaultDebounce = 2 * time.Second

// Reindexer rebuilds the corpus and republishes the retriever.
type Reindexer interface {
	Reindex(ctx context.Context) error
}

// Watcher debounces filesystem events under the data directory and triggers
// one reindex per quiet period, so an rsync drop of twenty files causes one
// rebuild instead of twenty.
type Watcher struct {
	dir       string
	debounce  time.Duration
	reindexer Reindexer
	fs        *fsnotify.Watcher
}

// New creates a new Watcher over dir.
func New(dir string, debounce time.Duration, reindexer Reindexer) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:       dir,
		debounce:  debounce,
		reindexer: reindexer,
		fs:        fsw,
	}, nil
}

// Start watches the tree until ctx is cancelled or the watcher is closed.
// It blocks; run it in its own goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(); err != nil {
		return err
	}
	log.Printf("watch: watching %s (debounce %s)", w.dir, w.debounce)

	var timer *time.Timer
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				pending = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %v", err)
		case <-pending:
			timer = nil
			pending = nil
			if err := w.reindexer.Reindex(ctx); err != nil {
				log.Printf("watch: reindex failed: %v", err)
			}
		}
	}
}

// Close stops the underlying watcher, which unblocks Start.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// relevant reports whether the event should count toward a reindex. New
// directories are added to the watch on the way through, since fsnotify
// does not recurse on its own.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fs.Add(event.Name); err != nil {
				log.Printf("watch: failed to watch %s: %v", event.Name, err)
			}
			return true
		}
	}
	_, ok := domain.KindForPath(event.Name)
	return ok
}

func (w *Watcher) addTree() error {
	err := filepath.WalkDir(w.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.dir && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		return w.fs.Add(p)
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	return nil
}
