// Package watch ingests contract PDFs as they land in the input directory.
//
// Filesystem events from fsnotify mark a file as pending. A file is handed
// to the contract service once it has been quiet for the debounce window.
// A periodic sweep of the directory picks up anything whose events were
// missed, for example files copied in while the watcher was down.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultDebounce = 2 * time.Second
	DefaultRescan   = time.Minute
)

// Config configures a Watcher.
type Config struct {
	Dir      string
	Debounce time.Duration
	Rescan   time.Duration
}

// Watcher feeds new PDFs in a directory to the contract service.
type Watcher struct {
	cfg      Config
	contract driving.ContractService
	ingest   driving.IngestService

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	pending map[string]time.Time
	queue   chan string
	queued  map[string]bool

	// onResult is called after each ingestion attempt; tests hook it.
	onResult func(path string, result *domain.UploadResult, err error)
}

// New creates a watcher. ingest may be nil, in which case every swept file
// is handed to the contract service and its pipeline skips finished stages.
func New(cfg Config, contract driving.ContractService, ingest driving.IngestService) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Rescan <= 0 {
		cfg.Rescan = DefaultRescan
	}
	return &Watcher{
		cfg:      cfg,
		contract: contract,
		ingest:   ingest,
		pending:  make(map[string]time.Time),
		queue:    make(chan string, 64),
		queued:   make(map[string]bool),
	}
}

// OnResult registers a callback invoked after every ingestion attempt.
// Must be called before Start.
func (w *Watcher) OnResult(fn func(path string, result *domain.UploadResult, err error)) {
	w.onResult = fn
}

// Start watches the directory. It blocks until ctx is cancelled or Stop is
// called, and returns nil on Stop.
func (w *Watcher) Start(ctx context.Context) error {
	if w.contract == nil {
		return errors.New("contract service not configured")
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("creating %s: %w", w.cfg.Dir, err)
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.markStopped()
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		w.markStopped()
		return fmt.Errorf("watching %s: %w", w.cfg.Dir, err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.work(workerCtx)
	}()

	logger.Info("watching %s for contracts", w.cfg.Dir)
	return w.run(ctx, fsw, cancel)
}

// Stop shuts the watcher down and waits for the in-flight ingestion.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

func (w *Watcher) markStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// run is the event loop.
func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, cancelWork context.CancelFunc) error {
	w.Scan(ctx)

	settle := time.NewTicker(w.settleInterval())
	defer settle.Stop()
	rescan := time.NewTicker(w.cfg.Rescan)
	defer rescan.Stop()

	for {
		select {
		case <-ctx.Done():
			w.markStopped()
			w.wg.Wait()
			return ctx.Err()
		case <-w.stopCh:
			cancelWork()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		case now := <-settle.C:
			w.flushSettled(now)
		case <-rescan.C:
			w.Scan(ctx)
		}
	}
}

func (w *Watcher) settleInterval() time.Duration {
	interval := w.cfg.Debounce / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}

// handleEvent marks a PDF as pending on create, write or rename-into.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !isPDF(event.Name) {
		return
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.mu.Lock()
		delete(w.pending, event.Name)
		w.mu.Unlock()
		return
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		logger.Debug("watch: %s %s", event.Op, event.Name)
		w.mu.Lock()
		w.pending[event.Name] = time.Now()
		w.mu.Unlock()
	}
}

// flushSettled queues pending files that have been quiet for the debounce
// window.
func (w *Watcher) flushSettled(now time.Time) {
	w.mu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.cfg.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(ready)
	for _, path := range ready {
		w.enqueue(path)
	}
}

// Scan sweeps the directory and queues every PDF without stored chunks.
// It returns the number of files queued.
func (w *Watcher) Scan(ctx context.Context) int {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		logger.Warn("watch: reading %s: %v", w.cfg.Dir, err)
		return 0
	}

	queued := 0
	for _, entry := range entries {
		if entry.IsDir() || !isPDF(entry.Name()) {
			continue
		}
		if w.ingest != nil {
			done, err := w.ingest.IsProcessed(ctx, entry.Name())
			if err != nil {
				logger.Warn("watch: checking %s: %v", entry.Name(), err)
				continue
			}
			if done {
				continue
			}
		}
		if w.enqueue(filepath.Join(w.cfg.Dir, entry.Name())) {
			queued++
		}
	}
	return queued
}

// enqueue hands path to the worker unless it is already waiting.
func (w *Watcher) enqueue(path string) bool {
	w.mu.Lock()
	if w.queued[path] {
		w.mu.Unlock()
		return false
	}
	w.queued[path] = true
	w.mu.Unlock()

	select {
	case w.queue <- path:
		return true
	default:
		// Full queue: the next sweep picks the file up again.
		w.mu.Lock()
		delete(w.queued, path)
		w.mu.Unlock()
		return false
	}
}

// work ingests queued files one at a time.
func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			w.process(ctx, path)
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	defer func() {
		w.mu.Lock()
		delete(w.queued, path)
		w.mu.Unlock()
	}()

	if _, err := os.Stat(path); err != nil {
		logger.Debug("watch: %s vanished before ingestion", path)
		return
	}

	log := logger.With(logger.Fields{"file": filepath.Base(path)})
	log.Info("ingesting contract")

	result, err := w.contract.Ingest(ctx, path)
	if err != nil {
		log.WithError(err).Error("ingestion failed")
	} else {
		log.WithField("document_id", result.DocumentID).
			WithField("variables", len(result.ProcessingResults)).
			Info("contract ingested")
	}

	if w.onResult != nil {
		w.onResult(path, result, err)
	}
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
