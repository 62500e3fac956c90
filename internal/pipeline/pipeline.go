// Package pipeline drives each recording exactly once through
// transcription. A single worker drains a bounded queue; the backlog scan
// and the filesystem change feed enqueue concurrently, deduplicated against
// the in-flight set and the durable ledger.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/franz/memoscribe/internal/catalog"
	"github.com/franz/memoscribe/internal/config"
	"github.com/franz/memoscribe/internal/ledger"
	"github.com/franz/memoscribe/internal/memo"
	"github.com/franz/memoscribe/internal/metadata"
	"github.com/franz/memoscribe/internal/transcribe"
	"github.com/franz/memoscribe/internal/util"
)

// Outcome classifies how a dequeued item finished
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeSkipped
	OutcomeAbandoned
	OutcomeFailed
)

// Stats counts item outcomes for one pipeline run
type Stats struct {
	Done      int64
	Skipped   int64
	Abandoned int64
	Failed    int64
}

const queueCapacity = 1024

// Pipeline owns the work queue and the transient dedup state. Durable
// completion state lives in the ledger.
type Pipeline struct {
	cfg   *config.Settings
	cache *metadata.Cache
	led   *ledger.Store
	tr    transcribe.Transcriber

	queue   chan string
	pending sync.WaitGroup // open queue items
	worker  sync.WaitGroup

	mu        sync.Mutex
	inflight  map[string]struct{}
	completed map[string]struct{}

	done      atomic.Int64
	skipped   atomic.Int64
	abandoned atomic.Int64
	failed    atomic.Int64

	// OnFinished, when set, is called from the worker after every dequeued
	// item. Used for progress reporting.
	OnFinished func(id string, outcome Outcome)
}

// New builds a pipeline and seeds the completed set from the ledger so work
// finished in earlier runs is never repeated
func New(cfg *config.Settings, cache *metadata.Cache, led *ledger.Store, tr transcribe.Transcriber) (*Pipeline, error) {
	known, err := led.KnownIDs()
	if err != nil {
		return nil, err
	}

	completed := make(map[string]struct{}, len(known))
	for id := range known {
		completed[id] = struct{}{}
	}

	return &Pipeline{
		cfg:       cfg,
		cache:     cache,
		led:       led,
		tr:        tr,
		queue:     make(chan string, queueCapacity),
		inflight:  make(map[string]struct{}),
		completed: completed,
	}, nil
}

// Start launches the worker. The worker exits once the context is cancelled
// and any in-flight item has finished.
func (p *Pipeline) Start(ctx context.Context) {
	p.worker.Add(1)
	go func() {
		defer p.worker.Done()
		p.workerLoop(ctx)
	}()
}

// StopAndWait blocks until the worker has exited. Call after cancelling the
// context passed to Start; the ledger must be closed only after this
// returns.
func (p *Pipeline) StopAndWait() {
	p.worker.Wait()
}

// Drain blocks until every currently enqueued item has been processed
func (p *Pipeline) Drain() {
	p.pending.Wait()
}

// Stats returns the outcome counters for this run
func (p *Pipeline) Stats() Stats {
	return Stats{
		Done:      p.done.Load(),
		Skipped:   p.skipped.Load(),
		Abandoned: p.abandoned.Load(),
		Failed:    p.failed.Load(),
	}
}

// Enqueue submits a file path for processing. It never blocks on the
// worker: the call is a no-op when the identifier is already completed or
// in flight, and a full queue drops the item (it stays eligible for the
// next rescan). Returns true when the item was queued.
func (p *Pipeline) Enqueue(path string) bool {
	id := memo.IDFromPath(path)
	if id == "" {
		return false
	}

	p.mu.Lock()
	if _, ok := p.completed[id]; ok {
		p.mu.Unlock()
		return false
	}
	if _, ok := p.inflight[id]; ok {
		p.mu.Unlock()
		return false
	}
	p.inflight[id] = struct{}{}
	p.mu.Unlock()

	p.pending.Add(1)
	select {
	case p.queue <- path:
		util.DebugLog("Enqueued %s", id)
		return true
	default:
		p.pending.Done()
		p.mu.Lock()
		delete(p.inflight, id)
		p.mu.Unlock()
		util.WarnLog("Queue full, dropping %s (will be picked up on next scan)", id)
		return false
	}
}

// EnqueueBacklog refreshes metadata, scans the recordings directory, and
// enqueues every unprocessed recording ordered by the configured policy.
// Returns the number of items queued.
func (p *Pipeline) EnqueueBacklog() (int, error) {
	// Permission failures here degrade to filesystem-only records; the
	// warning is logged by the cache.
	_ = p.cache.Refresh()

	dirEntries, err := os.ReadDir(p.cfg.RecordingsDir)
	if err != nil {
		return 0, err
	}

	snapshot := p.cache.Snapshot()
	var backlog []memo.Recording
	for _, de := range dirEntries {
		if de.IsDir() || !memo.IsAudioFile(de.Name()) {
			continue
		}
		path := filepath.Join(p.cfg.RecordingsDir, de.Name())
		id := memo.IDFromPath(path)

		rec, ok := snapshot[id]
		if ok {
			rec.Path = path
		} else {
			rec = memo.Recording{ID: id, Path: path}
		}
		backlog = append(backlog, rec)
	}

	sortBacklog(backlog, p.cfg.Order)

	queued := 0
	for _, rec := range backlog {
		if p.Enqueue(rec.Path) {
			queued++
		}
	}
	return queued, nil
}

// sortBacklog orders recordings by resolved creation time per the policy.
// Unknown creation times sort as the earliest possible instant.
func sortBacklog(backlog []memo.Recording, order catalog.Order) {
	resolved := make(map[string]time.Time, len(backlog))
	for _, rec := range backlog {
		resolved[rec.ID] = rec.ResolveCreatedAt()
	}
	sort.SliceStable(backlog, func(i, j int) bool {
		ti, tj := resolved[backlog[i].ID], resolved[backlog[j].ID]
		if order == catalog.NewestFirst {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})
}

func (p *Pipeline) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-p.queue:
			p.handle(ctx, path)
		}
	}
}

// handle processes one dequeued item, isolating its failures from the
// worker loop
func (p *Pipeline) handle(ctx context.Context, path string) {
	id := memo.IDFromPath(path)
	defer func() {
		p.mu.Lock()
		delete(p.inflight, id)
		p.mu.Unlock()
		p.pending.Done()
	}()

	outcome := p.process(ctx, path)

	switch outcome {
	case OutcomeDone:
		p.done.Add(1)
	case OutcomeSkipped:
		p.skipped.Add(1)
	case OutcomeAbandoned:
		p.abandoned.Add(1)
	case OutcomeFailed:
		p.failed.Add(1)
	}

	if p.OnFinished != nil {
		p.OnFinished(id, outcome)
	}
}
