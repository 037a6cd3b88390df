package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/config"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/sink"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/state"
)

// Orchestrator coordinates discovery, the worker pool, the ledger and the
// sink connection pool.
type Orchestrator struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *state.Store
	pool   *sink.Pool

	// passActive is the single-flight guard: the monitor and manual
	// invocations never run a processing pass concurrently.
	passActive atomic.Bool

	scanMu    sync.Mutex
	lastScan  time.Time
	lastFiles []string
}

// New builds the orchestrator. Establishing zero sink connections is fatal;
// everything else degrades.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Orchestrator, error) {
	pool, err := sink.NewPool(ctx, cfg.Sink, logger)
	if err != nil {
		return nil, fmt.Errorf("starting sink pool: %w", err)
	}

	return &Orchestrator{
		cfg:    cfg,
		logger: logger.With().Str("component", "orchestrator").Logger(),
		store:  state.Open(cfg.State.Path, cfg.State.CheckpointEvery, logger),
		pool:   pool,
	}, nil
}

// Close releases the sink pool and flushes the ledger.
func (o *Orchestrator) Close(ctx context.Context) error {
	if err := o.store.Flush(); err != nil && !o.store.InMemoryOnly() {
		o.logger.Warn().Err(err).Msg("final ledger flush failed")
	}
	return o.pool.Close(ctx)
}

// ProcessDate runs one pass over a single date directory.
func (o *Orchestrator) ProcessDate(ctx context.Context, date string) (model.RunSummary, error) {
	return o.runPass(ctx, date)
}

// ProcessAll runs one pass over every unprocessed file under the root.
func (o *Orchestrator) ProcessAll(ctx context.Context) (model.RunSummary, error) {
	return o.runPass(ctx, "")
}

// Status returns the ledger aggregate.
func (o *Orchestrator) Status() state.Summary {
	return o.store.Summarize()
}

// ResetFailed returns failed ledger entries to pending. Empty date means
// all dates.
func (o *Orchestrator) ResetFailed(date string) int {
	n := o.store.ResetFailed(date)
	o.logger.Info().Int("reset", n).Str("date", date).Msg("failed entries reset")
	return n
}

// runPass discovers files and processes them across the worker pool. Only
// one pass runs at a time; an overlapping call returns a noop summary.
func (o *Orchestrator) runPass(ctx context.Context, date string) (model.RunSummary, error) {
	var summary model.RunSummary
	if !o.passActive.CompareAndSwap(false, true) {
		o.logger.Debug().Msg("pass already in flight, skipping")
		summary.Status = "noop"
		return summary, nil
	}
	defer o.passActive.Store(false)

	start := time.Now()
	files, err := o.scan(date)
	if err != nil {
		return summary, fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		summary.Status = "noop"
		summary.Duration = time.Since(start)
		return summary, nil
	}

	groups := partition(files, o.cfg.Pipeline.Workers)
	o.logger.Info().
		Int("files", len(files)).
		Int("workers", len(groups)).
		Str("date", date).
		Msg("processing pass started")

	results := make(chan model.FileResult, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	for i, group := range groups {
		w := newWorker(i, o.cfg, o.pool, o.store, o.logger)
		group := group
		g.Go(func() error {
			return w.run(gCtx, group, results)
		})
	}

	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		for fr := range results {
			summary.Add(fr)
		}
	}()

	err = g.Wait()
	close(results)
	<-collectDone

	summary.Duration = time.Since(start)
	summary.Finalize()

	if err != nil && err != context.Canceled {
		return summary, err
	}
	o.logger.Info().
		Str("status", summary.Status).
		Int("processed", summary.ProcessedFiles).
		Int("skipped", summary.SkippedFiles).
		Int("failed", summary.FailedFiles).
		Int64("records", summary.TotalRecords).
		Dur("took", summary.Duration).
		Msg("processing pass finished")
	return summary, nil
}

// scan discovers files, throttled so quickly repeated passes reuse the
// previous listing.
func (o *Orchestrator) scan(date string) ([]string, error) {
	o.scanMu.Lock()
	defer o.scanMu.Unlock()

	// Date-scoped scans are cheap and explicit; only full scans throttle.
	if date == "" && time.Since(o.lastScan) < o.cfg.Pipeline.ScanInterval && o.lastFiles != nil {
		return o.lastFiles, nil
	}

	files, err := discover(o.cfg.Input, date)
	if err != nil {
		return nil, err
	}
	if date == "" {
		o.lastScan = time.Now()
		o.lastFiles = files
	}
	return files, nil
}
