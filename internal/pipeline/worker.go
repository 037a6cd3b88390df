package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/config"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/enrich"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/metrics"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/parser"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/sink"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/state"
)

// maxLineBytes bounds the scanner buffer; access-log lines beyond this are
// malformed anyway.
const maxLineBytes = 1024 * 1024

// worker processes one static group of files. It owns its parser, engine,
// caches and the sink connection it checks out, so no per-record state is
// shared across workers.
type worker struct {
	id      int
	cfg     *config.Config
	logger  zerolog.Logger
	parser  *parser.LineParser
	engine  *enrich.Engine
	pool    *sink.Pool
	store   *state.Store
	metrics *metrics.Collector

	lastMaintain time.Time
}

func newWorker(id int, cfg *config.Config, pool *sink.Pool, store *state.Store, logger zerolog.Logger) *worker {
	return &worker{
		id:           id,
		cfg:          cfg,
		logger:       logger.With().Int("worker", id).Logger(),
		parser:       parser.New(),
		engine:       enrich.NewEngine(cfg.Enrich, cfg.Cache),
		pool:         pool,
		store:        store,
		metrics:      metrics.Get(),
		lastMaintain: time.Now(),
	}
}

// run processes the group sequentially. Cancellation is honored between
// files; a failure in one file never aborts the group.
func (w *worker) run(ctx context.Context, files []string, results chan<- model.FileResult) error {
	w.metrics.ActiveWorkers.Inc()
	defer w.metrics.ActiveWorkers.Dec()

	for _, path := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fr := w.processFile(ctx, path)
		select {
		case results <- fr:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// processFile streams one file through the parser and engine, flushing
// batches to the sink, and records the outcome in the ledger.
func (w *worker) processFile(ctx context.Context, path string) model.FileResult {
	start := time.Now()
	fr := model.FileResult{File: path}

	done, err := w.store.IsProcessed(path)
	if err != nil {
		fr.Status = model.StatusFailed
		fr.Error = err.Error()
		fr.Duration = time.Since(start)
		return fr
	}
	if done {
		fr.Status = model.StatusCompleted
		fr.Skipped = true
		fr.Duration = time.Since(start)
		w.metrics.FilesSkipped.Inc()
		w.logger.Debug().Str("file", path).Msg("already completed, skipping")
		return fr
	}

	processID, err := w.store.MarkProcessing(path)
	if err != nil {
		fr.Status = model.StatusFailed
		fr.Error = err.Error()
		fr.Duration = time.Since(start)
		return fr
	}

	records, parseErrors, degraded, err := w.streamFile(ctx, path)
	fr.Records = records
	fr.ParseErrors = parseErrors
	fr.Degraded = degraded
	fr.Duration = time.Since(start)

	if err != nil {
		fr.Status = model.StatusFailed
		fr.Error = err.Error()
		w.store.MarkFailed(path, err.Error(), processID)
		w.metrics.FilesFailed.Inc()
		w.logger.Error().Err(err).Str("file", path).Msg("file failed")
		return fr
	}

	fr.Status = model.StatusCompleted
	w.store.MarkCompleted(path, records, processID)
	w.metrics.FilesCompleted.Inc()
	w.logger.Info().
		Str("file", path).
		Int64("records", records).
		Int64("parse_errors", parseErrors).
		Dur("took", fr.Duration).
		Msg("file completed")
	return fr
}

// streamFile reads the file line by line, accumulating batches. Decode
// errors on individual lines are counted, never fatal; only sink failures
// surface as errors.
func (w *worker) streamFile(ctx context.Context, path string) (records, parseErrors, degraded int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, err
	}
	defer f.Close()

	batchSize := w.cfg.Pipeline.BatchSize
	rawRows := make([][]any, 0, batchSize)
	enrichedRows := make([][]any, 0, batchSize)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++

		raw, ok := w.parser.Parse(scanner.Text(), path, lineNum)
		if !ok {
			parseErrors++
			w.metrics.ParseErrors.Inc()
			if parseErrors <= 3 {
				w.logger.Debug().Str("file", path).Int("line", lineNum).Msg("unparseable line")
			}
			continue
		}
		w.metrics.LinesParsed.Inc()

		rec, outcome := w.engine.Enrich(raw)
		if outcome == model.OutcomeDegraded {
			degraded++
			w.metrics.Degraded.Inc()
		}

		rawRows = append(rawRows, sink.RawRow(raw))
		enrichedRows = append(enrichedRows, sink.EnrichedRow(&rec))
		records++

		if len(enrichedRows) >= batchSize {
			if err := w.flush(ctx, rawRows, enrichedRows); err != nil {
				return records, parseErrors, degraded, err
			}
			rawRows = rawRows[:0]
			enrichedRows = enrichedRows[:0]
			w.maintain()
		}
	}
	if err := scanner.Err(); err != nil {
		return records, parseErrors, degraded, fmt.Errorf("reading %s: %w", path, err)
	}

	if len(enrichedRows) > 0 {
		if err := w.flush(ctx, rawRows, enrichedRows); err != nil {
			return records, parseErrors, degraded, err
		}
	}
	return records, parseErrors, degraded, nil
}

// flush writes the raw and enriched batches over a pooled connection. On
// batch failure it retries once through the row-at-a-time path before
// giving up on the file.
func (w *worker) flush(ctx context.Context, rawRows, enrichedRows [][]any) error {
	s, err := w.pool.Get(ctx)
	if err != nil {
		return err
	}
	defer w.pool.Put(s)

	start := time.Now()
	defer func() {
		w.metrics.FlushDuration.Observe(time.Since(start).Seconds())
	}()

	if err := w.insertWithFallback(ctx, s, w.cfg.Sink.EnrichedTable, sink.EnrichedColumns, enrichedRows); err != nil {
		w.metrics.BatchesFlushed.WithLabelValues("error").Inc()
		return fmt.Errorf("enriched batch: %w", err)
	}
	w.metrics.RecordsWritten.WithLabelValues(w.cfg.Sink.EnrichedTable).Add(float64(len(enrichedRows)))

	if err := w.insertWithFallback(ctx, s, w.cfg.Sink.RawTable, sink.RawColumns, rawRows); err != nil {
		w.metrics.BatchesFlushed.WithLabelValues("error").Inc()
		return fmt.Errorf("raw batch: %w", err)
	}
	w.metrics.RecordsWritten.WithLabelValues(w.cfg.Sink.RawTable).Add(float64(len(rawRows)))

	w.metrics.BatchesFlushed.WithLabelValues("ok").Inc()
	return nil
}

func (w *worker) insertWithFallback(ctx context.Context, s sink.Sink, table string, columns []string, rows [][]any) error {
	err := s.Insert(ctx, table, columns, rows)
	if err == nil {
		return nil
	}
	w.logger.Warn().Err(err).Str("table", table).Int("rows", len(rows)).Msg("batch insert failed, retrying row by row")

	written, simpleErr := sink.InsertSimple(ctx, s, table, columns, rows)
	if simpleErr != nil {
		return fmt.Errorf("batch failed (%v), simple path failed after %d rows: %w", err, written, simpleErr)
	}
	return nil
}

// maintain runs the time-based cache-pruning and GC hook. Called at batch
// boundaries, never per line.
func (w *worker) maintain() {
	if time.Since(w.lastMaintain) < w.cfg.Pipeline.MaintainEvery {
		return
	}
	w.lastMaintain = time.Now()
	w.engine.PruneCaches()
	runtime.GC()
	w.logger.Debug().Str("caches", w.engine.CacheStats()).Msg("worker maintenance")
}
