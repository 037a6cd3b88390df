package sink

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/config"
)

// Pool is a fixed-size pool of sink connections. Hand-off goes through a
// buffered channel so checkout and return need no further locking.
type Pool struct {
	handles chan Sink
	size    int
}

// NewPool builds and starts size sinks. Startup is all-or-nothing: if no
// connection can be established the pipeline cannot run.
func NewPool(ctx context.Context, cfg config.SinkConfig, logger zerolog.Logger) (*Pool, error) {
	p := &Pool{
		handles: make(chan Sink, cfg.Connections),
		size:    cfg.Connections,
	}

	started := 0
	var lastErr error
	for i := 0; i < cfg.Connections; i++ {
		s, err := New(cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := s.Start(ctx); err != nil {
			lastErr = err
			logger.Warn().Err(err).Int("conn", i).Msg("sink connection failed to start")
			continue
		}
		p.handles <- s
		started++
	}
	if started == 0 {
		return nil, fmt.Errorf("no sink connections available: %w", lastErr)
	}
	return p, nil
}

// NewStaticPool wraps already started sinks. Used by tests and dry runs
// where the pool should not dial anything.
func NewStaticPool(sinks ...Sink) *Pool {
	p := &Pool{
		handles: make(chan Sink, len(sinks)),
		size:    len(sinks),
	}
	for _, s := range sinks {
		p.handles <- s
	}
	return p
}

// Get checks a sink out of the pool, blocking until one is free or the
// context is done.
func (p *Pool) Get(ctx context.Context) (Sink, error) {
	select {
	case s := <-p.handles:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns a sink to the pool.
func (p *Pool) Put(s Sink) {
	p.handles <- s
}

// Close stops every pooled sink. Callers must have returned all handles.
func (p *Pool) Close(ctx context.Context) error {
	var firstErr error
	for {
		select {
		case s := <-p.handles:
			if err := s.Stop(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			return firstErr
		}
	}
}
