// Package sink defines the interface and implementations for batch
// destinations: the ClickHouse warehouse, an Elasticsearch alternate, and a
// stdout sink for dry runs.
package sink

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/config"
)

// Sink is the contract for a batch destination. Implementations receive
// positional rows matching the column list.
type Sink interface {
	// Start initializes the connection. Called once before Insert.
	Start(ctx context.Context) error

	// Insert writes a batch of rows into the named table.
	Insert(ctx context.Context, table string, columns []string, rows [][]any) error

	// Stop flushes and closes the connection.
	Stop(ctx context.Context) error

	// Name returns a unique identifier for this sink kind.
	Name() string
}

// New builds a sink from configuration.
func New(cfg config.SinkConfig, logger zerolog.Logger) (Sink, error) {
	switch cfg.Kind {
	case "clickhouse":
		return NewClickHouse(cfg.ClickHouse, logger), nil
	case "elasticsearch":
		return NewElasticsearch(cfg.Elasticsearch, logger), nil
	case "stdout":
		return NewStdout(), nil
	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Kind)
	}
}

// InsertSimple is the alternate write path used after a batch failure: rows
// are written one at a time so a single poisonous row cannot take down the
// whole batch. It returns the first error together with how many rows made
// it through.
func InsertSimple(ctx context.Context, s Sink, table string, columns []string, rows [][]any) (int, error) {
	for i, row := range rows {
		if err := s.Insert(ctx, table, columns, [][]any{row}); err != nil {
			return i, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return len(rows), nil
}
