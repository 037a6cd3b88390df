package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/config"
)

// Opener creates the ClickHouse connection. Swappable for tests.
type Opener func(cfg config.ClickHouseConfig) (driver.Conn, error)

// ClickHouseOption configures the ClickHouse sink.
type ClickHouseOption func(*ClickHouse)

// WithOpener sets a custom connection opener, primarily for tests.
func WithOpener(o Opener) ClickHouseOption {
	return func(c *ClickHouse) {
		c.opener = o
	}
}

// ClickHouse writes batches to the reference warehouse over the native
// protocol.
type ClickHouse struct {
	cfg    config.ClickHouseConfig
	logger zerolog.Logger
	opener Opener
	conn   driver.Conn
}

// NewClickHouse creates the warehouse sink.
func NewClickHouse(cfg config.ClickHouseConfig, logger zerolog.Logger, opts ...ClickHouseOption) *ClickHouse {
	c := &ClickHouse{
		cfg:    cfg,
		logger: logger.With().Str("sink", "clickhouse").Logger(),
	}
	c.opener = func(cfg config.ClickHouseConfig) (driver.Conn, error) {
		options := &clickhouse.Options{
			Addr: cfg.Addresses,
			Auth: clickhouse.Auth{
				Database: cfg.Database,
				Username: cfg.Username,
				Password: cfg.Password,
			},
			DialTimeout: cfg.DialTimeout,
		}
		if cfg.Compression {
			options.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
		}
		return clickhouse.Open(options)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the sink identifier.
func (c *ClickHouse) Name() string {
	return "clickhouse"
}

// Start opens the connection and verifies it with a ping.
func (c *ClickHouse) Start(ctx context.Context) error {
	conn, err := c.opener(c.cfg)
	if err != nil {
		return fmt.Errorf("opening clickhouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("pinging clickhouse: %w", err)
	}
	c.conn = conn
	return nil
}

// Insert writes one batch via a prepared native batch.
func (c *ClickHouse) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	query := fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(columns, ", "))
	batch, err := c.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing batch for %s: %w", table, err)
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			return fmt.Errorf("appending row to %s: %w", table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("sending batch to %s: %w", table, err)
	}
	c.logger.Debug().Str("table", table).Int("rows", len(rows)).Msg("batch inserted")
	return nil
}

// Stop closes the connection.
func (c *ClickHouse) Stop(ctx context.Context) error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
