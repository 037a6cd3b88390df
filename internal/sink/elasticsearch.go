package sink

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/config"
)

// IndexerFactory creates a BulkIndexer bound to an index. Swappable for
// tests.
type IndexerFactory func(cfg config.ElasticsearchConfig, index string) (esutil.BulkIndexer, error)

// ElasticsearchOption configures the Elasticsearch sink.
type ElasticsearchOption func(*Elasticsearch)

// WithIndexerFactory sets a custom factory for creating the BulkIndexer.
func WithIndexerFactory(f IndexerFactory) ElasticsearchOption {
	return func(e *Elasticsearch) {
		e.factory = f
	}
}

// Elasticsearch is the alternate sink: each table maps to an index and rows
// become documents keyed by column name.
type Elasticsearch struct {
	cfg     config.ElasticsearchConfig
	logger  zerolog.Logger
	factory IndexerFactory
}

// NewElasticsearch creates the alternate bulk sink.
func NewElasticsearch(cfg config.ElasticsearchConfig, logger zerolog.Logger, opts ...ElasticsearchOption) *Elasticsearch {
	e := &Elasticsearch{
		cfg:    cfg,
		logger: logger.With().Str("sink", "elasticsearch").Logger(),
	}
	e.factory = func(cfg config.ElasticsearchConfig, index string) (esutil.BulkIndexer, error) {
		esCfg := elasticsearch.Config{
			Addresses: cfg.Addresses,
		}
		if cfg.Username != "" {
			esCfg.Username = cfg.Username
			esCfg.Password = cfg.Password
		}
		client, err := elasticsearch.NewClient(esCfg)
		if err != nil {
			return nil, fmt.Errorf("creating elasticsearch client: %w", err)
		}
		return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
			Client:        client,
			Index:         index,
			NumWorkers:    2,
			FlushInterval: cfg.FlushInterval,
		})
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the sink identifier.
func (e *Elasticsearch) Name() string {
	return "elasticsearch"
}

// Start validates the configuration; indexers are created per batch so each
// Insert reports failures synchronously.
func (e *Elasticsearch) Start(ctx context.Context) error {
	if len(e.cfg.Addresses) == 0 {
		return fmt.Errorf("no elasticsearch addresses configured")
	}
	return nil
}

// Insert bulk-indexes the batch into the index named after the table. The
// indexer is closed before returning so errors surface to the caller.
func (e *Elasticsearch) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	indexer, err := e.factory(e.cfg, table)
	if err != nil {
		return err
	}

	var failed atomic.Int64
	for _, row := range rows {
		doc := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(row) {
				doc[col] = row[i]
			}
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling document: %w", err)
		}
		item := esutil.BulkIndexerItem{
			Action: "index",
			Body:   bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
			},
		}
		if err := indexer.Add(ctx, item); err != nil {
			indexer.Close(ctx)
			return fmt.Errorf("adding to bulk indexer: %w", err)
		}
	}
	if err := indexer.Close(ctx); err != nil {
		return fmt.Errorf("flushing bulk indexer: %w", err)
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d documents failed to index into %s", n, len(rows), table)
	}
	e.logger.Debug().Str("index", table).Int("rows", len(rows)).Msg("bulk indexed")
	return nil
}

// Stop is a no-op; indexers are per batch.
func (e *Elasticsearch) Stop(ctx context.Context) error {
	return nil
}
