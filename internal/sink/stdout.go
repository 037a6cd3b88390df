package sink

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

// Stdout prints rows as JSON lines. Used for dry runs and tests.
type Stdout struct {
	mu  sync.Mutex
	w   *bufio.Writer
	out io.Writer
}

// NewStdout creates a stdout sink.
func NewStdout() *Stdout {
	return &Stdout{out: os.Stdout}
}

// NewWriterSink creates a stdout-style sink over any writer, for tests.
func NewWriterSink(w io.Writer) *Stdout {
	return &Stdout{out: w}
}

// Name returns the sink identifier.
func (s *Stdout) Name() string {
	return "stdout"
}

// Start initializes the buffered writer.
func (s *Stdout) Start(ctx context.Context) error {
	s.w = bufio.NewWriter(s.out)
	return nil
}

// Insert writes one JSON object per row, tagged with the target table.
func (s *Stdout) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.w)
	for _, row := range rows {
		doc := make(map[string]any, len(columns)+1)
		doc["_table"] = table
		for i, col := range columns {
			if i < len(row) {
				doc[col] = row[i]
			}
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

// Stop flushes buffered output.
func (s *Stdout) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w != nil {
		return s.w.Flush()
	}
	return nil
}
