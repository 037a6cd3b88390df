package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/logging"
)

func writeLogFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestStore(t *testing.T) (*Store, string, string) {
	t.Helper()
	tmp := t.TempDir()
	dateDir := filepath.Join(tmp, "20240315")
	require.NoError(t, os.Mkdir(dateDir, 0755))
	statePath := filepath.Join(tmp, "processing_state.json")
	return Open(statePath, 0, logging.Discard()), statePath, dateDir
}

func TestLifecycle(t *testing.T) {
	store, _, dateDir := newTestStore(t)
	path := writeLogFile(t, dateDir, "access.log", "line 1\nline 2\n")

	done, err := store.IsProcessed(path)
	require.NoError(t, err)
	assert.False(t, done)

	pid, err := store.MarkProcessing(path)
	require.NoError(t, err)
	require.NotEmpty(t, pid)

	// Processing is not processed.
	done, err = store.IsProcessed(path)
	require.NoError(t, err)
	assert.False(t, done)

	store.MarkCompleted(path, 2, pid)

	done, err = store.IsProcessed(path)
	require.NoError(t, err)
	assert.True(t, done)

	sum := store.Summarize()
	assert.Equal(t, 1, sum.TotalFiles)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, int64(2), sum.TotalRecords)
}

func TestContentHashIdentity(t *testing.T) {
	store, _, dateDir := newTestStore(t)
	path := writeLogFile(t, dateDir, "access.log", "original content\n")

	pid, err := store.MarkProcessing(path)
	require.NoError(t, err)
	store.MarkCompleted(path, 1, pid)

	done, err := store.IsProcessed(path)
	require.NoError(t, err)
	require.True(t, done)

	// Same name, new content: the completed entry no longer applies.
	require.NoError(t, os.WriteFile(path, []byte("rewritten content\n"), 0644))
	done, err = store.IsProcessed(path)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestFailedRetryChain(t *testing.T) {
	store, _, dateDir := newTestStore(t)
	path := writeLogFile(t, dateDir, "access.log", "data\n")

	// First attempt fails.
	pid1, err := store.MarkProcessing(path)
	require.NoError(t, err)
	store.MarkFailed(path, "sink unreachable", pid1)

	sum := store.Summarize()
	assert.Equal(t, 1, sum.Failed)

	// Reset returns it to pending.
	assert.Equal(t, 1, store.ResetFailed("20240315"))
	sum = store.Summarize()
	assert.Equal(t, 0, sum.Failed)
	assert.Equal(t, 1, sum.Pending)

	// Second attempt succeeds; exactly one completed entry remains.
	pid2, err := store.MarkProcessing(path)
	require.NoError(t, err)
	assert.NotEqual(t, pid1, pid2)
	store.MarkCompleted(path, 5, pid2)

	sum = store.Summarize()
	assert.Equal(t, 1, sum.TotalFiles)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 0, sum.Failed)
	assert.Equal(t, int64(5), sum.TotalRecords)
}

func TestResetFailedScopedToDate(t *testing.T) {
	store, _, dateDir := newTestStore(t)
	path := writeLogFile(t, dateDir, "access.log", "data\n")

	pid, err := store.MarkProcessing(path)
	require.NoError(t, err)
	store.MarkFailed(path, "boom", pid)

	assert.Equal(t, 0, store.ResetFailed("20990101"))
	assert.Equal(t, 1, store.Summarize().Failed)

	// Empty date resets every date.
	assert.Equal(t, 1, store.ResetFailed(""))
}

func TestStaleProcessIDIgnored(t *testing.T) {
	store, _, dateDir := newTestStore(t)
	path := writeLogFile(t, dateDir, "access.log", "data\n")

	_, err := store.MarkProcessing(path)
	require.NoError(t, err)

	// A transition with the wrong process ID must not complete the entry.
	store.MarkCompleted(path, 99, "stale-process-id")
	sum := store.Summarize()
	assert.Equal(t, 0, sum.Completed)
	assert.Equal(t, 1, sum.Processing)
}

func TestPersistenceAcrossRestart(t *testing.T) {
	store, statePath, dateDir := newTestStore(t)
	path := writeLogFile(t, dateDir, "access.log", "data\n")

	pid, err := store.MarkProcessing(path)
	require.NoError(t, err)
	store.MarkCompleted(path, 3, pid)
	require.NoError(t, store.Flush())

	// A fresh store loaded from the same file sees the completed entry.
	reopened := Open(statePath, 0, logging.Discard())
	done, err := reopened.IsProcessed(path)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, int64(3), reopened.Summarize().TotalRecords)
}

func TestCorruptLedgerDegradesToMemory(t *testing.T) {
	tmp := t.TempDir()
	statePath := filepath.Join(tmp, "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte("{not json"), 0644))

	store := Open(statePath, 0, logging.Discard())
	assert.True(t, store.InMemoryOnly())

	// The store still works, it just does not persist.
	dateDir := filepath.Join(tmp, "20240315")
	require.NoError(t, os.Mkdir(dateDir, 0755))
	path := writeLogFile(t, dateDir, "a.log", "x\n")
	pid, err := store.MarkProcessing(path)
	require.NoError(t, err)
	store.MarkCompleted(path, 1, pid)
	assert.Equal(t, 1, store.Summarize().Completed)

	// The corrupt file is left untouched.
	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestHashFile(t *testing.T) {
	tmp := t.TempDir()
	a := writeLogFile(t, tmp, "a.log", "same content")
	b := writeLogFile(t, tmp, "b.log", "same content")
	c := writeLogFile(t, tmp, "c.log", "different content")

	ha, err := HashFile(a)
	require.NoError(t, err)
	hb, err := HashFile(b)
	require.NoError(t, err)
	hc, err := HashFile(c)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)

	_, err = HashFile(filepath.Join(tmp, "missing.log"))
	assert.Error(t, err)
}
