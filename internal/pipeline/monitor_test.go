package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorStopsOnCancel(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Pipeline.MonitorInterval = time.Hour

	var out bytes.Buffer
	orch := testOrchestrator(t, cfg, &out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- orch.RunMonitor(ctx)
	}()

	// Give the initial pass a moment, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
}

func TestMonitorIntervalPass(t *testing.T) {
	cfg, root := testConfig(t)
	cfg.Pipeline.MonitorInterval = 100 * time.Millisecond
	cfg.Pipeline.ScanInterval = 0

	var out bytes.Buffer
	orch := testOrchestrator(t, cfg, &out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- orch.RunMonitor(ctx)
	}()

	// Drop a file after the monitor starts; an interval pass must pick it up.
	time.Sleep(30 * time.Millisecond)
	logPath := filepath.Join(root, "20240315", "access.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(logPath), 0755))
	require.NoError(t, os.WriteFile(logPath, []byte(sampleLines), 0644))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if orch.Status().Completed == 1 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	<-done

	assert.Equal(t, 1, orch.Status().Completed)
}
