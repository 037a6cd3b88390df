package pipeline

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// RunMonitor polls for new files at the configured interval until the
// context is cancelled. Filesystem create events on the root directory
// trigger an early pass; the single-flight guard in runPass makes
// overlapping triggers harmless.
func (o *Orchestrator) RunMonitor(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		o.logger.Warn().Err(err).Msg("fsnotify unavailable, monitor will poll only")
	} else {
		defer watcher.Close()
		if err := watcher.Add(o.cfg.Input.RootDir); err != nil {
			o.logger.Warn().Err(err).Str("dir", o.cfg.Input.RootDir).Msg("cannot watch root dir")
		}
	}

	o.logger.Info().
		Dur("interval", o.cfg.Pipeline.MonitorInterval).
		Msg("auto-discovery monitor started")

	// Initial pass so a fresh monitor does not wait a full interval.
	if _, err := o.ProcessAll(ctx); err != nil {
		o.logger.Error().Err(err).Msg("monitor pass failed")
	}

	timer := newIntervalTimer(o.cfg.Pipeline.MonitorInterval)
	defer timer.Stop()

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if watcher != nil {
		events = watcher.Events
		watchErrs = watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			o.logger.Info().Msg("monitor stopped")
			return ctx.Err()

		case <-timer.C:
			timer.Reset()
			if _, err := o.ProcessAll(ctx); err != nil {
				o.logger.Error().Err(err).Msg("monitor pass failed")
			}

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				o.logger.Debug().Str("path", event.Name).Msg("create event, scheduling pass")
				// The stability window still applies inside discovery, so
				// a just-created file is picked up by a later pass.
				if _, err := o.ProcessAll(ctx); err != nil {
					o.logger.Error().Err(err).Msg("monitor pass failed")
				}
			}

		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			o.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}
