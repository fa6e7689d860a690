package config

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/fsnotify/fsnotify"
)

// WatchAlertRules re-reads the config file whenever it changes on disk and
// hands the alerts section to apply. Alert rules and webhook targets are the
// only part of the configuration that may change at runtime; everything else
// keeps the values the process started with.
//
// A rewrite that fails to load or validate is rejected and the running rules
// stay active. Rewrites that leave the alerts section unchanged do not invoke
// apply. Blocks until ctx is cancelled.
func WatchAlertRules(ctx context.Context, path string, apply func(AlertsConfig)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return err
	}

	initial, err := Load(path)
	if err != nil {
		return err
	}
	active := initial.Alerts

	slog.Info("config: watching alert rules", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// Editors save either by writing in place or by renaming a temp
			// file over the target, which arrives as a create.
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			// An atomic save replaces the inode; re-watch the new one before
			// reading so a follow-up save is not missed.
			_ = w.Add(path)

			next, err := Load(path)
			if err != nil {
				slog.Error("config: rejecting changed file, keeping active alert rules",
					"path", path, "err", err)
				continue
			}
			if reflect.DeepEqual(next.Alerts, active) {
				continue
			}
			active = next.Alerts
			slog.Info("config: alert rules updated",
				"path", path, "rules", len(active.Rules), "webhooks", len(active.Webhooks))
			apply(active)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
