package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"container-health/internal/util"
)

const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// Watch reloads the config at path whenever it changes and hands the result
// to onChange. It returns when ctx is cancelled.
//
// The parent directory is watched rather than the file, so editors that save
// by renaming a temp file over path keep triggering reloads. A config that
// fails to load is logged and the previous one stays active.
func Watch(ctx context.Context, path string, logger *util.ServiceLogger, onChange func(*Config)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	logger.LogEvent(util.LOG_LEVEL_INFO, "config: watching", target)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.LogEvent(util.LOG_LEVEL_ERROR, "config: watcher error:", err)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&reloadOps == 0 {
				continue
			}
			reload(target, logger, onChange)
		}
	}
}

func reload(path string, logger *util.ServiceLogger, onChange func(*Config)) {
	// A rename away from path leaves nothing to read until the next Create.
	if _, err := os.Stat(path); err != nil {
		return
	}
	cfg, err := Load(path)
	if err != nil {
		logger.LogEvent(util.LOG_LEVEL_ERROR, "config: reload failed, keeping previous config:", err)
		return
	}
	logger.LogEvent(util.LOG_LEVEL_INFO, "config: reloaded", path)
	onChange(cfg)
}
