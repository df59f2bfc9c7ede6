package replay

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is how long a log must stay unchanged before it is replayed.
const DefaultQuiet = 500 * time.Millisecond

// LogExt is the extension of event logs picked up by Watch.
const LogExt = ".jsonl"

// WatchOptions configure Watch.
type WatchOptions struct {
	Quiet time.Duration
	// OnResult is called for every replayed log, on the watch goroutine.
	OnResult func(Result)
	// OnError is called for logs that fail to replay.
	OnError func(path string, err error)
}

// Watch replays every event log written into dir until ctx is cancelled.
// Each file is replayed once, after it has been quiet for Quiet.
func Watch(ctx context.Context, dir string, opts Options, wopts WatchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	quiet := wopts.Quiet
	if quiet <= 0 {
		quiet = DefaultQuiet
	}

	due := make(chan string)
	timers := map[string]*time.Timer{}
	done := map[string]bool{}
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			path := event.Name
			if !strings.HasSuffix(path, LogExt) || done[path] {
				continue
			}
			if t, ok := timers[path]; ok {
				t.Reset(quiet)
				continue
			}
			timers[path] = time.AfterFunc(quiet, func() {
				select {
				case due <- path:
				case <-ctx.Done():
				}
			})
		case path := <-due:
			delete(timers, path)
			if done[path] {
				continue
			}
			done[path] = true
			logger.Info("replaying new event log", slog.String("path", filepath.Base(path)))
			res, err := RunFile(ctx, path, opts)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("replay failed", slog.String("path", path), slog.Any("error", err))
				if wopts.OnError != nil {
					wopts.OnError(path, err)
				}
				continue
			}
			if wopts.OnResult != nil {
				wopts.OnResult(res)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}
