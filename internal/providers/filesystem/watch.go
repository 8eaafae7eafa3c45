package filesystem

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/logger"
)

// debounceWindow coalesces bursts of filesystem events (editors often
// write a file several times in quick succession) into one notification.
const debounceWindow = 500 * time.Millisecond

// Watch emits an event whenever a document under the root changes.
// The channel closes when ctx is cancelled.
func (p *Provider) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the root and every subdirectory; fsnotify is not recursive.
	err = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != p.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		watcher.Close()
		return nil, err
	}

	events := make(chan struct{}, 1)
	go p.watchLoop(ctx, watcher, events)
	return events, nil
}

func (p *Provider) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, events chan<- struct{}) {
	defer watcher.Close()
	defer close(events)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !relevantEvent(ev) {
				continue
			}
			// New directories need their own watch.
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = watcher.Add(ev.Name)
					continue
				}
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				// Drain an already-fired timer before Reset, or the
				// stale value would deliver an extra notification.
				if !timer.Stop() {
					select {
					case <-timerC:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case events <- struct{}{}:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("filesystem watch: %v", err)
		}
	}
}

// relevantEvent filters out chmods, hidden files and files whose
// format is not indexed.
func relevantEvent(ev fsnotify.Event) bool {
	if ev.Op.Has(fsnotify.Chmod) && !ev.Op.Has(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if isHidden(name) {
		return false
	}
	// Directory events matter for watch registration; file events only
	// when the format is indexable.
	if ev.Op.Has(fsnotify.Create) {
		return true
	}
	return domain.FormatFromName(name) != ""
}
