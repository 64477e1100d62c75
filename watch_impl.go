//go:build linux || darwin

package gamesvc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// watchState tracks the last emitted state and the pending debounce timer
type watchState struct {
	mu        sync.Mutex
	last      ProvisionState
	lastStamp time.Time
	sent      bool
	debouncer *time.Timer
}

// changed records st/m as the last seen state and reports whether they
// differ from what was previously emitted
func (w *watchState) changed(st ProvisionState, m *Marker) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	var stamp time.Time
	if m != nil {
		stamp = m.LastUpdated
	}
	if w.sent && w.last == st && w.lastStamp.Equal(stamp) {
		return false
	}
	w.sent = true
	w.last = st
	w.lastStamp = stamp
	return true
}

// nearestExisting returns dir if it exists, else its closest existing ancestor
func nearestExisting(dir string) string {
	for p := dir; ; p = filepath.Dir(p) {
		if _, err := os.Stat(p); err == nil || filepath.Dir(p) == p {
			return p
		}
	}
}

// onPathTo reports whether name is dir or one of its ancestors
func onPathTo(dir, name string) bool {
	return name == dir || strings.HasPrefix(dir, name+string(filepath.Separator))
}

// Watch emits the provisioning state of dir for src, first immediately and
// then whenever the marker or the provisioning lock changes. Bursts of
// filesystem events are coalesced by the store's debounce interval. The
// channel is closed once ctx is done or the cleanup function returns.
//
// A dir that does not exist yet is waited for by watching its closest
// existing ancestor, so a first install can be observed.
func (s *MarkerStore) Watch(ctx context.Context, dir string, src Source) (<-chan MarkerEvent, WatchCleanupFunc, error) {
	dir = filepath.Clean(dir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, &OpError{Op: OpMarker, Path: dir, Err: err}
	}

	watched := nearestExisting(dir)
	if err := watcher.Add(watched); err != nil {
		_ = watcher.Close()
		return nil, nil, &OpError{Op: OpMarker, Path: dir, Err: err}
	}

	// descend moves the watch toward dir as its missing parents appear.
	// Only the watch goroutine calls it after setup.
	descend := func() bool {
		moved := false
		for watched != dir {
			next := nearestExisting(dir)
			if next == watched || watcher.Add(next) != nil {
				break
			}
			_ = watcher.Remove(watched)
			watched = next
			moved = true
		}
		return moved
	}
	descend()

	ch := make(chan MarkerEvent, 10)

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
		close(ch)
	})

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	state := &watchState{}

	send := func(ev MarkerEvent) {
		if sctx.IsStopping() {
			return
		}
		select {
		case ch <- ev:
		case <-sctx.Stopping():
		}
	}

	inspect := func() {
		if sctx.IsStopping() {
			return
		}
		st, m := s.Inspect(dir, src)
		if state.changed(st, m) {
			send(MarkerEvent{State: st, Marker: m})
		}
	}

	inspect()

	sctx.Go(func(sctx *stopper.Context) error {
		sctx.Defer(func() {
			state.mu.Lock()
			if state.debouncer != nil {
				state.debouncer.Stop()
			}
			state.mu.Unlock()
		})

		schedule := func() {
			state.mu.Lock()
			if state.debouncer != nil {
				state.debouncer.Stop()
			}
			state.debouncer = time.AfterFunc(s.debounce, inspect)
			state.mu.Unlock()
		}

		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if watched != dir {
					// rescan on arrival: files may predate the new watch
					if event.Has(fsnotify.Create) && onPathTo(dir, event.Name) && descend() && watched == dir {
						schedule()
					}
					continue
				}
				switch filepath.Base(event.Name) {
				case MarkerFile, LockFile:
				default:
					continue
				}
				schedule()

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil {
					send(MarkerEvent{Err: &OpError{Op: OpMarker, Path: dir, Err: err}})
				}
			}
		}
		return nil
	})

	return ch, cleanup, nil
}
