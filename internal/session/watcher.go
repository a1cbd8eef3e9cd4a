package session

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// saveDebounce coalesces the event bursts editors produce on save (write +
// chmod, or atomic write-then-rename).
const saveDebounce = 200 * time.Millisecond

// DocumentWatcher is the fsnotify-backed EventSource for one document. It
// watches the document's directory and filters events down to the document
// itself, since filesystem events are global to the directory and a session
// must only react to its own file.
type DocumentWatcher struct {
	path      string
	watcher   *fsnotify.Watcher
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewDocumentWatcher starts watching the document at path.
func NewDocumentWatcher(path string) (*DocumentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &DocumentWatcher{
		path:    filepath.Clean(path),
		watcher: watcher,
		events:  make(chan Event, 4),
		done:    make(chan struct{}),
	}

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Events returns the session-facing event channel.
func (w *DocumentWatcher) Events() <-chan Event {
	return w.events
}

// DocumentClosed injects the close event. The host calls it when the editor
// on the document exits.
func (w *DocumentWatcher) DocumentClosed() {
	select {
	case w.events <- EventClosed:
	case <-w.done:
	}
}

// Close stops the watcher. Idempotent.
func (w *DocumentWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *DocumentWatcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if timer == nil {
					timer = time.NewTimer(saveDebounce)
					timerC = timer.C
				} else {
					timer.Reset(saveDebounce)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  document watcher error: %v", err)

		case <-timerC:
			select {
			case w.events <- EventSaved:
			default:
				// A save is already queued; one delivery is enough.
			}
		}
	}
}
