// Package watch delivers filesystem change events for new or updated
// recordings. Events are pushed onto a bounded channel so the producer and
// the pipeline worker never share mutable state.
package watch

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/franz/memoscribe/internal/memo"
	"github.com/franz/memoscribe/internal/util"
)

// Watcher observes one recordings directory and emits paths of created or
// modified audio files
type Watcher struct {
	fsw   *fsnotify.Watcher
	paths chan string
}

// Start begins watching the directory. The returned watcher's Paths channel
// closes once the context is cancelled or the underlying watcher shuts
// down.
func Start(ctx context.Context, dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		fsw:   fsw,
		paths: make(chan string, 64),
	}
	go w.run(ctx)

	util.InfoLog("Watching %s for new recordings", dir)
	return w, nil
}

// Paths returns the channel of matching file paths
func (w *Watcher) Paths() <-chan string {
	return w.paths
}

// Close stops the watcher. The Paths channel closes once the event loop
// drains.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.paths)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !memo.IsAudioFile(event.Name) {
				continue
			}
			select {
			case w.paths <- event.Name:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			util.WarnLog("Watcher error: %v", err)
		}
	}
}
