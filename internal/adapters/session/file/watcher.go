package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher calls onChange whenever the marker is created, removed or renamed.
// The directory is watched rather than the file, since the file comes and goes.
type Watcher struct {
	store    *Store
	onChange func(exists bool)
	logger   zerolog.Logger
}

func NewWatcher(store *Store, logger zerolog.Logger, onChange func(exists bool)) *Watcher {
	return &Watcher{store: store, onChange: onChange, logger: logger}
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.store.Path())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create install root: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create marker watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch install root: %w", err)
	}

	name := filepath.Base(w.store.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug().Str("op", ev.Op.String()).Str("file", ev.Name).Msg("session marker changed")
			w.onChange(w.store.Exists())
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("session marker watcher error")
		}
	}
}
