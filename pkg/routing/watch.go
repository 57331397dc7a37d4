package routing

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher rebuilds the always-on index when the routing document changes
// on disk outside the process. The document has historically been
// hand-edited in place; without the watcher those edits would leave the
// hot-path index stale until restart.
type Watcher struct {
	store  *Store
	index  *AlwaysOnIndex
	logger *slog.Logger
}

func NewWatcher(store *Store, index *AlwaysOnIndex, logger *slog.Logger) *Watcher {
	return &Watcher{
		store:  store,
		index:  index,
		logger: logger.With("component", "routing.watch"),
	}
}

// Run watches the document's directory until ctx is cancelled. The parent
// directory is watched rather than the file itself so editors that
// replace-by-rename are still observed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.store.Path())
	if err := fw.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(w.store.Path())
	w.logger.Debug("watching routing document", "path", target)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.index.Rebuild(w.store.Load())
			w.logger.Info("routing document changed on disk, index rebuilt", "op", event.Op.String())

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watching routing document", "err", err)
		}
	}
}
