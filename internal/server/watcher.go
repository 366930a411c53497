package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// startReleaseWatcher initializes fsnotify monitoring of the releases root so
// changes made outside the API (manual edits, synced folders) invalidate the
// cached listing.
func (cs *CatalogServer) startReleaseWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	cs.watcher = watcher

	// Start monitoring in a goroutine
	go cs.watchReleases()

	if err := cs.watcher.Add(cs.store.Root()); err != nil {
		return err
	}

	// Watch each existing release directory so metadata edits are seen.
	entries, err := os.ReadDir(cs.store.Root())
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			cs.watcher.Add(filepath.Join(cs.store.Root(), entry.Name()))
		}
	}

	cs.logger.WithField("releases_root", cs.store.Root()).Info("Release watcher started")
	return nil
}

// watchReleases selects on watcher channels and dispatches events.
func (cs *CatalogServer) watchReleases() {
	for {
		select {
		case event, ok := <-cs.watcher.Events:
			if !ok {
				return
			}
			cs.handleReleaseEvent(event)

		case err, ok := <-cs.watcher.Errors:
			if !ok {
				return
			}
			cs.logger.WithError(err).Error("Release watcher error")
		}
	}
}

// handleReleaseEvent filters out temp and hidden files, drops the cached
// listing and starts watching newly created release directories.
func (cs *CatalogServer) handleReleaseEvent(event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	cs.cache.Invalidate()

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			cs.watcher.Add(event.Name)
			cs.logger.WithField("directory", event.Name).Debug("Watching new release directory")
		}
	}
}

// stopReleaseWatcher closes the watcher (idempotent).
func (cs *CatalogServer) stopReleaseWatcher() {
	if cs.watcher != nil {
		cs.watcher.Close()
		cs.watcher = nil
	}
}
