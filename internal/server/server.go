package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"cadenza/internal/cache"
	"cadenza/internal/config"
	"cadenza/internal/ngrok"
	"cadenza/internal/packager"
	"cadenza/internal/release"
)

// CatalogServer serves the release catalogue API: uploads, metadata,
// distribution tracking and file downloads.
type CatalogServer struct {
	config       *config.Config
	store        *release.Store
	packager     *packager.Packager
	cache        *cache.ReleaseCache
	logger       *logrus.Logger
	watcher      *fsnotify.Watcher
	ngrokService *ngrok.Service
	httpServer   *http.Server
}

// NewCatalogServer creates a new catalogue server instance.
func NewCatalogServer(cfg *config.Config, store *release.Store, logger *logrus.Logger) (*CatalogServer, error) {
	ngrokSvc, err := ngrok.NewService(&cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Warn("Ngrok service not available")
		ngrokSvc = nil
	}

	return &CatalogServer{
		config:       cfg,
		store:        store,
		packager:     packager.New(store, logger),
		cache:        cache.NewReleaseCache(),
		logger:       logger,
		ngrokService: ngrokSvc,
	}, nil
}

// Handler builds the route table wrapped in the middleware chain.
func (cs *CatalogServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", cs.handleHealthCheck)
	mux.HandleFunc("/upload", cs.handleUpload)
	mux.HandleFunc("/metadata", cs.handleSaveMetadata)
	mux.HandleFunc("/releases", cs.handleListReleases)
	mux.HandleFunc("/releases/", cs.handleReleaseSubtree)
	mux.HandleFunc("/distribute/soundcloud/package", cs.handleSoundCloudPackage)
	mux.HandleFunc("/storage/status", cs.handleStorageStatus)

	return cs.requestLoggingMiddleware(cs.corsMiddleware(mux))
}

// handleReleaseSubtree routes everything under /releases/: single-release
// reads and deletes plus the per-release sub-resources.
func (cs *CatalogServer) handleReleaseSubtree(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	// GET /releases/ (trailing slash) is the listing.
	if len(parts) < 2 || parts[1] == "" {
		cs.handleListReleases(w, r)
		return
	}

	releaseID := parts[1]
	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			cs.handleGetRelease(w, r, releaseID)
		case http.MethodDelete:
			cs.handleDeleteRelease(w, r, releaseID)
		default:
			cs.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	rest := parts[3:]
	switch parts[2] {
	case "distribution":
		cs.handleDistribution(w, r, releaseID, rest)
	case "sign":
		cs.handleSign(w, r, releaseID)
	case "files":
		cs.handleFileDownload(w, r, releaseID, rest)
	case "artwork":
		cs.handleArtwork(w, r, releaseID)
	case "packages":
		cs.handlePackageDownload(w, r, releaseID, rest)
	case "label-deal":
		cs.handleLabelDeal(w, r, releaseID, rest)
	case "notes":
		cs.handleNotes(w, r, releaseID, rest)
	case "song-links":
		cs.handleSongLinks(w, r, releaseID, rest)
	default:
		cs.respondError(w, r, http.StatusNotFound, "Unknown resource", nil)
	}
}

// Start runs the HTTP server, the release watcher and the optional tunnel.
// Blocks until the server stops.
func (cs *CatalogServer) Start() error {
	if cs.config.Releases.WatchForChanges {
		if err := cs.startReleaseWatcher(); err != nil {
			cs.logger.WithError(err).Warn("Could not start release watcher")
		} else {
			defer cs.stopReleaseWatcher()
		}
	}

	localAddress := "http://" + cs.config.GetAddress()
	cs.logger.WithFields(logrus.Fields{
		"address":       localAddress,
		"releases_root": cs.store.Root(),
	}).Info("Cadenza server starting")

	if cs.ngrokService != nil {
		if err := cs.ngrokService.StartTunnel(context.Background(), cs.config.GetAddress()); err != nil {
			cs.logger.WithError(err).Warn("Could not start ngrok tunnel")
		} else {
			defer cs.ngrokService.Stop()
		}
	}

	cs.httpServer = &http.Server{
		Addr:        cs.config.GetAddress(),
		Handler:     cs.Handler(),
		ReadTimeout: time.Duration(cs.config.Server.ReadTimeout) * time.Second,
	}

	err := cs.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and its background services.
func (cs *CatalogServer) Shutdown() {
	cs.logger.Info("Shutting down cadenza server")

	cs.stopReleaseWatcher()
	if cs.ngrokService != nil {
		cs.ngrokService.Stop()
	}

	if cs.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cs.httpServer.Shutdown(ctx); err != nil {
			cs.logger.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	cs.logger.Info("Cadenza server shutdown complete")
}
