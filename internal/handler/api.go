package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ippclub/gem-poller/internal/config"
	"github.com/ippclub/gem-poller/internal/model"
	"github.com/ippclub/gem-poller/internal/protocol"
	"github.com/ippclub/gem-poller/pkg/gem"
	"go.uber.org/zap"
)

// maxRequestBody bounds plugin request bodies
const maxRequestBody = 1 << 20

// historyLimit bounds the revisions returned per watched package
const historyLimit = 50

// HistoryStore reads the revision history of watched packages
type HistoryStore interface {
	GetAllWatches() ([]*model.DBWatch, error)
	GetWatchByName(name string) (*model.DBWatch, error)
	GetLatestRevision(watchID int64) (*model.DBRevision, error)
	GetRevisionsByWatchID(watchID int64, limit int) ([]*model.DBRevision, error)
}

// Syncer polls every watched package once
type Syncer interface {
	SyncAll(ctx context.Context) error
}

// API handles HTTP requests
type API struct {
	cfg         *config.Config
	logger      *zap.Logger
	dispatcher  *protocol.Dispatcher
	store       HistoryStore
	syncer      Syncer
	rateLimiter *RateLimiter

	// lifetime of background syncs started by the admin route
	ctx    context.Context
	cancel context.CancelFunc
	syncs  sync.WaitGroup
}

// NewAPI creates a new API instance
func NewAPI(cfg *config.Config, logger *zap.Logger, dispatcher *protocol.Dispatcher, store HistoryStore, syncer Syncer) *API {
	ctx, cancel := context.WithCancel(context.Background())
	return &API{
		cfg:         cfg,
		logger:      logger,
		dispatcher:  dispatcher,
		store:       store,
		syncer:      syncer,
		rateLimiter: NewRateLimiter(float64(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Close cancels manual syncs still running, waits for them to return and
// stops the API's background resources
func (a *API) Close() {
	a.cancel()
	a.syncs.Wait()
	a.rateLimiter.Close()
}

// RegisterRoutes registers the API routes
func (a *API) RegisterRoutes(r chi.Router) {
	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(a.logger))
	r.Use(middleware.Recoverer)

	// Plugin protocol
	r.Route("/go/plugin", func(r chi.Router) {
		r.Get("/identifier", a.getIdentifier)
		r.Post("/requests/{name}", a.handlePluginRequest)
	})

	// Watch history with rate limiting
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(a.rateLimiter.RateLimit)
		r.Get("/watches", a.listWatches)
		r.Get("/watches/{name}/revisions", a.getWatchRevisions)
	})

	// Admin routes (localhost only)
	r.Route("/admin", func(r chi.Router) {
		r.Use(LocalOnly)
		r.Post("/sync", a.triggerSync)
	})
}

// getIdentifier returns the extension identifier
func (a *API) getIdentifier(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.PluginIdentifier())
}

// handlePluginRequest dispatches one protocol request
func (a *API) handlePluginRequest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	resp, err := a.dispatcher.Dispatch(r.Context(), name, body)
	switch {
	case errors.Is(err, protocol.ErrUnknownRequest):
		writeMessage(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, protocol.ErrMalformedRequest):
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		a.logger.Error("failed to dispatch request", zap.String("request", name), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if resp.Body == nil {
		w.WriteHeader(resp.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// listWatches returns every watched package with its latest recorded revision
func (a *API) listWatches(w http.ResponseWriter, r *http.Request) {
	watches, err := a.store.GetAllWatches()
	if err != nil {
		a.logger.Error("failed to get watches", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	infos := make([]model.WatchInfo, 0, len(watches))
	for _, watch := range watches {
		info := model.WatchInfo{
			Name: watch.Name,
			URL:  gem.RedactURL(watch.URL),
			Gem:  watch.Gem,
		}
		if !watch.LastPoll.IsZero() {
			info.LastPoll = watch.LastPoll.Unix()
		}

		latest, err := a.store.GetLatestRevision(watch.ID)
		if err != nil {
			a.logger.Error("failed to get latest revision",
				zap.String("watch", watch.Name),
				zap.Error(err),
			)
			continue
		}
		if latest != nil {
			info.Latest = toRevisionInfo(latest)
		}
		infos = append(infos, info)
	}

	writeJSON(w, http.StatusOK, infos)
}

// getWatchRevisions returns the recorded revisions of a watched package
func (a *API) getWatchRevisions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	watch, err := a.store.GetWatchByName(name)
	if err != nil {
		a.logger.Error("failed to get watch", zap.String("name", name), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if watch == nil {
		writeMessage(w, http.StatusNotFound, "watch not found")
		return
	}

	revisions, err := a.store.GetRevisionsByWatchID(watch.ID, historyLimit)
	if err != nil {
		a.logger.Error("failed to get revisions", zap.String("name", name), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	infos := make([]*model.RevisionInfo, 0, len(revisions))
	for _, rev := range revisions {
		infos = append(infos, toRevisionInfo(rev))
	}
	writeJSON(w, http.StatusOK, infos)
}

// triggerSync triggers a manual poll of all watched packages
func (a *API) triggerSync(w http.ResponseWriter, r *http.Request) {
	a.logger.Info("manual sync triggered")

	// Start sync in a goroutine to avoid blocking
	a.syncs.Add(1)
	go func() {
		defer a.syncs.Done()
		if err := a.syncer.SyncAll(a.ctx); err != nil {
			a.logger.Error("manual sync failed", zap.Error(err))
		} else {
			a.logger.Info("manual sync completed successfully")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "sync started",
		"message": "Package polling has been triggered",
	})
}

func toRevisionInfo(rev *model.DBRevision) *model.RevisionInfo {
	return &model.RevisionInfo{
		Revision:   rev.Revision,
		ObservedAt: rev.ObservedAt.Unix(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
