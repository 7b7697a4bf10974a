package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"livingstories/internal/domain"
	"livingstories/internal/service"
)

// Server exposes the content read and write operations over HTTP. Responses
// marshal the domain structs directly; there is no separate transport model.
type Server struct {
	retrieval    *service.RetrievalService
	content      *service.ContentService
	availability *service.AvailabilityService
	aggregates   *service.AggregatesRegistry
	stories      service.StoryStore
	themes       service.ThemeStore
	logger       *slog.Logger
	router       *mux.Router
}

func NewServer(
	retrieval *service.RetrievalService,
	content *service.ContentService,
	availability *service.AvailabilityService,
	aggregates *service.AggregatesRegistry,
	stories service.StoryStore,
	themes service.ThemeStore,
	logger *slog.Logger,
) *Server {
	s := &Server{
		retrieval:    retrieval,
		content:      content,
		availability: availability,
		aggregates:   aggregates,
		stories:      stories,
		themes:       themes,
		logger:       logger.With("component", "api"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequest)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/stories", s.handleListStories).Methods(http.MethodGet)
	api.HandleFunc("/stories", s.handleSaveStory).Methods(http.MethodPost)
	api.HandleFunc("/stories/{id}", s.handleGetStory).Methods(http.MethodGet)
	api.HandleFunc("/stories/{id:[0-9]+}", s.handleDeleteStory).Methods(http.MethodDelete)
	api.HandleFunc("/stories/{id:[0-9]+}/items", s.handleStoryItems).Methods(http.MethodGet)
	api.HandleFunc("/stories/{id:[0-9]+}/themes", s.handleListThemes).Methods(http.MethodGet)
	api.HandleFunc("/stories/{id:[0-9]+}/themes", s.handleSaveTheme).Methods(http.MethodPost)
	api.HandleFunc("/stories/{id:[0-9]+}/availability", s.handleAvailability).Methods(http.MethodGet)
	api.HandleFunc("/stories/{id:[0-9]+}/overview", s.handleOverview).Methods(http.MethodGet)
	api.HandleFunc("/themes/{id:[0-9]+}", s.handleDeleteTheme).Methods(http.MethodDelete)
	api.HandleFunc("/items", s.handleSaveItem).Methods(http.MethodPost)
	api.HandleFunc("/items/{id:[0-9]+}", s.handleGetItem).Methods(http.MethodGet)
	api.HandleFunc("/items/{id:[0-9]+}", s.handleDeleteItem).Methods(http.MethodDelete)
	api.HandleFunc("/items/{id:[0-9]+}/references", s.handleItemReferences).Methods(http.MethodGet)
	api.HandleFunc("/players/{id:[0-9]+}/contributions", s.handleContributions).Methods(http.MethodGet)

	return r
}

func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := s.stories.GetAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stories)
}

func (s *Server) handleSaveStory(w http.ResponseWriter, r *http.Request) {
	var story domain.Story
	if err := json.NewDecoder(r.Body).Decode(&story); err != nil {
		s.writeStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	saved, err := s.content.SaveStory(r.Context(), &story)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if story.ID == 0 {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, saved)
}

// handleGetStory resolves a numeric path segment as an id and anything else
// as a slug.
func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	var (
		story *domain.Story
		err   error
	)
	if id, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
		story, err = s.stories.GetByID(r.Context(), id)
	} else {
		story, err = s.stories.GetBySlug(r.Context(), raw)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, story)
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if err := s.content.DeleteStory(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStoryItems(w http.ResponseWriter, r *http.Request) {
	storyID := pathID(r)

	filter, focusedID, cutoff, err := parseBundleQuery(r)
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	bundle, err := s.retrieval.GetDisplayBundle(r.Context(), storyID, filter, focusedID, cutoff)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := s.themes.GetByStory(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, themes)
}

func (s *Server) handleSaveTheme(w http.ResponseWriter, r *http.Request) {
	var theme domain.Theme
	if err := json.NewDecoder(r.Body).Decode(&theme); err != nil {
		s.writeStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	theme.StoryID = pathID(r)
	saved, err := s.content.SaveTheme(r.Context(), &theme)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	bundles, err := s.availability.ThemeBundles(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bundles)
}

// handleOverview answers the story page opener with the shared aggregates in
// one response.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	agg := s.aggregates.For(pathID(r))
	ctx := r.Context()

	events, err := agg.ImportantEvents(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	players, err := agg.ImportantPlayers(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	contributors, err := agg.Contributors(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"important_events":  events,
		"important_players": players,
		"contributors":      contributors,
	})
}

func (s *Server) handleDeleteTheme(w http.ResponseWriter, r *http.Request) {
	if err := s.content.DeleteTheme(r.Context(), pathID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveItem(w http.ResponseWriter, r *http.Request) {
	var item domain.ContentItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		s.writeStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	saved, err := s.content.SaveItem(r.Context(), &item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if item.ID == 0 {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, saved)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	resolve := r.URL.Query().Get("resolve") == "true"
	item, linked, err := s.retrieval.GetItem(r.Context(), pathID(r), resolve)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !resolve {
		s.writeJSON(w, http.StatusOK, item)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"item":   item,
		"linked": linked,
	})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.content.DeleteItem(r.Context(), pathID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleItemReferences(w http.ResponseWriter, r *http.Request) {
	items, err := s.retrieval.GetLinkingTo(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request) {
	items, err := s.retrieval.GetContributedBy(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

// pathID reads the {id} path variable; the route patterns already constrain
// it to digits.
func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response failed", "error", err)
	}
}

func (s *Server) writeStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.writeStatus(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalid):
		s.writeStatus(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		s.writeStatus(w, http.StatusInternalServerError, "internal error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
