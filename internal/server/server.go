package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"mybooks/internal/books"
	"mybooks/internal/models"
	"mybooks/internal/routes"
)

// Server exposes the book store and the route table over HTTP.
type Server struct {
	store   *books.Store
	variant routes.Variant
	auth    *InitDataAuth
	logger  *zap.Logger
	router  *httprouter.Router
	newID   func() models.ID
}

// Option configures a Server.
type Option func(*Server)

// WithAuth requires Telegram Mini App authentication on /api routes.
func WithAuth(auth *InitDataAuth) Option {
	return func(s *Server) { s.auth = auth }
}

// WithIDGenerator overrides how ids are assigned to books posted without one.
func WithIDGenerator(newID func() models.ID) Option {
	return func(s *Server) { s.newID = newID }
}

// New creates a server for store using the page set of variant.
func New(store *books.Store, variant routes.Variant, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:   store,
		variant: variant,
		logger:  logger,
		newID:   func() models.ID { return models.StringID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.initRouter()
	return s
}

// Router returns the underlying router so callers can mount extra endpoints
// such as the Telegram webhook.
func (s *Server) Router() *httprouter.Router { return s.router }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) initRouter() {
	s.router = httprouter.New()
	s.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	s.router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		s.logger.Error("Panic in HTTP handler",
			zap.Any("panic", v),
			zap.String("path", r.URL.Path),
		)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}

	s.router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	s.router.GET("/api/routes", s.authenticated(s.handleRoutes))
	s.router.GET("/api/pages/*path", s.authenticated(s.handlePage))

	s.router.GET("/api/books", s.authenticated(s.handleListBooks))
	s.router.POST("/api/books", s.authenticated(s.handleAddBook))
	s.router.GET("/api/books/:id", s.authenticated(s.handleGetBook))
	s.router.PATCH("/api/books/:id", s.authenticated(s.handleUpdateBook))
	s.router.DELETE("/api/books/:id", s.authenticated(s.handleRemoveBook))
	s.router.PUT("/api/books/:id/status", s.authenticated(s.handleUpdateStatus))
	s.router.POST("/api/books/:id/reading", s.authenticated(s.handleMarkAsReading))
	s.router.POST("/api/books/:id/toggle-reading", s.authenticated(s.handleToggleReading))
	s.router.POST("/api/books/:id/toggle-favorite", s.authenticated(s.handleToggleFavorite))
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"variant": s.variant,
		"routes":  routes.Table(s.variant),
	})
}

type pageResponse struct {
	Page  routes.Page     `json:"page"`
	Books json.RawMessage `json:"books,omitempty"`
	Stats *models.Stats   `json:"stats,omitempty"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	page, ok := routes.Lookup(s.variant, ps.ByName("path"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown page")
		return
	}

	resp := pageResponse{Page: page}
	var view []models.Book
	switch page {
	case routes.PageHome:
		view = s.store.Reading()
	case routes.PageLibrary:
		view = s.store.Library()
	case routes.PageBookshelf:
		view = s.store.Bookshelf()
	case routes.PageWishlist:
		view = s.store.Wishlist()
	case routes.PageStats:
		stats := s.store.Stats()
		resp.Stats = &stats
		writeJSON(w, http.StatusOK, resp)
		return
	default:
		view = []models.Book{}
	}

	raw, ok := s.encodeBooks(w, view)
	if !ok {
		return
	}
	resp.Books = raw
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
