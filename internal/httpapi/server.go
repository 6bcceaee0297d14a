// Package httpapi exposes the upload endpoints and serves hosted projects.
package httpapi

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MalithGihan/sitehost-service/internal/metrics"
	"github.com/MalithGihan/sitehost-service/internal/phpcgi"
	"github.com/MalithGihan/sitehost-service/internal/project"
	"github.com/MalithGihan/sitehost-service/internal/store"
)

//go:embed templates/*.html
var templates embed.FS

// memoryLimit is how much of a multipart body is kept in memory before
// spilling to temp files.
const memoryLimit = 32 << 20

type Config struct {
	Addr     string
	MaxBytes int64
	// PHP is nil when .php execution is disabled.
	PHP *phpcgi.Bridge
}

type Server struct {
	router    chi.Router
	http      *http.Server
	store     *store.FS
	publisher *project.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	config    Config
	pages     *template.Template
}

func NewServer(st *store.FS, pub *project.Publisher, m *metrics.Metrics, logger *zap.Logger, cfg Config) (*Server, error) {
	if st == nil || pub == nil {
		return nil, fmt.Errorf("store and publisher are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if m == nil {
		m = metrics.New()
	}
	pages, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		store:     st,
		publisher: pub,
		metrics:   m,
		logger:    logger,
		config:    cfg,
		pages:     pages,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "sitehost"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Post("/upload-folder", s.handleUploadFolder)
	r.Post("/upload", s.handleUpload)

	r.Get("/sites", s.handleListSites)
	r.Get("/sites/", s.handleListSites)
	r.HandleFunc("/sites/{project}", s.handleSite)
	r.HandleFunc("/sites/{project}/*", s.handleSite)
	return r
}

// requestLogger logs every request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ServeHTTP lets the server be used directly as a handler (tests, embedding).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.config.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.http.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, "index.html", nil); err != nil {
		s.logger.Error("render index", zap.Error(err))
	}
}
