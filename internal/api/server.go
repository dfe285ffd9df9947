package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/clusterdesk/internal/cluster"
	"github.com/dgallion1/clusterdesk/internal/config"
	"github.com/dgallion1/clusterdesk/internal/corpus"
	"github.com/dgallion1/clusterdesk/internal/viewstats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DocumentStore is the write side used by uploads and health checks.
type DocumentStore interface {
	Docket(ctx context.Context, id string) (*corpus.Docket, error)
	PutDocument(ctx context.Context, d *corpus.Document) error
	Ping(ctx context.Context) error
}

// Server is the HTTP API server for clusterdesk.
type Server struct {
	router  chi.Router
	service *cluster.Service
	docs    DocumentStore
	stats   *viewstats.Stats
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(svc *cluster.Service, docs DocumentStore, stats *viewstats.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		service: svc,
		docs:    docs,
		stats:   stats,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/stats/views", s.handleViewStats)

	r.Route("/api/docket/{docketID}", func(r chi.Router) {
		r.Get("/hierarchy", s.handleDocketHierarchy)
		r.Get("/hierarchy_teaser", s.handleTeaser(cluster.ItemDocket, "docketID"))
		r.Get("/cluster/{clusterID}", s.handleSingleCluster)
		r.Get("/cluster/{clusterID}/document/{documentID}", s.handleDocumentCluster)
		r.Get("/clusters_for_document/{documentID}", s.handleClusterChain)
	})
	r.Get("/api/document/{itemID}/hierarchy_teaser", s.handleTeaser(cluster.ItemDocument, "itemID"))

	if s.docs != nil {
		r.Post("/api/import", s.handleImport)
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.docs != nil {
		if err := s.docs.Ping(r.Context()); err != nil {
			s.log.Error("health check failed", "error", err)
			jsonError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
