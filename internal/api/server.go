package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/musexhq/musex/internal/dimension"
	"github.com/musexhq/musex/internal/graph"
	"github.com/musexhq/musex/internal/recommend"
	"github.com/musexhq/musex/internal/storage"
)

// Options collects the server's collaborators and tunables.
type Options struct {
	Graph       *graph.Service
	Recommend   *recommend.Service
	Entities    storage.EntityRepository
	Stats       storage.StatsRepository
	Normalizer  *dimension.Normalizer
	Logger      *zap.Logger
	CORSOrigins []string
	// NodeLimit is the default node budget when the client sends none.
	NodeLimit int
}

type Server struct {
	router     *chi.Mux
	graph      *graph.Service
	recommend  *recommend.Service
	entities   storage.EntityRepository
	stats      storage.StatsRepository
	normalizer *dimension.Normalizer
	logger     *zap.Logger
	nodeLimit  int
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	limit := opts.NodeLimit
	if limit <= 0 {
		limit = 1000
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(requestMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s := &Server{
		router:     r,
		graph:      opts.Graph,
		recommend:  opts.Recommend,
		entities:   opts.Entities,
		stats:      opts.Stats,
		normalizer: opts.Normalizer,
		logger:     logger,
		nodeLimit:  limit,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/dimensions", s.handleDimensions)
	s.router.Get("/graph", s.handleGraph)
	s.router.Get("/select", s.handleSelect)
	s.router.Get("/search", s.handleSearch)
	s.router.Get("/labels", s.handleLabels)
	s.router.Get("/genres", s.handleGenres)
	s.router.Get("/years", s.handleYears)
}

// Handler exposes the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
