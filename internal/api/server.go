package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/bondgen/internal/config"
	"github.com/dgallion1/bondgen/internal/draftstore"
	"github.com/dgallion1/bondgen/internal/pipeline"
	"github.com/dgallion1/bondgen/internal/quota"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for bondgen.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        draftstore.Store
	limiter      quota.Limiter
	tags         *tagCache
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. A nil limiter allows
// everything.
func NewServer(orch *pipeline.Orchestrator, limiter quota.Limiter, log *slog.Logger, cfg config.Config) *Server {
	if limiter == nil {
		limiter = quota.Unlimited{}
	}
	s := &Server{
		orchestrator: orch,
		store:        orch.Store(),
		limiter:      limiter,
		tags:         newTagCache(256),
		log:          log,
		cfg:          cfg,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/schedules/maturity", s.handleMaturitySchedule)
		r.Post("/api/schedules/cusip", s.handleCusipSchedule)
		r.Post("/api/schedules/maturity/revalidate", s.handleRevalidateMaturity)
		r.Post("/api/schedules/cusip/revalidate", s.handleRevalidateCusip)
		r.Post("/api/convert/csv", s.handleConvertCSV)

		r.Post("/api/templates/tags", s.handleTemplateTags)
		r.Post("/api/words", s.handleWords)

		r.Post("/api/preview", s.handlePreview)
		r.Post("/api/generate", s.handleGenerate)
		r.Get("/api/generate/{jobID}/status", s.handleGenerateStatus)
		r.Get("/api/generate/{jobID}/download", s.handleDownload)

		r.Put("/api/drafts/{draftID}/files/{kind}", s.handlePutDraftFile)
		r.Get("/api/drafts/{draftID}/files/{kind}", s.handleGetDraftFile)
		r.Delete("/api/drafts/{draftID}", s.handleDeleteDraft)

		r.Get("/api/stats/generation", s.handleGenerationStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
