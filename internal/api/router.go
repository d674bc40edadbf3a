package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"creatorpack/internal/ingest"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
	"creatorpack/internal/metrics"
)

const component = "api"

// Ingester creates jobs from validated requests.
type Ingester interface {
	CreateUpload(ctx context.Context, req ingest.UploadRequest) (*jobs.Job, error)
	CreateYouTube(ctx context.Context, req ingest.YouTubeRequest) (*jobs.Job, error)
}

// StatusFunc reports daemon status for GET /api/status.
type StatusFunc func(ctx context.Context) DaemonStatus

// Options wires the router to its collaborators. Store and Ingest are
// required; the rest are optional.
type Options struct {
	Store          jobs.Store
	Ingest         Ingester
	Status         StatusFunc
	Metrics        *metrics.Registry
	ExposeMetrics  bool
	Logger         *slog.Logger
	CORSOrigins    []string
	MaxUploadBytes int64
}

type handler struct {
	store          jobs.Store
	ingest         Ingester
	status         StatusFunc
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewRouter builds the HTTP handler for the daemon API.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &handler{
		store:          opts.Store,
		ingest:         opts.Ingest,
		status:         opts.Status,
		logger:         logging.NewComponentLogger(logger, component),
		maxUploadBytes: opts.MaxUploadBytes,
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(
		opts.Metrics.HTTPMiddleware,
		cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}),
		middleware.RequestID,
		requestLogger(h.logger),
		middleware.Recoverer,
	)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, errNotFound("Not found"))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, &ErrorResponse{HTTPStatusCode: http.StatusMethodNotAllowed, Message: "Method not allowed"})
	})

	router.Get("/api/health", h.health)
	if h.status != nil {
		router.Get("/api/status", h.daemonStatus)
	}
	router.Route("/api/jobs", func(r chi.Router) {
		r.Get("/", h.listJobs)
		r.Post("/upload", h.createUpload)
		r.Post("/youtube", h.createYouTube)
		r.Get("/{id}", h.getJob)
		r.Get("/{id}/artifacts/{name}", h.getArtifact)
	})
	if opts.ExposeMetrics && opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	return router
}
