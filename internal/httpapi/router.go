// Package httpapi exposes the live event streams and health endpoints over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/glimte/paperless-go/contracts"
	"github.com/glimte/paperless-go/health"
	"github.com/glimte/paperless-go/sse"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Routes describes what the router serves. Nil streams are not mounted.
type Routes struct {
	OcrEvents   sse.Source[contracts.OcrEvent]
	OcrPath     string
	GenAIEvents sse.Source[contracts.GenAIEvent]
	GenAIPath   string

	// StreamOptions apply to both stream handlers
	StreamOptions []sse.HandlerOption
	// Limiter guards stream connection attempts when set
	Limiter *RateLimiter
	Health  *health.Registry
	Logger  *slog.Logger
}

// NewRouter builds the chi router: request id, panic recovery and request
// logging on every route, the probes, then the rate limited streams.
func NewRouter(routes Routes) http.Handler {
	logger := routes.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(Logging(logger))

	if routes.Health != nil {
		r.Method(http.MethodGet, "/healthz", health.NewHandler(routes.Health, healthTimeout))
		r.Get("/readyz", health.ReadinessHandler(routes.Health))
	}
	r.Get("/livez", health.LivenessHandler())

	r.Group(func(streams chi.Router) {
		if routes.Limiter != nil {
			streams.Use(routes.Limiter.Middleware)
		}
		if routes.OcrEvents != nil {
			sse.MountOcrEventStream(streams, routes.OcrPath, routes.OcrEvents, routes.StreamOptions...)
		}
		if routes.GenAIEvents != nil {
			sse.MountGenAIEventStream(streams, routes.GenAIPath, routes.GenAIEvents, routes.StreamOptions...)
		}
	})

	return r
}
