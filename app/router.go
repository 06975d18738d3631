// Package app assembles the HTTP server: middleware, API routes and the
// static front end.
package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fapac/materiais-bff/app/aps"
	"github.com/fapac/materiais-bff/app/categories"
	"github.com/fapac/materiais-bff/app/ifc"
	"github.com/fapac/materiais-bff/app/materials"
	"github.com/fapac/materiais-bff/app/respond"
	"github.com/fapac/materiais-bff/observability"
)

const ServiceName = "materiais-bff"

type RouterOptions struct {
	Materials materials.MaterialsProvider
	// Audit is nil when the audit trail is disabled.
	Audit materials.AuditStore
	// APS is nil when no APS credentials are configured.
	APS *aps.Handler

	ModelsDir          string
	StaticDir          string
	AllowedOrigins     []string
	RateLimitPerMinute int
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Router builds the HTTP handler with every route mounted.
func Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	allowed := opts.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	limit := opts.RateLimitPerMinute
	if limit <= 0 {
		limit = 100
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}))
	r.Use(httprate.LimitByIP(limit, time.Minute))

	r.NotFound(routeNotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respond.Fail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, HealthResponse{
			Status:    "active",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.Method(http.MethodGet, "/metrics", observability.Handler())

	materials.NewMaterialsHandler(opts.Materials, opts.Audit).Routes(r)
	r.Get("/api/categories", categories.NewCategoryHandler(opts.Materials).HandleGetAll)
	if opts.APS != nil {
		opts.APS.Routes(r)
	}
	if opts.ModelsDir != "" {
		ifc.NewHandler(opts.ModelsDir).Routes(r)
	}

	if opts.StaticDir != "" {
		static := staticFiles(opts.StaticDir)
		r.Method(http.MethodGet, "/*", static)
		r.Method(http.MethodHead, "/*", static)
	}

	return otelhttp.NewHandler(r, ServiceName)
}

func routeNotFound(w http.ResponseWriter, _ *http.Request) {
	respond.Fail(w, http.StatusNotFound, "Route not found")
}

// staticFiles serves the front end. Unknown /api paths never reach the file
// server and keep the JSON envelope.
func staticFiles(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			routeNotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// accessLog writes one line per request and counts it by route pattern.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			observability.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg(r.Method + " " + r.URL.Path)
		}()

		next.ServeHTTP(ww, r)
	})
}
