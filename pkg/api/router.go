// Package api assembles the public HTTP surface of the service.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/healthtwin/platform/pkg/common/respond"
	"github.com/healthtwin/platform/pkg/gateway/middleware"
	"github.com/healthtwin/platform/pkg/observability/metrics"
)

const WelcomeMessage = "Welcome to the Digital HealthTwin System!"

// Handler is implemented by every capability package's HTTPHandler.
type Handler interface {
	Register(router *mux.Router)
}

type Options struct {
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int
	// Auth guards the capability routes when set. Liveness, welcome and
	// metrics routes stay public.
	Auth middleware.TokenValidator
}

// NewRouter wraps the routes in logging, recovery and CORS. Those run ahead
// of route matching so preflights and unmatched paths get them too.
func NewRouter(opts Options, handlers ...Handler) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.ErrorMessage(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.ErrorMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if opts.RateLimitRPS > 0 {
		router.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"message": WelcomeMessage})
	}).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	// Registered last: an unrestricted subrouter shadows later routes.
	capabilities := router.NewRoute().Subrouter()
	if opts.MaxRequestBody > 0 {
		capabilities.Use(middleware.BodyLimit(opts.MaxRequestBody))
	}
	if opts.Auth != nil {
		capabilities.Use(middleware.Authenticate(opts.Auth))
	}
	for _, h := range handlers {
		h.Register(capabilities)
	}

	return middleware.Logging(middleware.Recovery(middleware.CORS(router)))
}
