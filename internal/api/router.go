package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RouterOption configures the behaviour of NewRouter.
type RouterOption func(*routerConfig)

// WithLogging controls whether access logs are emitted.
func WithLogging(enabled bool) RouterOption {
	return func(cfg *routerConfig) {
		cfg.enableLogging = enabled
	}
}

// WithRateLimiter overrides the default request rate limiter (primarily for tests).
func WithRateLimiter(limiter rateLimiter) RouterOption {
	return func(cfg *routerConfig) {
		cfg.rateLimiter = limiter
	}
}

// WithRateLimit configures per-client token bucket limiting. A zero rate or
// burst disables limiting.
func WithRateLimit(rps float64, burst int) RouterOption {
	return func(cfg *routerConfig) {
		if rps <= 0 || burst <= 0 {
			cfg.rateLimiter = nil
			return
		}
		cfg.rateLimiter = newClientLimiter(rps, burst)
	}
}

// WithAPIPrefix mounts every route below prefix (for example "/api").
func WithAPIPrefix(prefix string) RouterOption {
	return func(cfg *routerConfig) {
		cfg.prefix = prefix
	}
}

// WithCORS replaces the default cross-origin policy.
func WithCORS(opts CORSOptions) RouterOption {
	return func(cfg *routerConfig) {
		cfg.cors = opts
	}
}

type routerConfig struct {
	enableLogging bool
	logger        *zap.Logger
	rateLimiter   rateLimiter
	prefix        string
	cors          CORSOptions
}

// NewRouter creates the HTTP router with the standard middleware chain.
func NewRouter(handler *Handler, logger *zap.Logger, opts ...RouterOption) (http.Handler, error) {
	cfg := routerConfig{
		enableLogging: true,
		logger:        logger,
		rateLimiter:   newClientLimiter(25, 50),
		cors:          DefaultCORSOptions(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	corsHandler, err := newCORSPolicy(cfg.cors)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimSuffix(cfg.prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		return nil, fmt.Errorf("api prefix %q must start with /", cfg.prefix)
	}

	httpLogger := cfg.logger.Named("HTTP")

	r := chi.NewRouter()
	// CORS wraps the limiter so 429s carry CORS headers. RemoteAddr is the
	// limiter key and forwarding headers must not rewrite it.
	r.Use(requestIDMiddleware)
	r.Use(corsHandler)
	r.Use(func(next http.Handler) http.Handler {
		return rateLimitMiddleware(cfg.rateLimiter, next)
	})
	if cfg.enableLogging {
		r.Use(func(next http.Handler) http.Handler {
			return loggingMiddleware(httpLogger, next)
		})
	}
	r.Use(func(next http.Handler) http.Handler {
		return recoveryMiddleware(httpLogger, next)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not Found", fmt.Sprintf("cannot %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed", fmt.Sprintf("cannot %s %s", r.Method, r.URL.Path))
	})

	routes := func(r chi.Router) {
		r.Get("/health", handler.handleHealth)
	}
	if prefix == "" {
		routes(r)
	} else {
		r.Route(prefix, routes)
	}

	return r, nil
}

func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
	})
}

func recoveryMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					zap.Any("error", rec),
					zap.String("request_id", requestIDFromContext(r.Context())),
				)
				writeError(w, r, http.StatusInternalServerError, "Internal error", "unexpected server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(contextWithRequestID(r.Context(), requestID)))
	})
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
