package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/fastery/shop-backend/internal/validation"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler serves the endpoints owned by the bootstrap layer. Every input is
// bound through the application-wide validation pipe.
type Handler struct {
	pipe  *validation.Pipe
	stage string

	clock     func() time.Time
	startedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler bound to the given pipe and environment stage.
func NewHandler(pipe *validation.Pipe, stage string, opts ...HandlerOption) *Handler {
	h := &Handler{
		pipe:  pipe,
		stage: stage,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.startedAt = h.clock()
	return h
}

type healthQuery struct {
	Verbose bool `json:"verbose"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	var query healthQuery
	if err := h.pipe.DecodeQuery(r.URL.Query(), &query); err != nil {
		writeBindError(w, r, err)
		return
	}

	now := h.clock()
	resp := healthResponse{
		Status:    "ok",
		Timestamp: now,
	}
	if query.Verbose {
		resp.Stage = h.stage
		resp.Uptime = now.Sub(h.startedAt).Round(time.Second).String()
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Stage     string    `json:"stage,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Details  string   `json:"details,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	render.Status(r, status)
	render.JSON(w, r, payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message, details string) {
	writeJSON(w, r, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeBindError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{
			Error:    "Bad Request",
			Messages: verr.Messages,
		})
		return
	}
	writeError(w, r, http.StatusInternalServerError, "Internal error", err.Error())
}
