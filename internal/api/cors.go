package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/cors"
)

var defaultAllowedOrigins = []string{
	"https://shop.fastery.dev",
	"http://localhost:3000",
}

// ErrInvalidCORS is returned when a CORS policy cannot be enforced safely.
var ErrInvalidCORS = errors.New("invalid CORS configuration")

// CORSOptions describes the cross-origin policy applied to every route.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowCredentials bool
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	MaxAge           time.Duration
}

// DefaultAllowedOrigins returns the origins allowed to call the API from a browser.
func DefaultAllowedOrigins() []string {
	return slices.Clone(defaultAllowedOrigins)
}

// DefaultCORSOptions allows the storefront origins with credentials.
func DefaultCORSOptions() CORSOptions {
	return CORSOptions{
		AllowedOrigins:   DefaultAllowedOrigins(),
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		MaxAge:           24 * time.Hour,
	}
}

// newCORSPolicy checks opts and returns the go-chi/cors middleware enforcing them.
// Only explicit http(s) origins are accepted.
func newCORSPolicy(opts CORSOptions) (func(http.Handler) http.Handler, error) {
	if len(opts.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("%w: no allowed origins", ErrInvalidCORS)
	}

	origins := make([]string, 0, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		if strings.Contains(origin, "*") {
			if opts.AllowCredentials {
				return nil, fmt.Errorf("%w: wildcard origin cannot be combined with credentials", ErrInvalidCORS)
			}
			return nil, fmt.Errorf("%w: wildcard origins are not supported", ErrInvalidCORS)
		}
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || (u.Path != "" && u.Path != "/") {
			return nil, fmt.Errorf("%w: malformed origin %q", ErrInvalidCORS, origin)
		}
		origins = append(origins, strings.TrimSuffix(origin, "/"))
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   opts.AllowedMethods,
		AllowedHeaders:   opts.AllowedHeaders,
		ExposedHeaders:   opts.ExposedHeaders,
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           int(opts.MaxAge.Seconds()),
	}), nil
}
