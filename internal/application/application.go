package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastery/shop-backend/internal/api"
	"github.com/fastery/shop-backend/internal/config"
	"github.com/fastery/shop-backend/internal/validation"
)

// State is the lifecycle position of an App.
type State int

const (
	StateStarting State = iota
	StateListening
	StateFailed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrAlreadyStarted is returned when Start is called more than once.
var ErrAlreadyStarted = errors.New("application already started")

// App encapsulates the HTTP server and the policies installed on it.
type App struct {
	cfg    config.Config
	pipe   *validation.Pipe
	logger *zap.Logger
	server *http.Server
	clock  func() time.Time
	listen func(network, addr string) (net.Listener, error)

	mu       sync.Mutex
	state    State
	listener net.Listener
	errs     chan error
}

// New builds the application container: it installs the global validation
// pipe and the CORS policy and prepares the HTTP server. Nothing is bound yet.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	boot := logger.Named("Bootstrap")

	pipe, err := validation.New(validation.Options{
		Transform:            true,
		Whitelist:            true,
		ForbidNonWhitelisted: true,
		ImplicitConversion:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("configure validation pipe: %w", err)
	}
	boot.Info("✅ Validación global configurada")

	corsOpts := api.DefaultCORSOptions()
	router, err := api.NewRouter(api.NewHandler(pipe, cfg.Stage), logger,
		api.WithAPIPrefix(cfg.APIPrefix),
		api.WithCORS(corsOpts),
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
	if err != nil {
		return nil, fmt.Errorf("build HTTP router: %w", err)
	}
	boot.Info(fmt.Sprintf("🌐 CORS habilitado para orígenes: %s", strings.Join(corsOpts.AllowedOrigins, ", ")),
		zap.Strings("origins", corsOpts.AllowedOrigins),
		zap.Bool("credentials", corsOpts.AllowCredentials),
	)

	return &App{
		cfg:    cfg,
		pipe:   pipe,
		logger: logger,
		server: NewServer(cfg, router),
		clock:  time.Now,
		listen: net.Listen,
		state:  StateStarting,
		errs:   make(chan error, 1),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start binds the listening socket and serves in the background. Bind
// failures are returned and move the App to StateFailed; on success the
// startup banner is logged.
func (a *App) Start() error {
	a.mu.Lock()
	if a.state != StateStarting {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}

	ln, err := a.listen("tcp", a.server.Addr)
	if err != nil {
		a.state = StateFailed
		a.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	a.listener = ln
	a.state = StateListening
	a.mu.Unlock()

	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server error", zap.Error(err))
			a.errs <- err
		}
		close(a.errs)
	}()

	a.logBanner()
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.state == StateListening {
		a.state = StateStopped
	}
	a.mu.Unlock()

	return a.server.Shutdown(ctx)
}

// Close forcefully closes the server and its connections.
func (a *App) Close() error {
	return a.server.Close()
}

// Errors delivers a serve failure that happened after Start returned. The
// channel is closed once the server stops.
func (a *App) Errors() <-chan error {
	return a.errs
}

// State reports the current lifecycle state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Addr returns the bound address, or the configured one before Start.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.server.Addr
}

// Port returns the bound TCP port, or the configured port before Start.
func (a *App) Port() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		if tcp, ok := a.listener.Addr().(*net.TCPAddr); ok {
			return tcp.Port
		}
	}
	return a.cfg.Port
}

// Server returns the HTTP server instance.
func (a *App) Server() *http.Server {
	return a.server
}
