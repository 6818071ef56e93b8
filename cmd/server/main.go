package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/fastery/shop-backend/internal/application"
	"github.com/fastery/shop-backend/internal/config"
	"github.com/fastery/shop-backend/internal/logging"
)

var (
	signalNotify   = signal.Notify
	newLogger      = logging.New
	newApplication = application.New
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	kingpinApp := kingpin.New("shop-backend", "Fastery shop backend - validates the environment and serves the HTTP API")
	kingpinApp.UsageWriter(stdout)
	kingpinApp.ErrorWriter(stderr)

	envFile := kingpinApp.Flag("env-file", "Dotenv file merged into the environment before validation").Envar("ENV_FILE").Default(".env").String()
	requireEnvFile := kingpinApp.Flag("require-env-file", "Fail when the env file does not exist").Bool()
	logLevel := kingpinApp.Flag("log-level", "Minimum log level").Envar("LOG_LEVEL").Default("debug").Enum("debug", "info", "warn", "error")
	logFormat := kingpinApp.Flag("log-format", "Log encoding").Envar("LOG_FORMAT").Default("console").Enum("console", "json")

	serveCmd := kingpinApp.Command("serve", "Start the HTTP server").Default()
	checkCmd := kingpinApp.Command("check-env", "Validate the environment and print the resolved configuration")

	command, err := kingpinApp.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", kingpinApp.Name, err)
		return 1
	}

	logger, err := newLogger(logging.Options{Level: *logLevel, Format: *logFormat})
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()
	boot := logger.Named("Bootstrap")

	cfg, err := config.Load(config.LoadOptions{EnvFile: *envFile, RequireEnvFile: *requireEnvFile})
	if err != nil {
		boot.Error(err.Error())
		return 1
	}

	switch command {
	case checkCmd.FullCommand():
		if err := printConfig(stdout, cfg); err != nil {
			boot.Error("failed to print configuration", zap.Error(err))
			return 1
		}
		return 0
	case serveCmd.FullCommand():
		return serve(cfg, logger)
	}
	return 1
}

func serve(cfg config.Config, logger *zap.Logger) int {
	boot := logger.Named("Bootstrap")
	boot.Info("🚀 Iniciando aplicación...")

	// Startup failures always carry a stack trace, whatever the logger config.
	fatal := boot.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel))

	app, err := newApplication(cfg, logger)
	if err != nil {
		fatal.Error("❌ Error al iniciar la aplicación", zap.Error(err))
		return 1
	}

	if err := app.Start(); err != nil {
		fatal.Error("❌ Error al iniciar la aplicación", zap.Error(err))
		return 1
	}

	if err := shutdown(app, cfg.ShutdownGracePeriod, logger); err != nil {
		return 1
	}
	return 0
}

// shutdown blocks until a termination signal or a serve failure, then stops
// the server within timeout.
func shutdown(app *application.App, timeout time.Duration, logger *zap.Logger) error {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-quit:
		logger.Info("shutting down server")
	case err, ok := <-app.Errors():
		if ok {
			serveErr = err
			logger.Error("server stopped unexpectedly", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
		return errors.Join(serveErr, err)
	}
	return serveErr
}

func printConfig(w io.Writer, cfg config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
