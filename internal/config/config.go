package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/fastery/shop-backend/internal/validation"
)

// ErrInvalidEnv wraps every failure to produce a Config from the environment.
var ErrInvalidEnv = errors.New("config env error")

// Config is the validated startup configuration. It is built once by Load and
// treated as read-only afterwards.
type Config struct {
	Port        int    `envconfig:"PORT" required:"true" validate:"min=1,max=65535" yaml:"port"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true" validate:"required,url" yaml:"dbUrl"`
	APIPrefix   string `envconfig:"API_PREFIX" required:"true" validate:"notblank" yaml:"apiPrefix"`
	Stage       string `envconfig:"STAGE" required:"true" validate:"notblank" yaml:"stage"`

	ShutdownGracePeriod  time.Duration `envconfig:"SHUTDOWN_GRACE_PERIOD" default:"10s" validate:"gte=0" yaml:"shutdownGracePeriod"`
	ReadHeaderTimeout    time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s" validate:"gte=0" yaml:"readHeaderTimeout"`
	WriteTimeout         time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s" validate:"gte=0" yaml:"writeTimeout"`
	IdleTimeout          time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s" validate:"gte=0" yaml:"idleTimeout"`
	EnableRequestLogging bool          `envconfig:"ENABLE_REQUEST_LOGGING" default:"true" yaml:"enableRequestLogging"`
	RateLimitRPS         float64       `envconfig:"RATE_LIMIT_RPS" default:"25" validate:"gte=0" yaml:"rateLimitRps"`
	RateLimitBurst       int           `envconfig:"RATE_LIMIT_BURST" default:"50" validate:"gte=0" yaml:"rateLimitBurst"`
}

// LoadOptions controls where Load reads values from besides the process environment.
type LoadOptions struct {
	// EnvFile is a dotenv file merged into the environment before decoding.
	// Variables already set in the process take precedence.
	EnvFile string
	// RequireEnvFile turns a missing EnvFile into an error.
	RequireEnvFile bool
}

// Load reads the environment once, validates it and returns the resulting
// Config. Unknown variables are ignored.
func Load(opts LoadOptions) (Config, error) {
	if err := loadEnvFile(opts); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidEnv, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidEnv, err)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidEnv, err)
	}

	cfg.APIPrefix = normalizePrefix(cfg.APIPrefix)

	return cfg, nil
}

// Addr returns the listen address for the configured port.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Redacted returns a copy that is safe to print: credentials in the database
// URL are masked.
func (c Config) Redacted() Config {
	out := c
	if u, err := url.Parse(c.DatabaseURL); err == nil {
		out.DatabaseURL = u.Redacted()
	}
	return out
}

func loadEnvFile(opts LoadOptions) error {
	if opts.EnvFile == "" {
		return nil
	}

	err := godotenv.Load(opts.EnvFile)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !opts.RequireEnvFile {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
}

func validateConfig(cfg Config) error {
	v, err := validation.NewValidator()
	if err != nil {
		return err
	}
	if err := v.Struct(cfg); err != nil {
		return errors.New(strings.Join(validation.Messages(err), "; "))
	}
	return nil
}

// normalizePrefix returns the prefix with a single leading slash and no
// trailing slash. A bare "/" mounts routes at the root.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}
