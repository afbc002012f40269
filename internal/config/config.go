// Package config loads the storefront configuration from the environment.
// A local .env file, when present, seeds the environment first; every
// variable carries the EAZSHOP_WEB_ prefix.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "eazshop_web"

// Config is the full storefront configuration.
type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`
	Env  string `envconfig:"ENV" default:"dev"`

	// APIBaseURL points at the commerce API service. Empty selects the
	// in-memory backend for backend-less development.
	APIBaseURL string `envconfig:"API_BASE_URL"`

	// DataDir roots the guest persistence store.
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// CMSBaseURL points at the remote content service; empty serves the
	// local markdown under ContentDir only.
	CMSBaseURL string `envconfig:"CMS_BASE_URL"`
	// StatusBaseURL points at the platform status feed; empty serves the
	// built-in fallback summaries.
	StatusBaseURL string `envconfig:"STATUS_BASE_URL"`

	TemplatesDir string `envconfig:"TEMPLATES_DIR" default:"./templates"`
	PublicDir    string `envconfig:"PUBLIC_DIR" default:"./public"`
	ContentDir   string `envconfig:"CONTENT_DIR" default:"./content"`
	LocalesDir   string `envconfig:"LOCALES_DIR" default:"./locales"`

	// SessionSigningKey signs the browser session cookie.
	SessionSigningKey string `envconfig:"SESSION_SIGNING_KEY"`
	// TokenSecret verifies customer JWTs minted by the commerce API. Empty
	// disables signature verification (presence-only auth, dev only).
	TokenSecret string `envconfig:"TOKEN_SECRET"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
}

// IsProd reports whether the storefront runs in the production environment.
func (c Config) IsProd() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.IsProd() && cfg.SessionSigningKey == "" {
		return Config{}, fmt.Errorf("config: EAZSHOP_WEB_SESSION_SIGNING_KEY is required in prod")
	}
	return cfg, nil
}
