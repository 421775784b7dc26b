package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

var globalConfig *Config

// Config holds all environment backed configuration for the API.
type Config struct {
	// HTTP Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9091"`
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// PostgreSQL read replica (optional)
	DBPostgresqlRead1DSN string `env:"DB_POSTGRESQL_READ1_DSN"`

	// Auth
	JWKSURL             string        `env:"JWKS_URL"`
	OIDCDiscoveryURL    string        `env:"OIDC_DISCOVERY_URL"`
	Issuer              string        `env:"ISSUER,notEmpty"`
	Audience            string        `env:"AUDIENCE,notEmpty"`
	RefreshJWKSInterval time.Duration `env:"JWKS_REFRESH_INTERVAL" envDefault:"5m"`
	AuthClockSkew       time.Duration `env:"AUTH_CLOCK_SKEW" envDefault:"30s"`

	// Quota ceilings per identity class and kind
	UserMessageLimit  int `env:"USER_MESSAGE_LIMIT" envDefault:"50"`
	UserImageLimit    int `env:"USER_IMAGE_LIMIT" envDefault:"5"`
	GuestMessageLimit int `env:"GUEST_MESSAGE_LIMIT" envDefault:"10"`
	GuestImageLimit   int `env:"GUEST_IMAGE_LIMIT" envDefault:"3"`

	// Chat sessions
	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"5m"`

	// Model providers
	ProviderConfigFile string                   `env:"PROVIDER_CONFIGS_FILE"`
	ProviderConfigSet  string                   `env:"PROVIDER_CONFIG_SET" envDefault:"default"`
	ProviderBootstrap  *ProviderBootstrapConfig `env:"-"`

	// Provider health sweep
	ProviderHealthEnabled         bool `env:"PROVIDER_HEALTH_ENABLED" envDefault:"true"`
	ProviderHealthIntervalMinutes int  `env:"PROVIDER_HEALTH_INTERVAL_MINUTES" envDefault:"15"`

	// Image generation
	ImageDefaultModel      string        `env:"IMAGE_DEFAULT_MODEL" envDefault:"dall-e-3"`
	ImageGenerationTimeout time.Duration `env:"IMAGE_GENERATION_TIMEOUT" envDefault:"120s"`

	// Uploads
	UploadDir      string `env:"UPLOAD_DIR" envDefault:"data/uploads"`
	UploadBaseURL  string `env:"UPLOAD_BASE_URL" envDefault:"/v1/uploads"`
	UploadMaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`

	// Observability / Logging
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	OTLPEndpoint     string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string        `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string        `env:"SERVICE_NAME" envDefault:"ai-services-backend"`
	ServiceNamespace string        `env:"SERVICE_NAMESPACE" envDefault:"aiservices"`
	Environment      string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`

	// Internal
	EnvReloadedAt time.Time
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.ProviderConfigSet = strings.TrimSpace(cfg.ProviderConfigSet)
	if cfg.ProviderConfigSet == "" {
		cfg.ProviderConfigSet = "default"
	}

	if configFile := strings.TrimSpace(cfg.ProviderConfigFile); configFile != "" {
		bootstrap, err := LoadProviderBootstrapConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("load provider configs: %w", err)
		}
		cfg.ProviderBootstrap = bootstrap
		if len(bootstrap.ProvidersForSet(cfg.ProviderConfigSet)) == 0 {
			return nil, fmt.Errorf("provider config set %q is missing or empty in %s", cfg.ProviderConfigSet, configFile)
		}
	} else {
		cfg.ProviderBootstrap = DefaultProviderBootstrap()
	}

	if cfg.JWKSURL == "" && cfg.OIDCDiscoveryURL == "" {
		return nil, errors.New("either JWKS_URL or OIDC_DISCOVERY_URL must be provided")
	}

	if cfg.JWKSURL != "" {
		if _, err := url.ParseRequestURI(cfg.JWKSURL); err != nil {
			return nil, fmt.Errorf("invalid JWKS_URL: %w", err)
		}
	}

	if cfg.OIDCDiscoveryURL != "" {
		if _, err := url.ParseRequestURI(cfg.OIDCDiscoveryURL); err != nil {
			return nil, fmt.Errorf("invalid OIDC_DISCOVERY_URL: %w", err)
		}
	}

	for name, limit := range map[string]int{
		"USER_MESSAGE_LIMIT":  cfg.UserMessageLimit,
		"USER_IMAGE_LIMIT":    cfg.UserImageLimit,
		"GUEST_MESSAGE_LIMIT": cfg.GuestMessageLimit,
		"GUEST_IMAGE_LIMIT":   cfg.GuestImageLimit,
	} {
		if limit < 0 {
			return nil, fmt.Errorf("%s must not be negative", name)
		}
	}

	if cfg.SessionTimeout <= 0 {
		return nil, errors.New("SESSION_TIMEOUT must be positive")
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.EnvReloadedAt = time.Now()

	globalConfig = cfg

	return cfg, nil
}

// ResolveJWKSURL returns the JWKS endpoint using either the explicit JWKS_URL
// or the OIDC discovery document.
func (c *Config) ResolveJWKSURL(ctx context.Context) (string, error) {
	if c.JWKSURL != "" {
		return c.JWKSURL, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.OIDCDiscoveryURL, nil)
	if err != nil {
		return "", fmt.Errorf("oidc discovery request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch oidc discovery: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oidc discovery unexpected status: %s", resp.Status)
	}

	var doc struct {
		JWKSURL string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode oidc discovery: %w", err)
	}

	if doc.JWKSURL == "" {
		return "", errors.New("jwks_uri not found in discovery document")
	}

	return doc.JWKSURL, nil
}

// GetGlobal returns the global config instance.
func GetGlobal() *Config {
	return globalConfig
}

// ProviderBootstrapEntries returns the configured provider definitions for the active set.
func (c *Config) ProviderBootstrapEntries() []ProviderBootstrapEntry {
	if c == nil || c.ProviderBootstrap == nil {
		return nil
	}
	return c.ProviderBootstrap.ProvidersForSet(c.ProviderConfigSet)
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
