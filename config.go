package rexel

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const envPrefix = "REXEL_API_"

// Config is the environment form of the client options. Every variable is
// prefixed with REXEL_API_, e.g. REXEL_API_BASE_URL.
type Config struct {
	BaseURL       string        `env:"BASE_URL,required,notEmpty"`
	PublicPrefix  string        `env:"PUBLIC_PREFIX" envDefault:"api/v1/public"`
	SecuredPrefix string        `env:"SECURED_PREFIX" envDefault:"api/v1/secured"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"30s"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	SessionHeader string        `env:"SESSION_HEADER" envDefault:"X-Session-ID"`
	HealthPath    string        `env:"HEALTH_PATH" envDefault:"health"`
	HealthTimeout time.Duration `env:"HEALTH_TIMEOUT" envDefault:"5s"`

	// Defaults for calls that opt into retrying.
	RetryAttempts    int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay       time.Duration `env:"RETRY_DELAY" envDefault:"1s"`
	RetryExponential bool          `env:"RETRY_EXPONENTIAL" envDefault:"true"`
	RetryMaxDelay    time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`

	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64 `env:"RATE_LIMIT" envDefault:"0"`
	RateBurst int     `env:"RATE_BURST" envDefault:"1"`

	// TokenFile, when set, backs the token source with a FileTokenStore.
	TokenFile string `env:"TOKEN_FILE"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	Metrics   bool   `env:"METRICS" envDefault:"false"`
}

// LoadConfig reads the client configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: envPrefix})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Options translates the configuration into client options. logger is
// leveled according to LogLevel.
func (cfg *Config) Options(logger zerolog.Logger) ([]Option, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	opts := []Option{
		WithBaseURL(cfg.BaseURL),
		WithRoutePrefixes(RoutePrefixes{Public: cfg.PublicPrefix, Secured: cfg.SecuredPrefix}),
		WithTimeout(cfg.Timeout),
		WithCacheTTL(cfg.CacheTTL),
		WithSessionHeader(cfg.SessionHeader),
		WithHealthCheck(cfg.HealthPath, cfg.HealthTimeout),
		WithRetryDefaults(RetryConfig{
			Attempts:           cfg.RetryAttempts,
			Delay:              cfg.RetryDelay,
			ExponentialBackoff: cfg.RetryExponential,
			MaxDelay:           cfg.RetryMaxDelay,
		}),
		WithLogger(logger.Level(level)),
	}

	if cfg.RateLimit > 0 {
		opts = append(opts, WithRateLimit(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	}
	if cfg.TokenFile != "" {
		store, err := NewFileTokenStore(cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("token file: %w", err)
		}
		opts = append(opts, WithTokenSource(store))
	}
	if cfg.Metrics {
		opts = append(opts, WithMetrics())
	}
	return opts, nil
}

// NewFromConfig builds a client from cfg. extra options are applied last.
func NewFromConfig(cfg *Config, logger zerolog.Logger, extra ...Option) (*Client, error) {
	opts, err := cfg.Options(logger)
	if err != nil {
		return nil, err
	}
	client := New(append(opts, extra...)...)
	if err := client.ValidationError(); err != nil {
		return nil, err
	}
	return client, nil
}
