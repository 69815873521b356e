package types

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	DefaultStaleSeconds = 300
	DefaultMaxRetries   = 3
	DefaultBaseDelayMS  = 1000
	DefaultMaxDelayMS   = 10000
	DefaultRefreshPath  = "/auth/refresh"
	DefaultServerPort   = 8080
	MinJWTSecretLength  = 16

	DefaultErrorCodeExpr    = "code || error.code"
	DefaultErrorMessageExpr = "message || error.message || error"
)

// Config drives both the admin client and the reference server. It is read from YAML and
// then overridden by environment variables (see ApplyEnv).
type Config struct {
	API    APIConfig    `yaml:"api"`
	Retry  RetryConfig  `yaml:"retry"`
	Cache  CacheConfig  `yaml:"cache"`
	Errors ErrorsConfig `yaml:"errors"`
	Server ServerConfig `yaml:"server"`
}

type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RefreshPath    string `yaml:"refresh_path"`
	// Token and RefreshToken are usually supplied through FOLIO_TOKEN / FOLIO_REFRESH_TOKEN.
	Token        string `yaml:"token"`
	RefreshToken string `yaml:"refresh_token"`
}

// RetryConfig bounds the retries of transport failures. Delay for attempt n (0 based) is
// BaseDelayMS * 2^n, capped at MaxDelayMS.
type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries"`
	BaseDelayMS int `yaml:"base_delay_ms"`
	MaxDelayMS  int `yaml:"max_delay_ms"`
}

func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// CacheConfig holds the staleness windows of the query store, per resource.
type CacheConfig struct {
	DefaultStaleSeconds int            `yaml:"default_stale_seconds"`
	StaleSeconds        map[string]int `yaml:"stale_seconds"`
}

// StaleAfter returns the staleness window for a resource.
func (c CacheConfig) StaleAfter(resource string) time.Duration {
	if s, ok := c.StaleSeconds[resource]; ok {
		return time.Duration(s) * time.Second
	}
	return time.Duration(c.DefaultStaleSeconds) * time.Second
}

// ErrorsConfig holds JMESPath expressions evaluated against JSON error bodies.
type ErrorsConfig struct {
	CodeExpr    string `yaml:"code_expr"`
	MessageExpr string `yaml:"message_expr"`
}

type ServerConfig struct {
	Port            int    `yaml:"port"`
	Backend         string `yaml:"backend"`
	JWTSecret       string `yaml:"jwt_secret"`
	UploadPublicURL string `yaml:"upload_public_url"`
	TopicArn        string `yaml:"topic_arn"`
}

func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8080",
			TimeoutSeconds: 30,
			RefreshPath:    DefaultRefreshPath,
		},
		Retry: RetryConfig{
			MaxRetries:  DefaultMaxRetries,
			BaseDelayMS: DefaultBaseDelayMS,
			MaxDelayMS:  DefaultMaxDelayMS,
		},
		Cache: CacheConfig{
			DefaultStaleSeconds: DefaultStaleSeconds,
			StaleSeconds: map[string]int{
				ResourceProfile: 600,
			},
		},
		Errors: ErrorsConfig{
			CodeExpr:    DefaultErrorCodeExpr,
			MessageExpr: DefaultErrorMessageExpr,
		},
		Server: ServerConfig{
			Port:            DefaultServerPort,
			UploadPublicURL: "/uploads",
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, Err(ErrInvalidConfig, err, "read %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, Err(ErrInvalidConfig, err, "parse %s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.API.BaseURL, "FOLIO_API_URL")
	set(&c.API.Token, "FOLIO_TOKEN")
	set(&c.API.RefreshToken, "FOLIO_REFRESH_TOKEN")
	set(&c.Server.JWTSecret, "FOLIO_JWT_SECRET")
	set(&c.Server.Backend, "RESOURCE_BACKEND")
	set(&c.Server.TopicArn, "SNS_TOPIC_ARN")
	set(&c.Server.UploadPublicURL, "FOLIO_UPLOAD_PUBLIC_URL")
}

func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL")
	}
	if c.API.TimeoutSeconds < 0 {
		return fmt.Errorf("api.timeout_seconds must be non-negative. 0 for no timeout")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be non-negative")
	}
	if c.Retry.BaseDelayMS < 0 || c.Retry.MaxDelayMS < c.Retry.BaseDelayMS {
		return fmt.Errorf("retry.max_delay_ms must be greater than or equal to retry.base_delay_ms")
	}
	if c.Cache.DefaultStaleSeconds < 0 {
		return fmt.Errorf("cache.default_stale_seconds must be non-negative")
	}
	for r, s := range c.Cache.StaleSeconds {
		if s < 0 {
			return fmt.Errorf("cache.stale_seconds[%s] must be non-negative", r)
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}
	return nil
}

// ValidateServer checks the settings only the reference server needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Server.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("server.jwt_secret must be at least %d characters", MinJWTSecretLength)
	}
	return nil
}
