package bloglist

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a bloglist server.
type Config struct {
	Name        string `yaml:"name"`        // Feed title (default "Bloglist")
	Description string `yaml:"description"` // Feed description
	BaseURL     string `yaml:"base_url"`    // Public URL (default "http://localhost:3003")

	Addr         string `yaml:"addr"`          // Listen address (default ":3003")
	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/bloglist.db")
	Env          string `yaml:"env"`           // "production", "development" or "test"

	TokenSecret  string        `yaml:"token_secret"`  // Required: HMAC key for login tokens
	TokenTTL     time.Duration `yaml:"token_ttl"`     // Token lifetime (default 1h)
	PasswordCost int           `yaml:"password_cost"` // bcrypt cost (default 10)

	LoginAttempts int           `yaml:"login_attempts"` // Failed logins allowed per window (default 5)
	LoginWindow   time.Duration `yaml:"login_window"`   // (default 1m)

	BlogCacheTTL time.Duration `yaml:"blog_cache_ttl"` // Blog list cache TTL (default 1m)
	AllowOrigins []string      `yaml:"allow_origins"`  // CORS origins (default ["*"])
	BodyLimit    string        `yaml:"body_limit"`     // Max request body (default "1M")
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Bloglist"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:3003"
	}
	if c.Addr == "" {
		c.Addr = ":3003"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/bloglist.db"
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = time.Hour
	}
	if c.PasswordCost == 0 {
		c.PasswordCost = 10
	}
	if c.LoginAttempts == 0 {
		c.LoginAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
	if c.BlogCacheTTL == 0 {
		c.BlogCacheTTL = time.Minute
	}
	if len(c.AllowOrigins) == 0 {
		c.AllowOrigins = []string{"*"}
	}
	if c.BodyLimit == "" {
		c.BodyLimit = "1M"
	}
}

func (c *Config) validate() error {
	if c.TokenSecret == "" {
		return errors.New("bloglist: TokenSecret is required")
	}
	return nil
}

// IsTest reports whether the server runs in test mode.
func (c *Config) IsTest() bool { return c.Env == "test" }

// LoadConfig reads the YAML file at path (skipped when path is empty) and
// then applies environment overrides.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("bloglist: read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("bloglist: parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	cfg.Env = EnvOr("BLOGLIST_ENV", EnvOr("NODE_ENV", cfg.Env))
	cfg.DatabasePath = EnvOr("BLOGLIST_DB", cfg.DatabasePath)
	if cfg.Env == "test" {
		cfg.DatabasePath = EnvOr("BLOGLIST_TEST_DB", cfg.DatabasePath)
	}
	cfg.TokenSecret = EnvOr("SECRET", cfg.TokenSecret)
	cfg.BaseURL = EnvOr("BLOGLIST_URL", cfg.BaseURL)
	if origins := os.Getenv("BLOGLIST_ALLOW_ORIGINS"); origins != "" {
		cfg.AllowOrigins = strings.Split(origins, ",")
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger replaces the logger built from Config.Env.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}
