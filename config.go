package blogimageeditor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"

	"github.com/Hamzashehzad1/blogimageeditor/candidates"
	"github.com/Hamzashehzad1/blogimageeditor/llm"
	"github.com/Hamzashehzad1/blogimageeditor/pexels"
	"github.com/Hamzashehzad1/blogimageeditor/reduce"
	"github.com/Hamzashehzad1/blogimageeditor/wordpress"
)

// Config holds all configuration for the editor.
type Config struct {
	Addr          string `yaml:"addr"`           // Listen address (default ":5000")
	DatabasePath  string `yaml:"database_path"`  // SQLite path (default "data/editor.db")
	StaticDir     string `yaml:"static_dir"`     // User static assets (default "public")
	UploadsDir    string `yaml:"uploads_dir"`    // Reduced images (default "<static_dir>/uploads")
	SessionSecret string `yaml:"session_secret"` // Required: cookie signing secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS
	LogLevel      string `yaml:"log_level"`

	LLM       LLMConfig       `yaml:"llm"`
	Pexels    PexelsConfig    `yaml:"pexels"`
	Images    ImageConfig     `yaml:"images"`
	WordPress WordPressConfig `yaml:"wordpress"`

	PostCacheTTL   time.Duration `yaml:"post_cache_ttl"`   // default 5m
	QueryCacheSize int           `yaml:"query_cache_size"` // default 256
	QueryCacheTTL  time.Duration `yaml:"query_cache_ttl"`  // default 1h

	ConnectAttempts int           `yaml:"connect_attempts"` // per IP per window (default 5)
	ConnectWindow   time.Duration `yaml:"connect_window"`   // default 1m
}

// LLMConfig points at any OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type PexelsConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ImageConfig controls candidate paging and asset reduction.
type ImageConfig struct {
	MaxBytes         int           `yaml:"max_bytes"` // ceiling per stored asset (default 102400)
	MaxWidth         int           `yaml:"max_width"`
	PerPage          int           `yaml:"per_page"`
	DownloadTimeout  time.Duration `yaml:"download_timeout"`
	DownloadAttempts int           `yaml:"download_attempts"`
}

type WordPressConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	UploadTimeout time.Duration `yaml:"upload_timeout"`
	PostsPerPage  int           `yaml:"posts_per_page"`
}

// LoadConfig reads an optional YAML file (with $VAR expansion), applies
// environment overrides and defaults, then validates.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Addr = ":" + v
	}
	c.Addr = EnvOr("ADDR", c.Addr)
	c.DatabasePath = EnvOr("DATABASE_URL", c.DatabasePath)
	c.SessionSecret = EnvOr("SESSION_SECRET", c.SessionSecret)
	c.LogLevel = EnvOr("LOG_LEVEL", c.LogLevel)
	c.LLM.APIKey = EnvOr("GEMINI_API_KEY", c.LLM.APIKey)
	c.LLM.APIKey = EnvOr("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = EnvOr("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = EnvOr("LLM_MODEL", c.LLM.Model)
	c.Pexels.APIKey = EnvOr("PEXELS_API_KEY", c.Pexels.APIKey)
	if v, err := strconv.ParseBool(os.Getenv("COOKIE_SECURE")); err == nil {
		c.CookieSecure = v
	}
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":5000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/editor.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.UploadsDir == "" {
		c.UploadsDir = c.StaticDir + "/uploads"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = llm.GeminiBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.5-flash"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.Pexels.BaseURL == "" {
		c.Pexels.BaseURL = pexels.DefaultBaseURL
	}
	if c.Pexels.Timeout == 0 {
		c.Pexels.Timeout = 10 * time.Second
	}
	if c.Images.MaxBytes == 0 {
		c.Images.MaxBytes = 100 * 1024
	}
	if c.Images.MaxWidth == 0 {
		c.Images.MaxWidth = reduce.DefaultMaxWidth
	}
	if c.Images.PerPage == 0 {
		c.Images.PerPage = candidates.DefaultPageSize
	}
	if c.Images.DownloadTimeout == 0 {
		c.Images.DownloadTimeout = 15 * time.Second
	}
	if c.Images.DownloadAttempts == 0 {
		c.Images.DownloadAttempts = 1
	}
	if c.WordPress.Timeout == 0 {
		c.WordPress.Timeout = wordpress.DefaultTimeout
	}
	if c.WordPress.UploadTimeout == 0 {
		c.WordPress.UploadTimeout = wordpress.DefaultUploadTimeout
	}
	if c.WordPress.PostsPerPage == 0 {
		c.WordPress.PostsPerPage = 10
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.QueryCacheSize == 0 {
		c.QueryCacheSize = 256
	}
	if c.QueryCacheTTL == 0 {
		c.QueryCacheTTL = time.Hour
	}
	if c.ConnectAttempts == 0 {
		c.ConnectAttempts = 5
	}
	if c.ConnectWindow == 0 {
		c.ConnectWindow = time.Minute
	}
}

// Validate checks required settings. API keys are not required at startup;
// the features that need them fail with a typed error instead.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DatabasePath, validation.Required),
		validation.Field(&c.SessionSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&c.ConnectAttempts, validation.Min(1)),
	); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&c.LLM,
		validation.Field(&c.LLM.BaseURL, validation.Required, is.URL),
		validation.Field(&c.LLM.Model, validation.Required),
	); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := validation.ValidateStruct(&c.Pexels,
		validation.Field(&c.Pexels.BaseURL, validation.Required, is.URL),
	); err != nil {
		return fmt.Errorf("pexels: %w", err)
	}
	if err := validation.ValidateStruct(&c.Images,
		validation.Field(&c.Images.MaxBytes, validation.Min(1024)),
		validation.Field(&c.Images.MaxWidth, validation.Min(1)),
		validation.Field(&c.Images.PerPage, validation.Min(1), validation.Max(pexels.MaxPerPage)),
		validation.Field(&c.Images.DownloadAttempts, validation.Min(1), validation.Max(5)),
	); err != nil {
		return fmt.Errorf("images: %w", err)
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithStaticDir sets the directory for user-owned static assets.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithCompleter replaces the text-generation backend.
func WithCompleter(m llm.Completer) Option {
	return func(a *App) {
		a.completer = m
	}
}

// WithImageProvider replaces the image-search backend.
func WithImageProvider(p candidates.Provider) Option {
	return func(a *App) {
		a.provider = p
	}
}
