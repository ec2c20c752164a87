package blogimageeditor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hamzashehzad1/blogimageeditor/llm"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "ADDR", "DATABASE_URL", "SESSION_SECRET", "LOG_LEVEL",
		"GEMINI_API_KEY", "LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL",
		"PEXELS_API_KEY", "COOKIE_SECURE",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SESSION_SECRET", "0123456789abcdef")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, "data/editor.db", cfg.DatabasePath)
	assert.Equal(t, "public/uploads", cfg.UploadsDir)
	assert.Equal(t, llm.GeminiBaseURL, cfg.LLM.BaseURL)
	assert.Equal(t, 102400, cfg.Images.MaxBytes)
	assert.Equal(t, 1200, cfg.Images.MaxWidth)
	assert.Equal(t, 1, cfg.Images.DownloadAttempts)
	assert.Equal(t, 5*time.Minute, cfg.PostCacheTTL)
	assert.False(t, cfg.CookieSecure)
}

func TestLoadConfigFileWithEnvExpansion(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TEST_PEXELS_KEY", "px-from-env")
	path := writeConfig(t, `
addr: ":8080"
session_secret: "a-long-enough-secret"
pexels:
  api_key: ${TEST_PEXELS_KEY}
images:
  max_bytes: 204800
  download_timeout: 5s
wordpress:
  posts_per_page: 25
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "px-from-env", cfg.Pexels.APIKey)
	assert.Equal(t, 204800, cfg.Images.MaxBytes)
	assert.Equal(t, 5*time.Second, cfg.Images.DownloadTimeout)
	assert.Equal(t, 25, cfg.WordPress.PostsPerPage)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, "addr: \":8080\"\nsession_secret: \"file-secret-value-1\"\n")
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.True(t, cfg.CookieSecure)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing secret", "addr: \":1\"\n"},
		{"short secret", "session_secret: short\n"},
		{"bad log level", "session_secret: 0123456789abcdef\nlog_level: loud\n"},
		{"bad llm url", "session_secret: 0123456789abcdef\nllm:\n  base_url: \"://missing-scheme\"\n"},
		{"tiny ceiling", "session_secret: 0123456789abcdef\nimages:\n  max_bytes: 10\n"},
		{"page too large", "session_secret: 0123456789abcdef\nimages:\n  per_page: 500\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	clearConfigEnv(t)
	_, err := LoadConfig(writeConfig(t, "addr: [unclosed\n"))
	assert.ErrorContains(t, err, "parse config file")
}
