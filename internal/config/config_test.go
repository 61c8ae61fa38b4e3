package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
search:
  company_name: "Dell Technologies"
  location: "India"
  role_category: "Software Engineer"
  max_requests: 5
  mutual_connections: true
connection_message: "Hi $name, I saw you work as $title"
credentials:
  email: "file@example.com"
  password: "file-secret"
delays:
  min_request_seconds: 3
  max_request_seconds: 5
`

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvEmail, "")
	t.Setenv(EnvPassword, "")
}

func TestParse(t *testing.T) {
	t.Run("reads search criteria and applies defaults", func(t *testing.T) {
		clearCredentialEnv(t)

		cfg, err := Parse([]byte(validYAML))
		require.NoError(t, err)

		assert.Equal(t, "Dell Technologies", cfg.Search.CompanyName)
		assert.Equal(t, "India", cfg.Search.Location)
		assert.Equal(t, "Software Engineer", cfg.Search.RoleCategory)
		assert.Equal(t, 5, cfg.Search.MaxRequests)
		assert.True(t, cfg.Search.MutualConnections)
		assert.Equal(t, "Hi $name, I saw you work as $title", cfg.ConnectionMessage)

		assert.Equal(t, 10, cfg.Search.MaxPages)
		assert.Equal(t, 30, cfg.Limits.DailyRequests)
		assert.Equal(t, "./chrome-data", cfg.Browser.ProfileDir)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, 3*time.Second, cfg.GetMinRequestDelay())
		assert.Equal(t, 5*time.Second, cfg.GetMaxRequestDelay())
		assert.Equal(t, 5*time.Second, cfg.GetSessionProbeTimeout())
		assert.Equal(t, 15*time.Second, cfg.GetLoginTimeout())
	})

	t.Run("environment overrides credentials", func(t *testing.T) {
		t.Setenv(EnvEmail, "env@example.com")
		t.Setenv(EnvPassword, "env-secret")

		cfg, err := Parse([]byte(validYAML))
		require.NoError(t, err)

		assert.Equal(t, "env@example.com", cfg.Credentials.Email)
		assert.Equal(t, "env-secret", cfg.Credentials.Password)
	})

	t.Run("expands placeholders with defaults", func(t *testing.T) {
		clearCredentialEnv(t)
		t.Setenv("TEST_ROLE", "")

		data := `
search:
  role_category: "${TEST_ROLE:Data Engineer}"
  max_requests: 2
connection_message: "hello"
credentials:
  email: "a@b.c"
  password: "x"
`
		cfg, err := Parse([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, "Data Engineer", cfg.Search.RoleCategory)
	})

	t.Run("fractional delays are kept", func(t *testing.T) {
		clearCredentialEnv(t)

		data := validYAML + "  break_every: 3\n"
		cfg, err := Parse([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Delays.BreakEvery)

		cfg.Delays.MinRequestSeconds = 2.5
		assert.Equal(t, 2500*time.Millisecond, cfg.GetMinRequestDelay())
	})

	t.Run("log file is on unless disabled", func(t *testing.T) {
		clearCredentialEnv(t)

		cfg, err := Parse([]byte(validYAML))
		require.NoError(t, err)
		assert.True(t, cfg.Logging.ToFile)
		assert.Equal(t, "logs/main.log", cfg.Logging.FilePath)

		cfg, err = Parse([]byte(validYAML + "logging:\n  to_file: false\n"))
		require.NoError(t, err)
		assert.False(t, cfg.Logging.ToFile)
	})

	t.Run("page pause and break chance", func(t *testing.T) {
		clearCredentialEnv(t)

		cfg, err := Parse([]byte(validYAML))
		require.NoError(t, err)
		min, max := cfg.GetPagePauseRange()
		assert.Equal(t, 3*time.Second, min)
		assert.Equal(t, 6*time.Second, max)
		assert.Zero(t, cfg.Delays.BreakChance)

		data := validYAML + "  page_pause_min_seconds: 1\n  page_pause_max_seconds: 2\n  break_chance: 0.7\n"
		cfg, err = Parse([]byte(data))
		require.NoError(t, err)
		min, max = cfg.GetPagePauseRange()
		assert.Equal(t, time.Second, min)
		assert.Equal(t, 2*time.Second, max)
		assert.Equal(t, 0.7, cfg.Delays.BreakChance)
	})
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing email",
			yaml:    "search: {role_category: x, max_requests: 1}\nconnection_message: hi\ncredentials: {password: p}\n",
			wantErr: "credentials.email is required",
		},
		{
			name:    "missing password",
			yaml:    "search: {role_category: x, max_requests: 1}\nconnection_message: hi\ncredentials: {email: e}\n",
			wantErr: "credentials.password is required",
		},
		{
			name:    "non-positive max requests",
			yaml:    "search: {role_category: x, max_requests: 0}\nconnection_message: hi\ncredentials: {email: e, password: p}\n",
			wantErr: "search.max_requests must be positive",
		},
		{
			name:    "missing role",
			yaml:    "search: {max_requests: 1}\nconnection_message: hi\ncredentials: {email: e, password: p}\n",
			wantErr: "search.role_category is required",
		},
		{
			name:    "missing message",
			yaml:    "search: {role_category: x, max_requests: 1}\ncredentials: {email: e, password: p}\n",
			wantErr: "connection_message is required",
		},
		{
			name:    "inverted delay range",
			yaml:    "search: {role_category: x, max_requests: 1}\nconnection_message: hi\ncredentials: {email: e, password: p}\ndelays: {min_request_seconds: 5, max_request_seconds: 3}\n",
			wantErr: "delays.max_request_seconds",
		},
		{
			name:    "break chance above one",
			yaml:    "search: {role_category: x, max_requests: 1}\nconnection_message: hi\ncredentials: {email: e, password: p}\ndelays: {break_chance: 1.5}\n",
			wantErr: "delays.break_chance",
		},
		{
			name:    "inverted page pause",
			yaml:    "search: {role_category: x, max_requests: 1}\nconnection_message: hi\ncredentials: {email: e, password: p}\ndelays: {page_pause_min_seconds: 4, page_pause_max_seconds: 1}\n",
			wantErr: "delays.page_pause_max_seconds",
		},
		{
			name:    "bad log level",
			yaml:    "search: {role_category: x, max_requests: 1}\nconnection_message: hi\ncredentials: {email: e, password: p}\nlogging: {level: loud}\n",
			wantErr: "invalid log level",
		},
		{
			name:    "malformed yaml",
			yaml:    "search: [",
			wantErr: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearCredentialEnv(t)

			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("reads CONFIG_PATH", func(t *testing.T) {
		clearCredentialEnv(t)

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))
		t.Setenv(EnvConfigPath, path)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "file@example.com", cfg.Credentials.Email)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})
}
