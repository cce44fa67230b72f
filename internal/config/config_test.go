// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers env expansion, duration parsing, defaults, and required fields

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shopy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
  base_url: "https://shop.example.com"
database:
  path: "/tmp/shopy.db"
auth:
  jwt_secret: "`+validSecret+`"
  session_ttl: "24h"
  otp_ttl: "2m"
media:
  dir: "/tmp/media"
gate:
  lookup_timeout: "3s"
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "https://shop.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "/tmp/shopy.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 2*time.Minute, cfg.Auth.OTPTTL)
	assert.Equal(t, 3*time.Second, cfg.Gate.LookupTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/shopy.db"
auth:
  jwt_secret: "`+validSecret+`"
media:
  dir: "/tmp/media"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultSessionTTL, cfg.Auth.SessionTTL)
	assert.Equal(t, DefaultOTPTTL, cfg.Auth.OTPTTL)
	assert.Equal(t, DefaultResetTokenTTL, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, DefaultLookupTimeout, cfg.Gate.LookupTimeout)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Media.MaxUploadBytes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SHOPY_TEST_SECRET", validSecret)

	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/shopy.db"
auth:
  jwt_secret: "${SHOPY_TEST_SECRET}"
media:
  dir: "/tmp/media"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, validSecret, cfg.Auth.JWTSecret)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SHOPY_HTTP_ADDR", "0.0.0.0:9090")

	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/shopy.db"
auth:
  jwt_secret: "`+validSecret+`"
media:
  dir: "/tmp/media"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.HTTPAddr)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing http_addr",
			content: `
database:
  path: "/tmp/shopy.db"
auth:
  jwt_secret: "` + validSecret + `"
media:
  dir: "/tmp/media"
`,
			wantErr: "server.http_addr",
		},
		{
			name: "missing database path",
			content: `
server:
  http_addr: "localhost:8080"
auth:
  jwt_secret: "` + validSecret + `"
media:
  dir: "/tmp/media"
`,
			wantErr: "database.path",
		},
		{
			name: "missing jwt secret",
			content: `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/shopy.db"
media:
  dir: "/tmp/media"
`,
			wantErr: "auth.jwt_secret",
		},
		{
			name: "short jwt secret",
			content: `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/shopy.db"
auth:
  jwt_secret: "tooshort"
media:
  dir: "/tmp/media"
`,
			wantErr: "at least 32",
		},
		{
			name: "missing media dir",
			content: `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/shopy.db"
auth:
  jwt_secret: "` + validSecret + `"
`,
			wantErr: "media.dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/shopy.db"
auth:
  jwt_secret: "`+validSecret+`"
  session_ttl: "not-a-duration"
media:
  dir: "/tmp/media"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_ttl")
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
