package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	content := `
app:
  name: "hatchboard"
server:
  host: "127.0.0.1"
  port: 9000
auth:
  issuer: "hatchboard"
  access_ttl: "10m"
  refresh_ttl: "72h"
database:
  host: "db.internal"
  port: 5432
  user: "app"
  password: "secret"
  dbname: "hatchboard"
  sslmode: "require"
redis:
  enabled: true
  host: "cache.internal"
  port: 6380
logging:
  level: "debug"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hatchboard", cfg.App.Name)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address())
	assert.Equal(t, "hatchboard", cfg.Auth.Issuer)
	assert.Equal(t, 10*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 72*time.Hour, cfg.Auth.RefreshTokenTTL())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Address())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestAuthConfigDurationDefaults(t *testing.T) {
	tests := []struct {
		name string
		auth AuthConfig
		want time.Duration
		get  func(a *AuthConfig) time.Duration
	}{
		{
			name: "empty access TTL falls back",
			auth: AuthConfig{},
			want: DefaultAccessTokenTTL,
			get:  func(a *AuthConfig) time.Duration { return a.AccessTokenTTL() },
		},
		{
			name: "garbage access TTL falls back",
			auth: AuthConfig{AccessTTL: "soon"},
			want: DefaultAccessTokenTTL,
			get:  func(a *AuthConfig) time.Duration { return a.AccessTokenTTL() },
		},
		{
			name: "negative refresh TTL falls back",
			auth: AuthConfig{RefreshTTL: "-1h"},
			want: DefaultRefreshTokenTTL,
			get:  func(a *AuthConfig) time.Duration { return a.RefreshTokenTTL() },
		},
		{
			name: "valid refresh TTL honored",
			auth: AuthConfig{RefreshTTL: "48h"},
			want: 48 * time.Hour,
			get:  func(a *AuthConfig) time.Duration { return a.RefreshTokenTTL() },
		},
		{
			name: "empty cleanup interval falls back",
			auth: AuthConfig{},
			want: DefaultCleanupInterval,
			get:  func(a *AuthConfig) time.Duration { return a.SweepInterval() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.get(&tt.auth))
		})
	}
}

func TestDatabaseConfigDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "simple values",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "postgres",
				DBName:   "hatchboard",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=postgres password=postgres dbname=hatchboard sslmode=disable",
		},
		{
			name: "password with space gets quoted",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "pass word",
				DBName:   "hatchboard",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=postgres password='pass word' dbname=hatchboard sslmode=disable",
		},
		{
			name: "single quote gets escaped",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "it's",
				DBName:   "hatchboard",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=postgres password='it''s' dbname=hatchboard sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestDatabaseConfigURL(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss/word",
		DBName:   "hatchboard",
		SSLMode:  "disable",
	}

	url := cfg.URL()
	assert.Contains(t, url, "postgres://")
	assert.Contains(t, url, "localhost:5432")
	assert.Contains(t, url, "/hatchboard")
	assert.Contains(t, url, "sslmode=disable")
	assert.Contains(t, url, "search_path=public")
	// credentials must be escaped, never raw
	assert.NotContains(t, url, "p@ss/word")
}

func TestDatabaseConfigURLIPv6(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "::1",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "hatchboard",
		SSLMode:  "disable",
	}

	assert.Contains(t, cfg.URL(), "[::1]:5432")
}

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("CONFIG_PATH", "")

	env := LoadEnv()
	assert.Equal(t, EnvironmentDevelopment, env.Environment)
	assert.Equal(t, "config.yaml", env.ConfigPath)
}

func TestLoadEnvNormalizesValue(t *testing.T) {
	t.Setenv("ENVIRONMENT", "  PRODUCTION ")

	env := LoadEnv()
	assert.Equal(t, EnvironmentProduction, env.Environment)
}

func TestLoadEnvUnknownFallsBack(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")

	env := LoadEnv()
	assert.Equal(t, EnvironmentDevelopment, env.Environment)
}

func TestLoadRSAPrivateKey(t *testing.T) {
	t.Run("empty key in development generates one", func(t *testing.T) {
		key, err := LoadRSAPrivateKey("", EnvironmentDevelopment)
		require.NoError(t, err)
		assert.NotNil(t, key)
	})

	t.Run("empty key in production errors", func(t *testing.T) {
		_, err := LoadRSAPrivateKey("", EnvironmentProduction)
		assert.Error(t, err)
	})

	t.Run("garbage PEM errors", func(t *testing.T) {
		_, err := LoadRSAPrivateKey("not a pem", EnvironmentProduction)
		assert.Error(t, err)
	})
}
