package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads; viper treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STORE_BACKEND", "MONGODB_URI", "MONGODB_DATABASE", "JWT_SECRET", "JWT_KEYS", "JWT_ACTIVE_KID", "JWT_TTL",
		"GRPC_PORT", "HTTP_PORT", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "TLS_CERT", "TLS_KEY", "TLS_REQUIRE",
		"AMQP_URL", "AMQP_EXCHANGE", "MEDIA_BASE_URL", "MEDIA_MAX_BYTES", "SYNC_LEGACY_SENDER_UPDATE",
		"LOG_LEVEL", "OTEL_ENDPOINT", "OTEL_INSECURE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GRPC_PORT", "6000")
	t.Setenv("RATE_LIMIT_RPM", "42")
	t.Setenv("SYNC_LEGACY_SENDER_UPDATE", "true")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, BackendMongo, c.Store.Backend)
	assert.Equal(t, "mongodb://localhost:27017", c.Mongo.URI)
	assert.Equal(t, "chatsync", c.Mongo.Database)
	assert.Equal(t, "s3cret", c.JWT.Secret)
	assert.Equal(t, 24*time.Hour, c.JWT.TTL)
	assert.Equal(t, "6000", c.GRPC.Port)
	assert.Equal(t, "8080", c.HTTP.Port)
	assert.Equal(t, 42, c.RateLimit.RPM)
	assert.True(t, c.Sync.LegacySenderUpdate)
	assert.Equal(t, log.DebugLevel, c.Log.Level)
}

func TestLoadMemoryBackendNeedsNoMongo(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_KEYS", "k1:one")

	c, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, c.Store.Backend)
	assert.Equal(t, "k1", c.JWT.ActiveKid, "single key becomes active")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"missing uri", map[string]string{"JWT_SECRET": "x"}, "mongodb.uri"},
		{"missing jwt", map[string]string{"STORE_BACKEND": "memory"}, "jwt.secret or jwt.keys"},
		{"unknown backend", map[string]string{"STORE_BACKEND": "redis", "JWT_SECRET": "x"}, "store.backend"},
		{"bad kid", map[string]string{"STORE_BACKEND": "memory", "JWT_KEYS": "a:1,b:2", "JWT_ACTIVE_KID": "c"}, "jwt.active_kid"},
		{"tls required", map[string]string{"STORE_BACKEND": "memory", "JWT_SECRET": "x", "TLS_REQUIRE": "true"}, "tls.require"},
		{"half tls", map[string]string{"STORE_BACKEND": "memory", "JWT_SECRET": "x", "TLS_CERT": "c.pem"}, "set together"},
		{"bad level", map[string]string{"STORE_BACKEND": "memory", "JWT_SECRET": "x", "LOG_LEVEL": "loud"}, "log.level"},
		{"bad keys", map[string]string{"STORE_BACKEND": "memory", "JWT_KEYS": "nocolon"}, "jwt.keys"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(New())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseKeys(t *testing.T) {
	keys, err := ParseKeys("k1:one, k2:two:with:colons,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k1": "one", "k2": "two:with:colons"}, keys)

	keys, err = ParseKeys("")
	require.NoError(t, err)
	assert.Nil(t, keys)
}

func TestReadFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yaml := "store:\n  backend: memory\njwt:\n  secret: from-file\ngrpc:\n  port: \"7000\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	v := New()
	used, err := ReadFile(v, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), used)

	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-file", c.JWT.Secret)
	assert.Equal(t, "7000", c.GRPC.Port)
}

func TestReadFileMissingIsFine(t *testing.T) {
	used, err := ReadFile(New(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, used)
}
