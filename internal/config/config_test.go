package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("PORT", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "1337", cfg.Port)
	assert.Equal(t, StoreMongo, cfg.StoreBackend)
	assert.Equal(t, "/yadu/api/v1", cfg.APIBasePath)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, DefaultAdminPasswordHash, cfg.AdminPasswordHash)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("PASSWORD_HASH_ALGO", "bcrypt")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, "bcrypt", cfg.PasswordHashAlgo)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StoreBackend:     StoreMemory,
			PasswordHashAlgo: "argon2id",
			APIBasePath:      "/api",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"memory store", func(*Config) {}, true},
		{"unknown store", func(c *Config) { c.StoreBackend = "sqlite" }, false},
		{"mongo without uri", func(c *Config) { c.StoreBackend = StoreMongo }, false},
		{"redis without url", func(c *Config) { c.StoreBackend = StoreRedis }, false},
		{"unknown hash", func(c *Config) { c.PasswordHashAlgo = "md5" }, false},
		{"relative base path", func(c *Config) { c.APIBasePath = "api" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " http://a.example , ,http://b.example"}
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins())

	cfg.CORSAllowedOrigins = ""
	assert.Empty(t, cfg.AllowedOrigins())
}
