package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.TrustedOrigins)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, TokenFormatJWT, cfg.Auth.TokenFormat)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SERVER_READ_TIMEOUT", "3")
	t.Setenv("TRUSTED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.TrustedOrigins)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.True(t, strings.HasPrefix(cfg.Database.ConnectionString(), "file:/tmp/x.db?"))
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoad_RejectsShortJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_PasetoKeyLength(t *testing.T) {
	t.Setenv("TOKEN_FORMAT", "paseto")
	t.Setenv("PASETO_KEY", "too-short")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("PASETO_KEY", testSecret)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Len(t, cfg.Auth.PasetoKey, 32)
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "url wins",
			cfg:  DatabaseConfig{Driver: DriverPostgres, URL: "postgres://u@h/db", Host: "ignored"},
			want: "postgres://u@h/db",
		},
		{
			name: "postgres fields",
			cfg:  DatabaseConfig{Driver: DriverPostgres, Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"},
			want: "host=h port=5432 user=u password=p dbname=d sslmode=disable",
		},
		{
			name: "channel binding",
			cfg:  DatabaseConfig{Driver: DriverPostgres, Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "require", ChannelBinding: "require"},
			want: "host=h port=5432 user=u password=p dbname=d sslmode=require channel_binding=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ConnectionString())
		})
	}
}
