package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_KEY", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg := LoadConfig()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigTrimsDatabaseValues(t *testing.T) {
	t.Setenv("POSTGRES_DSN", " postgres://u:p@localhost/app \n")
	cfg := LoadConfig()
	assert.Equal(t, "postgres://u:p@localhost/app", cfg.PostgresDSN)
}

func TestLoadConfigSplitsOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	cfg := LoadConfig()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestValidateRequiresDatabase(t *testing.T) {
	cfg := &Config{Environment: "development", Port: "3000", JWTSecret: "s"}
	require.Error(t, cfg.Validate())

	cfg.PostgresDSN = "postgres://localhost/app"
	assert.NoError(t, cfg.Validate())

	cfg.PostgresDSN = ""
	cfg.SupabaseURL = "https://x.supabase.co"
	require.Error(t, cfg.Validate()) // key missing
	cfg.SupabaseKey = "service-key"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		Port:        "3000",
		JWTSecret:   "your-secret-key-change-in-production",
		PostgresDSN: "postgres://localhost/app",
	}
	assert.Error(t, cfg.Validate())
}
