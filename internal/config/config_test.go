package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwingoed13/c3pr3-2025-2/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 210*time.Second, cfg.Server.WriteTimeout)

	assert.Equal(t, "https://sistemas.cepreuna.edu.pe", cfg.Portal.BaseURL)
	assert.Equal(t, 30*time.Minute, cfg.Portal.SessionDuration)
	assert.Equal(t, 30*time.Second, cfg.Portal.LoginTimeout)
	assert.Equal(t, 60*time.Second, cfg.Portal.ListTimeout)
	assert.Equal(t, 3, cfg.Portal.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.Portal.RetryBackoff)
	assert.Equal(t, 10000, cfg.Portal.StudentListLimit)
	assert.Equal(t, 100, cfg.Portal.SeatListLimit)

	assert.Equal(t, 5*time.Minute, cfg.Cache.Duration)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CEPREUNA_EMAIL", "admin@cepreuna.edu.pe")
	t.Setenv("CEPREUNA_PASSWORD", "secret")
	t.Setenv("CEPREUNA_BASE_URL", "https://staging.cepreuna.edu.pe/")
	t.Setenv("CACHE_DURATION", "120s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.HasCredentials())
	// Trailing slash is normalized away so URL helpers can concatenate.
	assert.Equal(t, "https://staging.cepreuna.edu.pe", cfg.Portal.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.Cache.Duration)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"port too low", func(c *config.Config) { c.Server.Port = 0 }},
		{"port too high", func(c *config.Config) { c.Server.Port = 70000 }},
		{"empty base url", func(c *config.Config) { c.Portal.BaseURL = "" }},
		{"zero retry attempts", func(c *config.Config) { c.Portal.RetryAttempts = 0 }},
		{"tiny session duration", func(c *config.Config) { c.Portal.SessionDuration = time.Second }},
		{"tiny cache duration", func(c *config.Config) { c.Cache.Duration = time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestServerAddr(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8000

	assert.Equal(t, "127.0.0.1:8000", cfg.ServerAddr())
}

func TestHasCredentials(t *testing.T) {
	cfg := &config.Config{}
	assert.False(t, cfg.HasCredentials())

	cfg.Portal.Email = "admin@cepreuna.edu.pe"
	assert.False(t, cfg.HasCredentials())

	cfg.Portal.Password = "secret"
	assert.True(t, cfg.HasCredentials())
}

func TestPortalURLHelpers(t *testing.T) {
	cfg := &config.PortalConfig{BaseURL: "https://sistemas.cepreuna.edu.pe"}

	assert.Equal(t, "https://sistemas.cepreuna.edu.pe/login", cfg.LoginURL())
	assert.Equal(t, "https://sistemas.cepreuna.edu.pe/intranet/inscripcion/estudiante/lista/data", cfg.StudentListURL())
	assert.Equal(t, "https://sistemas.cepreuna.edu.pe/intranet/inscripcion/estudiante/lista", cfg.StudentListReferer())
	assert.Equal(t, "https://sistemas.cepreuna.edu.pe/intranet/administracion/vacantes/lista/data", cfg.SeatListURL())
	assert.Equal(t, "https://sistemas.cepreuna.edu.pe/intranet/administracion/vacantes/lista", cfg.SeatListReferer())
	assert.Equal(t, "https://sistemas.cepreuna.edu.pe/intranet/encrypt/42", cfg.EncryptURL("42"))
	assert.Equal(t, "https://sistemas.cepreuna.edu.pe/inscripciones/estudiantes/tok", cfg.DownloadURL("tok"))
}
