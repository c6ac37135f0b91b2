package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, "local", cfg.StorageDriver)
	require.Equal(t, 16*1024*1024, cfg.UploadMaxBytes)
	require.Equal(t, 2*time.Minute, cfg.StageTimeout)
	require.Equal(t, 24*time.Hour, cfg.KeyCacheTTL)
	require.Equal(t, "gemini", cfg.GraderProvider)
	require.False(t, cfg.IsProduction())
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_DATABASE_DRIVER", "SQLite")
	t.Setenv("GEMA_PIPELINE_STAGE_TIMEOUT", "45s")
	t.Setenv("GEMA_UPLOAD_MAX_MB", "4")
	t.Setenv("GEMA_AI_GRADER_PROVIDER", "openai")
	t.Setenv("GEMA_APP_PORT", ":9000")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, 45*time.Second, cfg.StageTimeout)
	require.Equal(t, 4*1024*1024, cfg.UploadMaxBytes)
	require.Equal(t, "openai", cfg.GraderProvider)
	require.Equal(t, ":9000", cfg.HTTPAddress())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {},
		"bad timeout":      {"GEMA_JWT_SECRET": "s", "GEMA_PIPELINE_STAGE_TIMEOUT": "soon"},
		"negative ttl":     {"GEMA_JWT_SECRET": "s", "GEMA_KEY_CACHE_TTL": "-1m"},
		"unknown driver":   {"GEMA_JWT_SECRET": "s", "GEMA_DATABASE_DRIVER": "mysql"},
		"unknown storage":  {"GEMA_JWT_SECRET": "s", "GEMA_STORAGE_DRIVER": "s3"},
		"unknown provider": {"GEMA_JWT_SECRET": "s", "GEMA_AI_GRADER_PROVIDER": "anthropic"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("GEMA_JWT_SECRET", "")
			for key, value := range env {
				t.Setenv(key, value)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
