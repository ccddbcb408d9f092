package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PROJECT_ID", "diet-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "diet-test", cfg.ProjectID)
	assert.Equal(t, 72*time.Hour, cfg.InvitationTTL)
	assert.Equal(t, 2000, cfg.DefaultWaterGoalMl)
	assert.Equal(t, 3*time.Second, cfg.AlertDuration)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "diets/uploads/", cfg.DietUploadPrefix)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ALLOWED_ORIGINS", "https://admin.example.com, https://app.example.com")
	t.Setenv("INVITATION_TTL", "24h")
	t.Setenv("DEFAULT_WATER_GOAL_ML", "2500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://admin.example.com", "https://app.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.InvitationTTL)
	assert.Equal(t, 2500, cfg.DefaultWaterGoalMl)
}

func TestLoadRejectsInvalidWaterGoal(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEFAULT_WATER_GOAL_ML", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestResolveProjectIDConfigured(t *testing.T) {
	cfg := &Config{ProjectID: "p1"}
	id, err := cfg.ResolveProjectID(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "p1", id)
}
