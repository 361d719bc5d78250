package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 50, cfg.Sim.TickMs)
	assert.Equal(t, 10.0, cfg.Combat.AttackRange)
	assert.Equal(t, 5*time.Second, cfg.Combat.SearchDuration)
	assert.Equal(t, 200*time.Millisecond, cfg.Combat.FireInterval)
	assert.Equal(t, 5*time.Millisecond, cfg.Combat.CueDuration)
	assert.Equal(t, 1000.0, cfg.Player.ShotRange)
	assert.Equal(t, 10*time.Minute, cfg.Sim.ReapAfter)
	assert.Zero(t, cfg.Sim.ReloadInterval)
	assert.Equal(t, 72*time.Hour, cfg.Security.JWTTTLH)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeYAML(t, `
server:
  port: 9000
combat:
  attack_range: 7.5
  search_duration: 3s
  ignore_layers: [glass, agent]
sim:
  autostart: [warehouse]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 7.5, cfg.Combat.AttackRange)
	assert.Equal(t, 3*time.Second, cfg.Combat.SearchDuration)
	assert.Equal(t, []string{"glass", "agent"}, cfg.Combat.IgnoreLayers)
	assert.Equal(t, []string{"warehouse"}, cfg.Sim.Autostart)
	assert.Equal(t, 200*time.Millisecond, cfg.Combat.FireInterval, "unset keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeYAML(t, "server:\n  port: 9000\n")
	t.Setenv("SENTRY_SERVER_PORT", "9100")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
