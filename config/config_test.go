package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kasuganosora/stealthguard/game/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ai.DefaultParams(), cfg.Guard)
	assert.Equal(t, 16*time.Millisecond, cfg.Game.TickInterval())
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, time.Hour, cfg.Database.MySQLMaxLife)
	assert.Equal(t, 2*time.Second, cfg.Audit.FlushInterval)
	assert.Equal(t, 12*time.Hour, cfg.Security.JWTTTL)
}

func TestLoad_GuardOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
game:
  tick_ms: 50
  start_levels: [vault, annex]
guard:
  base_chase_ticks: 120
  fov_angle: 60
security:
  admin_ips: ["127.0.0.1", "10.0.0.0/8"]
`))
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Guard.BaseChaseTicks)
	assert.Equal(t, 60.0, cfg.Guard.FOVAngle)
	assert.Equal(t, 2, cfg.Guard.CameraMultiplier, "untouched keys keep defaults")
	assert.Equal(t, []string{"vault", "annex"}, cfg.Game.StartLevels)
	assert.Equal(t, 50*time.Millisecond, cfg.Game.TickInterval())
	assert.Len(t, cfg.Security.AdminIPs, 2)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "guard:\n  base_chase_ticks: 0\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "game:\n  tick_ms: -5\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./data/levels", cfg.Game.LevelDir)
}
