package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asteroids-server/internal/game"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.LivenessTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 60, cfg.Room.TickRate)
	assert.Equal(t, 20, cfg.Room.SnapshotRate)
	assert.Equal(t, 8, cfg.Room.MaxPlayers)
	assert.Equal(t, 100, cfg.Room.MaxRooms)
	assert.Equal(t, 60, cfg.Room.InputBuffer)
	assert.Equal(t, time.Second, cfg.Room.InputRetain)
	assert.Equal(t, 250*time.Millisecond, cfg.Player.FireRate)
	assert.Equal(t, 3*time.Second, cfg.Player.RespawnDelay)
	assert.Equal(t, 4, cfg.Asteroid.MinCount)
	assert.Equal(t, 12, cfg.Asteroid.MaxCount)
	assert.Equal(t, 20, cfg.Asteroid.Large.Points)
	assert.Equal(t, 0, cfg.Asteroid.Small.SplitCount)
	assert.True(t, cfg.Game.FriendlyFire)
	assert.Equal(t, "", cfg.Store.Path)
}

func TestTuningMatchesDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, game.DefaultTuning(), cfg.Tuning())
}

func TestLoad_WithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arena.json")
	body := `{
		"server": { "addr": ":9000" },
		"world": { "width": 2000, "height": 1000 },
		"player": { "fireRate": "100ms" },
		"asteroid": { "large": { "points": 25 } },
		"game": { "friendlyFire": false }
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	fs := Flags()
	require.NoError(t, fs.Parse([]string{"--config", path}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2000.0, cfg.World.Width)
	assert.Equal(t, 100*time.Millisecond, cfg.Player.FireRate)
	assert.False(t, cfg.Game.FriendlyFire)

	tun := cfg.Tuning()
	assert.Equal(t, int64(100), tun.FireRateMs)
	assert.Equal(t, 25, tun.Size(game.SizeLarge).Points)
	assert.Equal(t, 40.0, tun.Size(game.SizeLarge).Radius, "unset keys keep defaults")
}

func TestLoad_FlagsOverride(t *testing.T) {
	fs := Flags()
	require.NoError(t, fs.Parse([]string{"--addr", ":7777", "--max-rooms", "3", "--store", "scores.db"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Room.MaxRooms)
	assert.Equal(t, "scores.db", cfg.Store.Path)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ARENA_ROOM_MAXPLAYERS", "4")
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Room.MaxPlayers)
}

func TestLoad_MissingFile(t *testing.T) {
	fs := Flags()
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.json")}))
	_, err := Load(fs)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	bad := *cfg
	bad.Room.SnapshotRate = 120
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = *cfg
	bad.Asteroid.MinCount = 20
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = *cfg
	bad.World.Width = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}
