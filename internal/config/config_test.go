package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	c, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, ":7777", c.ListenAddr)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 4, c.MaxPlayers)
	assert.Equal(t, 10*time.Second, c.ReadyWindow)
	assert.Equal(t, 3*time.Second, c.SpawnProtection)
	assert.Equal(t, 2, c.WinsToEndGame)
	assert.Equal(t, 20, c.MissileDamage)
	assert.Empty(t, c.DatabaseURL)
	assert.Nil(t, c.WSOrigins)
	assert.False(t, c.Production())
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("SQUADFIRE_LISTEN_ADDR", ":9000")
	t.Setenv("SQUADFIRE_MAX_PLAYERS", "6")
	t.Setenv("SQUADFIRE_READY_WINDOW", "2s")
	t.Setenv("SQUADFIRE_ENV", "production")
	t.Setenv("SQUADFIRE_WS_ORIGINS", "localhost:*, ,*.example.com")

	c, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.ListenAddr)
	assert.Equal(t, 6, c.MaxPlayers)
	assert.Equal(t, 2*time.Second, c.ReadyWindow)
	assert.True(t, c.Production())
	assert.Equal(t, []string{"localhost:*", "*.example.com"}, c.WSOrigins)
}

func TestLoadServerRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, val string
	}{
		{"SQUADFIRE_MAX_PLAYERS", "many"},
		{"SQUADFIRE_MAX_PLAYERS", "0"},
		{"SQUADFIRE_READY_WINDOW", "soon"},
		{"SQUADFIRE_ROUND_BANNER", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadServer()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadClient(t *testing.T) {
	t.Setenv("SQUADFIRE_PLAYER_NAME", "alice")
	t.Setenv("SQUADFIRE_TICK_INTERVAL", "20ms")

	c, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "localhost:7777", c.ServerAddr)
	assert.Equal(t, "alice", c.PlayerName)
	assert.Equal(t, 20*time.Millisecond, c.TickInterval)
	assert.Equal(t, 5*time.Second, c.LobbyReturnDelay)
	assert.Equal(t, "assets/maps", c.MapsDir)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SQUADFIRE_HTTP_ADDR=:8181\n"), 0o644))
	t.Setenv("SQUADFIRE_HTTP_ADDR", "")
	os.Unsetenv("SQUADFIRE_HTTP_ADDR")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	c, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, ":8181", c.HTTPAddr)
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "squadfire.properties")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Empty(t, s.Character)

	require.NoError(t, SaveSettings(path, Settings{Character: "ghost"}))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "character=ghost\n", string(b))

	s, err = LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "ghost", s.Character)
}
