package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetCLI puts the flag struct back to its parse-time defaults and
// restores the previous state when the test ends.
func resetCLI(t *testing.T) {
	t.Helper()
	saved := CLI
	CLI = cli{Interval: 30 * time.Second}
	t.Cleanup(func() { CLI = saved })
}

func TestLoadConfigDefaultsOnly(t *testing.T) {
	resetCLI(t)

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 25575, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.Timeout.Std())
}

func TestLoadConfigFlagsBeatFile(t *testing.T) {
	resetCLI(t)

	path := filepath.Join(t.TempDir(), "palcon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: from-file.example.com
port: 11111
password: filepass
timeout: 60s
`), 0o600))

	CLI.Config = path
	CLI.Host = "from-flag.example.com"
	CLI.Password = "flagpass"

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "from-flag.example.com", cfg.Host)
	assert.Equal(t, "flagpass", cfg.Password)
	assert.Equal(t, 11111, cfg.Port, "file fills what flags leave unset")
	assert.Equal(t, 60*time.Second, cfg.Timeout.Std())
}

func TestLoadConfigBadFileSurfaces(t *testing.T) {
	resetCLI(t)
	CLI.Config = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestSSHPortFallsBackWhenPortUnset(t *testing.T) {
	resetCLI(t)

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 22, sshPort(cfg))

	// An explicit --port serves whichever protocol runs.
	CLI.Port = 2222
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2222, sshPort(cfg))
	assert.Equal(t, 2222, cfg.Port)
}

func TestActionDetection(t *testing.T) {
	resetCLI(t)
	assert.False(t, anyActionRequested())

	CLI.List = true
	assert.True(t, rconRequested())
	assert.True(t, anyActionRequested())

	resetCLI(t)
	delay := 0 // immediate shutdown is a real request
	CLI.Shutdown = &delay
	assert.True(t, rconRequested())

	resetCLI(t)
	negative := -5
	CLI.Shutdown = &negative
	assert.True(t, rconRequested(),
		"a given delay must reach the dispatcher's validation, not vanish")

	resetCLI(t)
	CLI.Memory = true
	assert.False(t, rconRequested())
	assert.True(t, anyActionRequested())

	resetCLI(t)
	CLI.Seen = true
	assert.False(t, rconRequested())
	assert.True(t, anyActionRequested())
}

func TestHostFromEnvironment(t *testing.T) {
	t.Setenv("PALCON_HOST", "env.example.com")

	var c cli
	parser, err := kong.New(&c)
	require.NoError(t, err)

	_, err = parser.Parse([]string{})
	require.NoError(t, err)
	assert.Equal(t, "env.example.com", c.Host)

	// An explicit host argument still wins over the environment.
	_, err = parser.Parse([]string{"cli.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "cli.example.com", c.Host)
}
