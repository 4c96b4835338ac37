package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
probe:
  timeout: 3
  concurrency: 25
  rate_limit: 10
  user_agents:
    - custom-agent/1.0
workspace:
  output_dir: /tmp/recon
database:
  enabled: true
  host: db.internal
`)

	m := NewManager(path)
	require.NoError(t, m.LoadConfig())
	cfg := m.GetConfig()

	assert.Equal(t, path, m.ConfigPath())
	assert.Equal(t, 3, cfg.Probe.Timeout)
	assert.Equal(t, 25, cfg.Probe.Concurrency)
	assert.Equal(t, 10.0, cfg.Probe.RateLimit)
	assert.Equal(t, []string{"custom-agent/1.0"}, cfg.Probe.UserAgents)
	assert.Equal(t, "/tmp/recon", cfg.Workspace.OutputDir)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "db.internal", cfg.Database.Host)

	// untouched sections keep their defaults
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 15, cfg.DefaultSettings.Timeout)
	assert.Equal(t, "200,301,302", cfg.DirFuzz.MatchCodes)
	assert.True(t, cfg.Enumeration.Crtsh)
}

func TestLoadConfigExplicitMissing(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, m.LoadConfig())
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	m := NewManager("")
	require.NoError(t, m.LoadConfig())
	assert.Equal(t, Default(), m.GetConfig())
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]string{
		"zero probe timeout":   "probe:\n  timeout: 0\n",
		"negative concurrency": "probe:\n  concurrency: -1\n",
		"negative rate":        "probe:\n  rate_limit: -2\n",
		"empty output dir":     "workspace:\n  output_dir: \"  \"\n",
		"elastic without url":  "elastic:\n  enabled: true\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			m := NewManager(writeConfig(t, body))
			assert.Error(t, m.LoadConfig())
		})
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	m := NewManager(writeConfig(t, "probe: [unclosed"))
	assert.Error(t, m.LoadConfig())
}

func TestDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("APPDATA", dir)

	path := GetDefaultConfigPath()
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Equal(t, appName, filepath.Base(filepath.Dir(path)))
}
