package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `log_level: debug
log_file: /tmp/thera.log
workers: 3
watch: false
models:
  dir: /opt/models
  x4: custom_x4.pb
  x8: /elsewhere/x8.pb
window:
  width: 800
  height: 600
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/thera.log", cfg.LogFile)
	assert.Equal(t, 3, cfg.Workers)
	assert.False(t, cfg.Watch)
	assert.Equal(t, WindowConfig{Width: 800, Height: 600}, cfg.Window)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, level)

	binding := cfg.Models.Binding()
	assert.Equal(t, "/opt/models/LapSRN_x2.pb", binding[2])
	assert.Equal(t, "/opt/models/custom_x4.pb", binding[4])
	assert.Equal(t, "/elsewhere/x8.pb", binding[8])
	assert.NoError(t, binding.Validate())
}

func TestLoadFromPathPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "workers: 1\n")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultModelsDir, cfg.Models.Dir)
	assert.True(t, cfg.Watch)
	assert.Equal(t, DefaultWindowWidth, cfg.Window.Width)
}

func TestLoadFromPathMissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	empty := t.TempDir()
	t.Setenv(envConfigDir, empty)
	t.Setenv("HOME", empty)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(empty))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	want := NewDefaultConfig()
	assert.Equal(t, &want, cfg)
}

func TestLoadFindsConfigDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "log_level: warn\n")
	t.Setenv(envConfigDir, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "workers: 2\nmodels:\n  dir: /a\n")
	t.Setenv("THERA_WORKERS", "4")
	t.Setenv("THERA_MODELS_DIR", "/b")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "/b", cfg.Models.Dir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `log_level: loud
workers: 0
window:
  width: 0
`)

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"log_level", "workers", "window"}, fields)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestValidateDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, Validate(&cfg))

	cfg.Models.Dir = "  "
	err := Validate(&cfg)
	require.Error(t, err)
	assert.Equal(t, "models.dir: must not be empty", err.Error())
}
