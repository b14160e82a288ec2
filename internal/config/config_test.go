package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.GetBackendURL())
	assert.Equal(t, 640, cfg.GetWidth())
	assert.Equal(t, 480, cfg.GetHeight())
	assert.Equal(t, 80, cfg.GetJPEGQuality())
	assert.Equal(t, 10*time.Second, cfg.AcquireTimeout())
}

func TestLoadConfigFilePartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"backend_url":"http://pose:9000","preferred_width":1280,"preferred_height":720,"jpeg_quality":0}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://pose:9000", cfg.GetBackendURL())
	assert.Equal(t, 1280, cfg.GetWidth())
	assert.Equal(t, 720, cfg.GetHeight())
	assert.Equal(t, 80, cfg.GetJPEGQuality(), "out of range quality falls back to default")
	assert.Equal(t, SourceWebcam, cfg.GetSource())
}

func TestLoadConfigFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	cfg, err := LoadConfigFile(path)
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultBackendURL, cfg.GetBackendURL())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := NewDefaultConfig()
	cfg.SetBackendURL("http://saved:1")
	cfg.SetJPEGQuality(55)
	require.NoError(t, cfg.Save(path))

	// Shorter content must not leave trailing bytes from the previous write.
	cfg.SetBackendURL("http://s:1")
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://s:1", loaded.GetBackendURL())
	assert.Equal(t, 55, loaded.GetJPEGQuality())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvBackendURL, "http://env:5000")
	t.Setenv(EnvCameraDevice, "/dev/video7")
	t.Setenv(EnvLogLevel, "debug")

	cfg := NewDefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "http://env:5000", cfg.GetBackendURL())
	assert.Equal(t, "/dev/video7", cfg.GetDevice())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSaveToSourceWritesLoadedPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"jpeg_quality":50}`), 0644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())

	cfg.SetJPEGQuality(90)
	require.NoError(t, cfg.SaveToSource())

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 90, loaded.GetJPEGQuality())

	_, err = os.Stat(filepath.Join(dir, DefaultConfigPath))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveToSourceDefaultsPath(t *testing.T) {
	assert.Equal(t, DefaultConfigPath, NewDefaultConfig().Path())
}

func TestOverridesAreNotSaved(t *testing.T) {
	t.Setenv(EnvBackendURL, "http://env:5000")

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"backend_url":"http://file:1","logging":{"level":"warn"}}`), 0644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	cfg.ApplyEnv()
	cfg.Override(KeyBackendURL, "http://flag:2")
	cfg.Override(KeyLogLevel, "debug")
	cfg.SetJPEGQuality(70)

	require.NoError(t, cfg.SaveToSource())

	assert.Equal(t, "http://flag:2", cfg.GetBackendURL(), "overrides stay in effect after saving")
	assert.Equal(t, "debug", cfg.Logging.Level)

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://file:1", loaded.GetBackendURL())
	assert.Equal(t, "warn", loaded.Logging.Level)
	assert.Equal(t, 70, loaded.GetJPEGQuality())
}

func TestEditAfterOverrideIsSaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	cfg.Override(KeyDevice, "/dev/video7")
	cfg.SetDevice("/dev/video2")
	require.NoError(t, cfg.SaveToSource())

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/video2", loaded.GetDevice())
}
