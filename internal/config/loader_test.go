package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pmxdev/pmx/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() Context {
	return Context{
		Host:           "10.0.0.10",
		Port:           8006,
		User:           "root@pam",
		TokenName:      "pmx",
		TokenValue:     "aaaa-bbbb-cccc-dddd",
		DefaultStorage: "local-lvm",
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg, "missing config should load as nil, not error")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.CurrentContext = "lab"
	cfg.Contexts["lab"] = testContext()

	require.NoError(t, Save(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "lab", loaded.CurrentContext)
	require.Contains(t, loaded.Contexts, "lab")
	assert.Equal(t, "10.0.0.10", loaded.Contexts["lab"].Host)
	assert.Equal(t, 8006, loaded.Contexts["lab"].Port)
	assert.Equal(t, "root@pam", loaded.Contexts["lab"].User)
}

func TestSave_SecretsFileMode(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Contexts["lab"] = testContext()
	require.NoError(t, Save(dir, cfg))

	info, err := os.Stat(FilePath(dir))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(),
		"config carries API tokens and must not be world-readable")
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(FilePath(dir), []byte("contexts: [not a map"), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestIsConfigured(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsConfigured(dir))

	require.NoError(t, AddContext(dir, "lab", testContext()))
	assert.True(t, IsConfigured(dir))
}

func TestAddContext_FirstBecomesCurrent(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, AddContext(dir, "lab", testContext()))
	require.NoError(t, AddContext(dir, "prod", testContext()))

	name, _, err := CurrentContext(dir)
	require.NoError(t, err)
	assert.Equal(t, "lab", name, "first added context should stay current")
}

func TestUseContext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, AddContext(dir, "lab", testContext()))
	require.NoError(t, AddContext(dir, "prod", testContext()))

	require.NoError(t, UseContext(dir, "prod"))
	name, ctx, err := CurrentContext(dir)
	require.NoError(t, err)
	assert.Equal(t, "prod", name)
	assert.Equal(t, "10.0.0.10", ctx.Host)

	err = UseContext(dir, "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestRemoveContext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, AddContext(dir, "lab", testContext()))
	require.NoError(t, AddContext(dir, "prod", testContext()))

	// Removing the current context falls back to the first remaining one.
	require.NoError(t, RemoveContext(dir, "lab"))
	name, _, err := CurrentContext(dir)
	require.NoError(t, err)
	assert.Equal(t, "prod", name)

	assert.False(t, ContextExists(dir, "lab"))
	assert.True(t, ContextExists(dir, "prod"))
}

func TestRequire_NotConfigured(t *testing.T) {
	_, err := Require(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "pmx init")
}

func TestContextNames_Sorted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Contexts["zeta"] = testContext()
	cfg.Contexts["alpha"] = testContext()
	cfg.Contexts["mid"] = testContext()

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, ContextNames(cfg))
}

func TestHome_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PMX_HOME", dir)
	assert.Equal(t, dir, Home())

	t.Setenv("PMX_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".pmx"), Home())
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("base", "config.yaml"), FilePath("base"))
	assert.Equal(t, filepath.Join("base", "vms.yaml"), VMsFilePath("base"))
	assert.Equal(t, filepath.Join("base", "cache"), CacheDir("base"))
}
