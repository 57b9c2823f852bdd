package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSampleConfig(t *testing.T) {
	path := filepath.Join("..", "..", "ztprov.example.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://netbox.example.net", cfg.CMDB.BaseURL)
	assert.Equal(t, "planned", cfg.CMDB.Status)
	assert.Equal(t, "ios", cfg.CMDB.Platform)
	assert.Equal(t, 23, cfg.Controller.JobTemplateID)
	assert.Equal(t, 80, cfg.Render.ChunkWidth)
	assert.Equal(t, "Mgmt-vrf", cfg.Agent.MgmtVRF)
	assert.True(t, cfg.Agent.StopOnFirstMatchPolicy())
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cmdb:\n  base_url: https://cmdb\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "planned", cfg.CMDB.Status)
	assert.Equal(t, 80, cfg.Render.ChunkWidth)
	assert.Equal(t, "admin", cfg.Render.Username)
	assert.Equal(t, ":8052", cfg.Gateway.Listen)
	assert.True(t, cfg.Agent.StopOnFirstMatchPolicy(), "policy defaults to stopping after the first match")
}

func TestStopOnFirstMatchExplicitFalse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  stop_on_first_match: false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Agent.StopOnFirstMatchPolicy())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cmdb: [unclosed\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
