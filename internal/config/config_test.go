package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, BackendMock, cfg.Flash.Backend)
	require.Equal(t, uint32(1024), cfg.Flash.Mock.SizeBytes)
	require.Equal(t, uint32(1024), cfg.Region.End)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flashmap.yaml")
	contents := `
flash:
  backend: file
  file:
    path: /tmp/flash.img
    size_bytes: 8192
    write_size: 4
    erase_size: 512
region:
  start: 0
  end: 8192
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, BackendFile, cfg.Flash.Backend)
	require.Equal(t, "/tmp/flash.img", cfg.Flash.File.Path)
	require.Equal(t, uint32(8192), cfg.Flash.File.SizeBytes)
	require.Equal(t, uint32(8192), cfg.Region.End)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
