package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadToolConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winprep.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
config_root = "C:\\image\\configs"
working_path = "C:\\image"
log_level = "debug"

[removal]
allow = ["Microsoft.WindowsStore_8wekyb3d8bbwe"]
allow_patterns = ["Microsoft.VCLibs.*"]
deny = ["Vendor.Bloat_abc"]
`), 0o644))

	cfg, err := loadToolConfig(path)
	require.NoError(t, err)
	assert.Equal(t, `C:\image\configs`, cfg.ConfigRoot)
	assert.Equal(t, `C:\image`, cfg.WorkingPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"Microsoft.WindowsStore_8wekyb3d8bbwe"}, cfg.Removal.Allow)
	assert.Equal(t, []string{"Microsoft.VCLibs.*"}, cfg.Removal.AllowPatterns)
	assert.Equal(t, []string{"Vendor.Bloat_abc"}, cfg.Removal.Deny)
	// defaults fill what the file omitted
	assert.NotEmpty(t, cfg.StagingPath)
}

func TestLoadToolConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadToolConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.WorkingPath)
	assert.Equal(t, filepath.Join(cfg.WorkingPath, "configs"), cfg.ConfigRoot)
}

func TestLoadToolConfigBrokenFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winprep.toml")
	require.NoError(t, os.WriteFile(path, []byte(`config_root = [`), 0o644))

	_, err := loadToolConfig(path)
	assert.Error(t, err)
}
