package main

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ToolConfig is the toolkit-level configuration, distinct from the
// per-image JSON documents under ConfigRoot. A missing file yields
// defaults relative to the executable; a present but broken file is a
// launch failure.
type ToolConfig struct {
	ConfigRoot  string `toml:"config_root"`
	WorkingPath string `toml:"working_path"`
	StagingPath string `toml:"staging_path"`
	LogLevel    string `toml:"log_level"`

	Removal struct {
		Allow         []string `toml:"allow"`
		AllowPatterns []string `toml:"allow_patterns"`
		Deny          []string `toml:"deny"`
	} `toml:"removal"`
}

func loadToolConfig(path string) (*ToolConfig, error) {
	var cfg ToolConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *ToolConfig) applyDefaults() {
	base := "."
	if exe, err := os.Executable(); err == nil {
		base = filepath.Dir(exe)
	}
	if c.WorkingPath == "" {
		c.WorkingPath = base
	}
	if c.ConfigRoot == "" {
		c.ConfigRoot = filepath.Join(c.WorkingPath, "configs")
	}
	if c.StagingPath == "" {
		c.StagingPath = filepath.Join(os.Getenv("SystemRoot"), "System32", "update", "run", "winprep")
	}
}
