package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from toolforge.yml.
type ProjectConfig struct {
	ModuleDir    string `yaml:"moduleDir,omitempty"`
	ModuleFile   string `yaml:"moduleFile,omitempty"`
	Language     string `yaml:"language,omitempty"`
	MCPAddr      string `yaml:"mcpAddr,omitempty"`
	DemoAddr     string `yaml:"demoAddr,omitempty"`
	SynthTimeout string `yaml:"synthTimeout,omitempty"`
	CatalogDir   string `yaml:"catalogDir,omitempty"`
	Verbose      bool   `yaml:"verbose,omitempty"`
}

// SynthTimeoutDuration parses SynthTimeout as a Go duration string. An empty
// value yields zero.
func (c *ProjectConfig) SynthTimeoutDuration() (time.Duration, error) {
	if c.SynthTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.SynthTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid synthTimeout %q: %w", c.SynthTimeout, err)
	}
	return d, nil
}

// Load attempts to read toolforge.yml or toolforge.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"toolforge.yml", "toolforge.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}
