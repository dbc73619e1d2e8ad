// Package kernel ties the pipeline together: it owns the session workspace,
// the function registry with lazy loading from the search path, and the
// executor that turns source buffers into outputs and diagnostics.
package kernel

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the session configuration, usually loaded from a YAML file next
// to the project.
type Config struct {
	// Paths are extra directories searched for function and script files,
	// after the working directory.
	Paths []string `yaml:"paths"`

	// Toolboxes are installed toolbox names whose directories join the
	// search path.
	Toolboxes []string `yaml:"toolboxes"`

	// ToolboxDir is the root the installer places toolboxes under.
	// Defaults to "toolboxes" beside the working directory.
	ToolboxDir string `yaml:"toolbox_dir"`

	// Format is the initial display format mode.
	Format string `yaml:"format"`

	// MaxRecursion bounds user-function call depth. Zero means the
	// default.
	MaxRecursion int `yaml:"max_recursion"`
}

// DefaultMaxRecursion is the call-depth bound applied when the config does
// not set one.
const DefaultMaxRecursion = 200

// ToolboxRoot resolves the toolbox directory relative to cwd when the config
// leaves it unset or relative.
func (c *Config) ToolboxRoot(cwd string) string {
	root := c.ToolboxDir
	if root == "" {
		root = "toolboxes"
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(cwd, root)
	}
	return root
}

// LoadConfig reads a YAML config file. Unknown fields are rejected so typos
// fail loudly.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes config YAML.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.MaxRecursion == 0 {
		cfg.MaxRecursion = DefaultMaxRecursion
	}
	return &cfg, nil
}
