// Package config handles bytecomp.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"bytecomp/internal/compiler"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "bytecomp.toml"

// DefaultInterpreter is used when no interpreter is configured.
const DefaultInterpreter = "python3"

// Config represents a bytecomp.toml file.
type Config struct {
	Interpreter Interpreter  `toml:"interpreter"`
	Driver      DriverConfig `toml:"driver"`
	Sources     Sources      `toml:"sources"`

	// Dir is the directory containing the config file (set at load time).
	// Relative paths in the file are resolved against it.
	Dir string `toml:"-"`
}

// Interpreter configures the binary that runs the driver.
type Interpreter struct {
	Binary string            `toml:"binary"`
	Env    map[string]string `toml:"env"`
}

// DriverConfig selects the driver program.
type DriverConfig struct {
	// Name selects a built-in driver. Ignored when Template is set.
	Name      string `toml:"name"`
	Template  string `toml:"template"`
	Extension string `toml:"extension"`
	Suffix    string `toml:"suffix"`
	TempDir   string `toml:"temp-dir"`
}

// Sources configures where sources live and which to compile by default.
type Sources struct {
	Root    string   `toml:"root"`
	Include []string `toml:"include"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load parses the config file at path. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	c.applyDefaults()

	return &c, nil
}

// FindAndLoad walks up from startDir to find a bytecomp.toml file, then
// loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) applyDefaults() {
	if c.Interpreter.Binary == "" {
		c.Interpreter.Binary = DefaultInterpreter
	}
	if c.Driver.Name == "" {
		c.Driver.Name = "python"
	}
	if c.Driver.Suffix == "" {
		c.Driver.Suffix = compiler.DefaultSuffix
	}
	if c.Sources.Root == "" {
		c.Sources.Root = "."
	}
}

// SourceRoot returns the absolute source root, or "" if it cannot be made
// absolute (a relative root with no config file to anchor it).
func (c *Config) SourceRoot() string {
	return c.resolve(c.Sources.Root)
}

// TempDir returns the directory for driver files, or "" for the system
// default.
func (c *Config) TempDir() string {
	if c.Driver.TempDir == "" {
		return ""
	}
	return c.resolve(c.Driver.TempDir)
}

// NewDriver builds the driver program selected by the configuration.
func (c *Config) NewDriver() (*compiler.Driver, error) {
	if c.Driver.Template != "" {
		path := c.resolve(c.Driver.Template)
		if path == "" {
			path = c.Driver.Template
		}
		return compiler.LoadDriver(path, c.Driver.Extension, c.Driver.Suffix)
	}

	switch strings.ToLower(c.Driver.Name) {
	case "python":
		d, err := compiler.NewPythonDriver(c.Driver.Suffix)
		if err != nil {
			return nil, err
		}
		if c.Driver.Extension != "" {
			d.Extension = c.Driver.Extension
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown driver %q (set driver.template for a custom driver)", c.Driver.Name)
	}
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if c.Dir == "" {
		return ""
	}
	return filepath.Join(c.Dir, p)
}
