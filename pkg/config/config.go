// Package config loads the hypermark.yaml file read by the command line
// tool.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/neurodesk/hypermark/pkg/validator"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "hypermark.yaml"

// Config is the tool configuration. Relative paths are resolved against
// the directory of the file they were read from.
type Config struct {
	// Components lists directories of component sources.
	Components []string `yaml:"components"`
	// BaseDir is where relative markdown sources are read from. It
	// defaults to the directory of the compiled file.
	BaseDir    string         `yaml:"base_dir,omitempty"`
	Compressed bool           `yaml:"compressed"`
	CacheDir   string         `yaml:"cache_dir,omitempty"`
	Bindings   map[string]any `yaml:"bindings,omitempty"`
	Log        Log            `yaml:"log"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads the file at path over the defaults. A missing file at the
// default location is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && filepath.Base(path) == FileName {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}
	defer f.Close()

	if err := cfg.decode(f); err != nil {
		return nil, fmt.Errorf("decoding config file %s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i, d := range c.Components {
		c.Components[i] = abs(d)
	}
	c.BaseDir = abs(c.BaseDir)
	c.CacheDir = abs(c.CacheDir)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
	return validator.All(
		validator.NoDuplicates(c.Components, "component directories"),
		validator.Map(c.Components, validator.DirExists, "component directory"),
		validator.MapDict(c.Bindings, func(name string, _ any) error {
			return validator.Identifier(name, "binding name")
		}, "bindings"),
		validator.MatchesAllowed(c.Log.Level, logLevels, "log.level"),
		validator.MatchesAllowed(c.Log.Format, logFormats, "log.format"),
	)
}
