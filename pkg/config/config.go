// Package config handles tslua.toml project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
)

// FileName is the name of the project configuration file.
const FileName = "tslua.toml"

// Config represents a tslua.toml project configuration.
type Config struct {
	Project Project `toml:"project"`
	Build   Build   `toml:"build"`

	// Dir is the directory containing the tslua.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
	// Compiler is a semver constraint on the compiler version, e.g. ">= 0.3".
	Compiler string `toml:"compiler"`
}

// Build configures where sources are read and output is written.
type Build struct {
	RootDir    string `toml:"rootDir"`
	OutDir     string `toml:"outDir"`
	IncludeDir string `toml:"includeDir"`
	Runtime    string `toml:"runtime"`
	Workers    int    `toml:"workers"`
	Header     string `toml:"header"`
	Cache      *bool  `toml:"cache"`
	NoInclude  bool   `toml:"noInclude"`
}

// Default returns the configuration used when a directory has no tslua.toml.
func Default(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c := &Config{Dir: abs}
	c.applyDefaults()
	return c, nil
}

// Load parses a tslua.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(dir, data)
}

// Parse decodes configuration text as if it had been read from dir.
func Parse(dir string, data []byte) (*Config, error) {
	var c Config
	meta, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", filepath.Join(dir, FileName), err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), filepath.Join(dir, FileName))
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if c.Build.Workers < 0 {
		return nil, fmt.Errorf("build.workers must not be negative, got %d", c.Build.Workers)
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Build.RootDir == "" {
		c.Build.RootDir = "src"
	}
	if c.Build.OutDir == "" {
		c.Build.OutDir = "out"
	}
	if c.Build.IncludeDir == "" {
		c.Build.IncludeDir = "include"
	}
	if c.Build.Runtime == "" {
		c.Build.Runtime = "RuntimeLib"
	}
	if c.Build.Cache == nil {
		enabled := true
		c.Build.Cache = &enabled
	}
}

// FindAndLoad walks up from startDir to find a tslua.toml file, then loads
// and returns it. Returns nil if no configuration is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// CheckCompiler reports an error when version does not satisfy the
// project's compiler constraint. An empty constraint accepts any version.
func (c *Config) CheckCompiler(version string) error {
	if c.Project.Compiler == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(c.Project.Compiler)
	if err != nil {
		return fmt.Errorf("invalid compiler constraint %q: %w", c.Project.Compiler, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid compiler version %q: %w", version, err)
	}
	if ok, reasons := constraint.Validate(v); !ok {
		msg := fmt.Sprintf("compiler %s does not satisfy %q", v, c.Project.Compiler)
		if len(reasons) > 0 {
			msg += ": " + reasons[0].Error()
		}
		return errors.New(msg)
	}
	return nil
}

// CacheEnabled reports whether incremental builds are enabled.
func (c *Config) CacheEnabled() bool {
	return c.Build.Cache == nil || *c.Build.Cache
}

// RootPath returns the absolute source directory.
func (c *Config) RootPath() string {
	return c.resolve(c.Build.RootDir)
}

// OutPath returns the absolute output directory.
func (c *Config) OutPath() string {
	return c.resolve(c.Build.OutDir)
}

// IncludePath returns the absolute directory the runtime library is copied to.
func (c *Config) IncludePath() string {
	return c.resolve(c.Build.IncludeDir)
}

// CachePath returns the path of the incremental build cache.
func (c *Config) CachePath() string {
	return filepath.Join(c.Dir, ".tslua", "cache.cbor")
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}
