// Package config loads the optional mac YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultBinary      = "container"
	DefaultShell       = "sh"
	DefaultAnswer      = "Y"
	DefaultMaxOutput   = 1 << 20 // 1 MB
	DefaultHistorySize = 20
	DefaultHTTPAddr    = "127.0.0.1:9090"
)

// FileName is looked up in the working directory before the user config dir.
const FileName = ".mac.yaml"

// Config holds the parsed configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int             `yaml:"version"`
	Container    ContainerConfig `yaml:"container"`
	RawMaxOutput int             `yaml:"max_output"` // bytes per stream
	History      HistoryConfig   `yaml:"history"`
	Log          LogConfig       `yaml:"log"`
	HTTP         HTTPConfig      `yaml:"http"`
}

// ContainerConfig controls how the container CLI is invoked.
type ContainerConfig struct {
	Binary string `yaml:"binary"` // default: container
	Shell  string `yaml:"shell"`  // shell used for the start pipeline, default: sh
	Answer string `yaml:"answer"` // piped into the start confirmation prompt, default: Y
}

// HistoryConfig controls the run history.
type HistoryConfig struct {
	Size int    `yaml:"size"` // entries kept in memory
	Dir  string `yaml:"dir"`  // where run records are written
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// HTTPConfig holds the streamable HTTP listen address.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Binary returns the container CLI name or the default.
func (c *Config) Binary() string {
	return orDefault(c.Container.Binary, DefaultBinary)
}

// Shell returns the shell used for the start pipeline or the default.
func (c *Config) Shell() string {
	return orDefault(c.Container.Shell, DefaultShell)
}

// Answer returns the confirmation answer or the default.
func (c *Config) Answer() string {
	return orDefault(c.Container.Answer, DefaultAnswer)
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// HistorySize returns the number of runs kept in memory.
func (c *Config) HistorySize() int {
	if c.History.Size > 0 {
		return c.History.Size
	}
	return DefaultHistorySize
}

// HistoryDir returns the directory for run records: the configured one,
// else mac/runs under the user cache dir. An empty result means a
// temporary directory.
func (c *Config) HistoryDir() string {
	if c.History.Dir != "" {
		return c.History.Dir
	}
	if cache, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cache, "mac", "runs")
	}
	return ""
}

// HTTPAddr returns the HTTP listen address or the default.
func (c *Config) HTTPAddr() string {
	return orDefault(c.HTTP.Addr, DefaultHTTPAddr)
}

// LogLevel parses the configured level, falling back to info.
func (c *Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// JSONLogs reports whether logs should be emitted as JSON.
func (c *Config) JSONLogs() bool {
	return strings.EqualFold(c.Log.Format, "json")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// LoadResult holds the parsed config and the file it came from.
type LoadResult struct {
	Config *Config
	Path   string // empty when no file was found
}

// Load reads the configuration. An explicit path must exist. Otherwise
// FileName in dir is tried, then mac/config.yaml under the user config
// directory. If no file exists, a default Config is returned.
func Load(explicit, dir string) (*LoadResult, error) {
	if explicit != "" {
		cfg, err := readFile(explicit)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Path: explicit}, nil
	}

	for _, path := range candidates(dir) {
		cfg, err := readFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		return &LoadResult{Config: cfg, Path: path}, nil
	}
	return &LoadResult{Config: &Config{}}, nil
}

func candidates(dir string) []string {
	var paths []string
	if dir != "" {
		paths = append(paths, filepath.Join(dir, FileName))
	}
	if userDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(userDir, "mac", "config.yaml"))
	}
	return paths
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
