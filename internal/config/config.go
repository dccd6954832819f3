// Package config loads osfcheck settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/odvcencio/osfcheck/internal/ignore"
	"github.com/odvcencio/osfcheck/internal/walk"
)

// FileName is looked up at the scan root when no explicit path is given.
const FileName = ".osfcheck.yaml"

type Config struct {
	Extension  string      `yaml:"extension"`
	SkipDirs   []string    `yaml:"skip_dirs"`
	Sort       bool        `yaml:"sort"`
	IgnoreFile string      `yaml:"ignore_file"`
	Watch      WatchConfig `yaml:"watch"`
	Log        LogConfig   `yaml:"log"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Extension:  walk.DefaultExtension,
		SkipDirs:   append([]string(nil), walk.DefaultSkipDirs...),
		IgnoreFile: ignore.FileName,
		Watch:      WatchConfig{Debounce: 250 * time.Millisecond},
		Log:        LogConfig{Level: "WARN", Format: "CONSOLE"},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads explicitPath when set, else root/.osfcheck.yaml when present,
// else the defaults. The returned source is the file used, or "" for defaults.
func Resolve(explicitPath, root string) (Config, string, error) {
	if strings.TrimSpace(explicitPath) != "" {
		cfg, err := Load(explicitPath)
		if err != nil {
			return Config{}, "", fmt.Errorf("load config: %w", err)
		}
		return cfg, explicitPath, nil
	}

	candidate := filepath.Join(root, FileName)
	cfg, err := Load(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), "", nil
		}
		return Config{}, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, candidate, nil
}

func (c Config) Validate() error {
	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		return fmt.Errorf("extension %q must start with '.'", c.Extension)
	}
	for _, name := range c.SkipDirs {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("skip dir %q must be a plain directory name", name)
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch debounce must be >= 0")
	}
	switch strings.ToUpper(strings.TrimSpace(c.Log.Level)) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return fmt.Errorf("unsupported log level %q", c.Log.Level)
	}
	switch strings.ToUpper(c.Log.Format) {
	case "CONSOLE", "JSON":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return nil
}

// IgnorePath returns the ignore file location relative to root, or "" when disabled.
func (c Config) IgnorePath(root string) string {
	if strings.TrimSpace(c.IgnoreFile) == "" {
		return ""
	}
	if filepath.IsAbs(c.IgnoreFile) {
		return c.IgnoreFile
	}
	return filepath.Join(root, c.IgnoreFile)
}
