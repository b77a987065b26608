// Package config loads server configuration in three layers, highest
// precedence first: CLI flags, environment variables, then an optional
// YAML file at ~/.config/hanzo-mcp/config.yaml. The merged result is
// validated once at startup and is immutable for the process lifetime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const maxConfigFileBytes = 1 << 20

// Config is the fully-resolved, validated server configuration.
type Config struct {
	AllowedPaths     []string      `koanf:"allowed_paths"`
	LogLevel         string        `koanf:"log_level"`
	DisableWrites    bool          `koanf:"disable_writes"`
	DisableSearch    bool          `koanf:"disable_search"`
	EnableAgent      bool          `koanf:"enable_agent"`
	ShellTimeout     time.Duration `koanf:"shell_timeout"`
	MaxShellTimeout  time.Duration `koanf:"max_shell_timeout"`
	MaxConcurrentOps int64         `koanf:"max_concurrent_ops"`
}

func defaults() Config {
	return Config{
		LogLevel:         "info",
		ShellTimeout:     30 * time.Second,
		MaxShellTimeout:  5 * time.Minute,
		MaxConcurrentOps: int64(runtime.NumCPU()),
	}
}

// Load merges flags, environment, and an optional YAML file (in that
// precedence order) into a validated Config. configPath overrides the
// default `~/.config/hanzo-mcp/config.yaml` location; an empty string
// uses the default, and a missing file at either location is not an
// error — defaults and the other layers still apply.
func Load(flags *pflag.FlagSet, configPath string) (*Config, error) {
	k := koanf.New(".")

	resolvedPath := configPath
	if resolvedPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			resolvedPath = filepath.Join(home, ".config", "hanzo-mcp", "config.yaml")
		}
	}
	if resolvedPath != "" {
		if err := loadYAMLFile(k, resolvedPath); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("HANZO_", ".", envKeyTransform), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load environment variables: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("config: failed to load flags: %w", err)
		}
	}

	out := defaults()
	if err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// envKeyTransform maps HANZO_LOG_LEVEL -> log_level, HANZO_ALLOWED_PATHS
// -> allowed_paths, matching the naming convention SPEC_FULL.md §4.14
// lists.
func envKeyTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "HANZO_"))
}

func loadYAMLFile(k *koanf.Koanf, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil // no config file present: defaults and other layers still apply
	}
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm != 0o600 && perm != 0o400 {
			return fmt.Errorf("config: %s has insecure permissions %v (expected 0600 or 0400)", path, perm)
		}
	}
	if info.Size() > maxConfigFileBytes {
		return fmt.Errorf("config: %s is too large (%d bytes, max %d)", path, info.Size(), maxConfigFileBytes)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

// Validate checks invariants that must hold before the config becomes
// the immutable, process-lifetime policy spec.md §5 describes.
func (c *Config) Validate() error {
	for _, p := range c.AllowedPaths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("config: allowed_paths entries must be absolute, got %q", p)
		}
	}
	if c.ShellTimeout <= 0 {
		return fmt.Errorf("config: shell_timeout must be positive")
	}
	if c.MaxConcurrentOps <= 0 {
		return fmt.Errorf("config: max_concurrent_ops must be positive")
	}
	return nil
}
