// Package config loads spvc settings from a file, SPVC_* environment
// variables and built-in defaults, in that order of precedence after env.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/spirv-cross/errors"
)

// EnvPrefix prefixes every environment override, e.g. SPVC_WASM_PATH.
const EnvPrefix = "SPVC"

// Backend names which compiler core to run.
const (
	BackendGo     = "go"
	BackendWasm   = "wasm"
	BackendNative = "native"
)

type Config struct {
	Backend string       `mapstructure:"backend"`
	Wasm    WasmConfig   `mapstructure:"wasm"`
	Native  NativeConfig `mapstructure:"native"`
	Log     LogConfig    `mapstructure:"log"`
	Cache   CacheConfig  `mapstructure:"cache"`
}

// WasmConfig locates the wasm build of the core.
type WasmConfig struct {
	Path string `mapstructure:"path"`
	// Memory limit for the core (in pages, 64KB each). 0 keeps wazero's default.
	MemoryLimitPages uint32 `mapstructure:"memory_limit_pages"`
}

// NativeConfig locates the shared-library build of the core.
type NativeConfig struct {
	Library string `mapstructure:"library"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// CacheConfig controls the compile cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultCachePath is the cache database under the user cache directory.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".spvc-cache.db"
	}
	return filepath.Join(dir, "spvc", "cache.db")
}

// Load reads configPath (any format viper knows; empty for none) and
// applies environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("backend", BackendGo)
	v.SetDefault("wasm.path", "")
	v.SetDefault("wasm.memory_limit_pages", 0)
	v.SetDefault("native.library", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.development", false)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", DefaultCachePath())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read "+configPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGo:
	case BackendWasm:
		if c.Wasm.Path == "" {
			return errors.InvalidInput(errors.PhaseConfig, "backend wasm requires wasm.path")
		}
	case BackendNative:
		if c.Native.Library == "" {
			return errors.InvalidInput(errors.PhaseConfig, "backend native requires native.library")
		}
	default:
		return errors.InvalidEnum(errors.PhaseConfig, []string{"backend"}, c.Backend, "backend")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.InvalidEnum(errors.PhaseConfig, []string{"log", "level"}, c.Log.Level, "zapcore.Level")
	}
	return nil
}

// NewLogger builds the zap logger the log section describes.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.InvalidEnum(errors.PhaseConfig, []string{"log", "level"}, c.Log.Level, "zapcore.Level")
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
