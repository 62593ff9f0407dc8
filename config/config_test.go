package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/wippyai/spirv-cross/errors"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Backend != BackendGo {
		t.Errorf("backend = %q, want go", cfg.Backend)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Development {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Cache.Enabled || cfg.Cache.Path != DefaultCachePath() {
		t.Errorf("cache = %+v", cfg.Cache)
	}
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "spvc.yaml", `
backend: wasm
wasm:
  path: /opt/spirv_cross.wasm
  memory_limit_pages: 1024
log:
  level: debug
cache:
  enabled: true
`},
		{"toml", "spvc.toml", `
backend = "wasm"
[wasm]
path = "/opt/spirv_cross.wasm"
memory_limit_pages = 1024
[log]
level = "debug"
[cache]
enabled = true
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.content))
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Backend != BackendWasm || cfg.Wasm.Path != "/opt/spirv_cross.wasm" || cfg.Wasm.MemoryLimitPages != 1024 {
				t.Errorf("wasm = %q %+v", cfg.Backend, cfg.Wasm)
			}
			if cfg.Log.Level != "debug" || !cfg.Cache.Enabled {
				t.Errorf("cfg = %+v", cfg)
			}
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SPVC_BACKEND", "native")
	t.Setenv("SPVC_NATIVE_LIBRARY", "/usr/lib/libspirv_cross_c.so")
	t.Setenv("SPVC_LOG_LEVEL", "error")

	cfg, err := Load(writeConfig(t, "spvc.yaml", "backend: go\nlog:\n  level: info\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendNative || cfg.Native.Library != "/usr/lib/libspirv_cross_c.so" {
		t.Errorf("native = %q %+v", cfg.Backend, cfg.Native)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("log level = %q, want env value", cfg.Log.Level)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    errors.Kind
	}{
		{"unknown backend", "backend: vulkan\n", errors.KindInvalidEnum},
		{"wasm without path", "backend: wasm\n", errors.KindInvalidInput},
		{"native without library", "backend: native\n", errors.KindInvalidInput},
		{"bad log level", "log:\n  level: loud\n", errors.KindInvalidEnum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "spvc.yaml", tt.content))
			var e *errors.Error
			if !errors.As(err, &e) || e.Kind != tt.kind || e.Phase != errors.PhaseConfig {
				t.Errorf("err = %v, want %s config error", err, tt.kind)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "debug", Development: true}}
	l, err := cfg.NewLogger()
	if err != nil {
		t.Fatal(err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level not enabled")
	}
}
