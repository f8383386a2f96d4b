package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/windowkit/internal/mime"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.TieBreak() != mime.OfferOrder {
		t.Fatalf("expected offer_order tie break, got %v", cfg.TieBreak())
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Workers != DefaultConfig().Workers || len(res.Files) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Backend != BackendAuto {
		t.Fatalf("expected backend auto, got %q", res.Config.Backend)
	}
}

func TestLoadFromPath_Values(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"backend: headless",
		"display: \":1\"",
		"workers: 4",
		"clipboard_handover_timeout: 500ms",
		"drag_tie_break: target_order",
		"non_ime_window: 3",
		"ipc:",
		"  enabled: false",
		"desktop:",
		"  open_command: firefox",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Backend != BackendHeadless || cfg.Display != ":1" || cfg.Workers != 4 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.ClipboardHandoverTimeout != 500*time.Millisecond {
		t.Fatalf("handover = %v", cfg.ClipboardHandoverTimeout)
	}
	if cfg.TieBreak() != mime.TargetOrder || cfg.NonIMEWindow != 3 || cfg.IPC.Enabled {
		t.Fatalf("unexpected config %+v", cfg)
	}
	// Unmentioned keys of a nested block keep their defaults.
	if cfg.Desktop.OpenCommand != "firefox" || cfg.Desktop.DialogCommand != "zenity" || !cfg.Desktop.SessionBus {
		t.Fatalf("desktop = %+v", cfg.Desktop)
	}
}

func TestLoadFromPath_UnknownKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "hotkey: Mod4-t\n")

	_, err := LoadFromPath(path)
	if err == nil || !strings.Contains(err.Error(), "hotkey") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: info\nworkers: 0\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "workers" || verr.Source.Line != 2 {
		t.Fatalf("unexpected error %+v", verr)
	}
	if !strings.Contains(err.Error(), "config.yaml:2:") {
		t.Fatalf("error lacks position: %v", err)
	}
}

func TestLoadFromPath_IncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "base.yaml"), "workers: 8\nlog_level: debug\n")
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "include: base.yaml\nlog_level: warn\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Workers != 8 || res.Config.LogLevel != "warn" {
		t.Fatalf("merge order wrong: workers=%d log_level=%q", res.Config.Workers, res.Config.LogLevel)
	}
	if len(res.Files) != 2 || filepath.Base(res.Files[0]) != "base.yaml" {
		t.Fatalf("files = %v", res.Files)
	}
	if res.Config.Include != nil {
		t.Fatal("include list leaked into effective config")
	}
}

func TestLoadFromPath_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "include: [b.yaml]\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "include: [a.yaml]\n")

	_, err := LoadFromPath(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestResolvePath_Precedence(t *testing.T) {
	t.Setenv(EnvConfigPath, "/env/config.yaml")
	if got, _ := ResolvePath("/flag.yaml"); got != "/flag.yaml" {
		t.Fatalf("explicit path ignored: %q", got)
	}
	if got, _ := ResolvePath(""); got != "/env/config.yaml" {
		t.Fatalf("env path ignored: %q", got)
	}
	t.Setenv(EnvConfigPath, "")
	got, err := ResolvePath("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasSuffix(got, filepath.Join(".config", "windowkit", "config.yaml")) {
		t.Fatalf("default path = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		path string
		edit func(*Config)
	}{
		{"backend", func(c *Config) { c.Backend = "wayland" }},
		{"log_level", func(c *Config) { c.LogLevel = "warning" }},
		{"log_format", func(c *Config) { c.LogFormat = "xml" }},
		{"request_queue", func(c *Config) { c.RequestQueue = 0 }},
		{"clipboard_handover_timeout", func(c *Config) { c.ClipboardHandoverTimeout = time.Minute }},
		{"scale_override", func(c *Config) { c.ScaleOverride = -1 }},
		{"drag_tie_break", func(c *Config) { c.DragTieBreak = "random" }},
		{"event_tap.listen", func(c *Config) { c.EventTap.Listen = "8080" }},
		{"desktop.dialog_command", func(c *Config) { c.Desktop.DialogCommand = " " }},
		{"app_id", func(c *Config) { c.AppID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Path != tt.path {
				t.Fatalf("expected error at %q, got %v", tt.path, err)
			}
		})
	}
}

func TestSave_RoundTripsThroughLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Workers = 3
	cfg.EventTap.Listen = "127.0.0.1:7777"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load saved config: %v", err)
	}
	if res.Config.Workers != 3 || res.Config.EventTap.Listen != "127.0.0.1:7777" {
		t.Fatalf("saved config not loaded back: %+v", res.Config)
	}
}
