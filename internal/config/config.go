package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/windowkit/internal/mime"
)

// Backend names.
const (
	BackendAuto     = "auto"
	BackendX11      = "x11"
	BackendHeadless = "headless"
)

// MaxHandoverTimeout caps how long clearing the clipboard may wait for a
// clipboard manager.
const MaxHandoverTimeout = 10 * time.Second

// ValidationError points at the offending key, and at its file position
// when the value came from a file.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IPCConfig controls the control socket.
type IPCConfig struct {
	Enabled bool `yaml:"enabled"`
	// Socket overrides the runtime-dir socket path.
	Socket string `yaml:"socket,omitempty"`
}

// EventTapConfig controls the websocket event stream. An empty Listen
// disables it.
type EventTapConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// DesktopConfig names the commands behind desktop requests. Notifications
// and file manager reveals go over the session bus when SessionBus is set.
type DesktopConfig struct {
	OpenCommand   string `yaml:"open_command"`
	DialogCommand string `yaml:"dialog_command"`
	SessionBus    bool   `yaml:"session_bus"`
}

// Config holds the application configuration.
type Config struct {
	Include includeList `yaml:"include,omitempty"`

	Backend         string `yaml:"backend"`
	Display         string `yaml:"display,omitempty"`
	AppID           string `yaml:"app_id"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	LogFile         string `yaml:"log_file,omitempty"`
	DebugAssertions bool   `yaml:"debug_assertions"`

	Workers                  int           `yaml:"workers"`
	RequestQueue             int           `yaml:"request_queue"`
	ClipboardHandoverTimeout time.Duration `yaml:"clipboard_handover_timeout"`
	NonIMEWindow             uint32        `yaml:"non_ime_window,omitempty"`
	ScaleOverride            float64       `yaml:"scale_override,omitempty"`
	DragTieBreak             string        `yaml:"drag_tie_break"`

	IPC      IPCConfig      `yaml:"ipc"`
	EventTap EventTapConfig `yaml:"event_tap"`
	Desktop  DesktopConfig  `yaml:"desktop"`
}

// DefaultConfig returns a configuration that validates.
func DefaultConfig() *Config {
	return &Config{
		Backend:                  BackendAuto,
		AppID:                    "windowkit",
		LogLevel:                 "info",
		LogFormat:                "auto",
		Workers:                  2,
		RequestQueue:             64,
		ClipboardHandoverTimeout: 2 * time.Second,
		DragTieBreak:             mime.OfferOrder.String(),
		IPC:                      IPCConfig{Enabled: true},
		Desktop: DesktopConfig{
			OpenCommand:   "xdg-open",
			DialogCommand: "zenity",
			SessionBus:    true,
		},
	}
}

// TieBreak returns the parsed drag_tie_break policy.
func (c *Config) TieBreak() mime.Policy {
	p, _ := mime.ParsePolicy(c.DragTieBreak)
	return p
}

// Validate returns the first violation.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendX11, BackendHeadless:
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: auto, x11, headless")}
	}
	if strings.TrimSpace(c.AppID) == "" {
		return &ValidationError{Path: "app_id", Err: fmt.Errorf("app_id is required")}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return &ValidationError{Path: "log_format", Err: fmt.Errorf("log_format must be one of: auto, text, json")}
	}
	if c.Workers < 1 {
		return &ValidationError{Path: "workers", Err: fmt.Errorf("workers must be >= 1")}
	}
	if c.RequestQueue < 1 {
		return &ValidationError{Path: "request_queue", Err: fmt.Errorf("request_queue must be >= 1")}
	}
	if c.ClipboardHandoverTimeout < 0 || c.ClipboardHandoverTimeout > MaxHandoverTimeout {
		return &ValidationError{Path: "clipboard_handover_timeout", Err: fmt.Errorf("clipboard_handover_timeout must be between 0 and %s", MaxHandoverTimeout)}
	}
	if c.ScaleOverride < 0 {
		return &ValidationError{Path: "scale_override", Err: fmt.Errorf("scale_override must be > 0 when set")}
	}
	if _, err := mime.ParsePolicy(c.DragTieBreak); err != nil {
		return &ValidationError{Path: "drag_tie_break", Err: fmt.Errorf("drag_tie_break must be one of: offer_order, target_order")}
	}
	if c.EventTap.Listen != "" && !strings.Contains(c.EventTap.Listen, ":") {
		return &ValidationError{Path: "event_tap.listen", Err: fmt.Errorf("listen address must be host:port")}
	}
	for path, cmd := range map[string]string{
		"desktop.open_command":   c.Desktop.OpenCommand,
		"desktop.dialog_command": c.Desktop.DialogCommand,
	} {
		if strings.TrimSpace(cmd) == "" {
			return &ValidationError{Path: path, Err: fmt.Errorf("command must not be empty")}
		}
	}
	return nil
}

// Marshal renders the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	out := *c
	out.Include = nil
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// includeList accepts a single path or a list of paths.
type includeList []string

func (l *includeList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = includeList{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	default:
		return fmt.Errorf("include must be a path or a list of paths")
	}
}
