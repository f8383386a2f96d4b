// Package desktop implements platform.Desktop for freedesktop sessions.
// Notifications and file manager reveals go over the session bus; URLs and
// file dialogs use xdg-open and zenity.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/1broseidon/windowkit/internal/platform"
)

// Exit codes for zenity
const (
	zenityOK        = 0
	zenityCancelled = 1
	zenityTimeout   = 5
)

var (
	// ErrEmptyArgument is returned for an empty URL, path or title.
	ErrEmptyArgument = errors.New("desktop: empty argument")
	// ErrNoNotificationID is returned when the server assigned no id.
	ErrNoNotificationID = errors.New("desktop: notification id not reported")
	// ErrNoSessionBus is returned by notifications when no bus is connected.
	ErrNoSessionBus = errors.New("desktop: no session bus")
)

// Options names the commands used. Empty fields get the defaults.
type Options struct {
	AppName       string
	OpenCommand   string
	DialogCommand string
	// Bus carries notifications and file manager reveals. Without it
	// notifications fail and reveals fall back to OpenCommand.
	Bus    Bus
	Logger *slog.Logger
}

// DefaultOptions returns the freedesktop defaults.
func DefaultOptions() Options {
	return Options{
		AppName:       "windowkit",
		OpenCommand:   "xdg-open",
		DialogCommand: "zenity",
	}
}

type Desktop struct {
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	shown  map[string]bool
	closed func(id, reason string)

	subOnce   sync.Once
	subErr    error
	done      chan struct{}
	closeOnce sync.Once
}

var (
	_ platform.Desktop             = (*Desktop)(nil)
	_ platform.NotificationWatcher = (*Desktop)(nil)
)

// New creates a desktop with opts, filling empty fields from DefaultOptions.
func New(opts Options) *Desktop {
	def := DefaultOptions()
	if opts.AppName == "" {
		opts.AppName = def.AppName
	}
	if opts.OpenCommand == "" {
		opts.OpenCommand = def.OpenCommand
	}
	if opts.DialogCommand == "" {
		opts.DialogCommand = def.DialogCommand
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Desktop{
		opts:   opts,
		logger: logger,
		shown:  make(map[string]bool),
		done:   make(chan struct{}),
	}
}

// Close stops the signal listener. The bus itself belongs to the caller.
func (d *Desktop) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}

func (d *Desktop) OpenURL(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("open url: %w", ErrEmptyArgument)
	}
	return d.run(ctx, d.opts.OpenCommand, url)
}

// OpenFileManager asks the file manager to reveal path. Without a bus, or
// when no file manager owns the name, the containing directory is opened
// instead.
func (d *Desktop) OpenFileManager(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("open file manager: %w", ErrEmptyArgument)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if d.opts.Bus != nil {
		uri := (&url.URL{Scheme: "file", Path: path}).String()
		obj := d.opts.Bus.Object(fileManagerDest, fileManagerPath)
		call := obj.CallWithContext(ctx, showItemsMethod, 0, []string{uri}, "")
		if call.Err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Debug("file manager reveal failed, opening directory", "path", path, "error", call.Err)
	}
	return d.run(ctx, d.opts.OpenCommand, revealTarget(path))
}

// revealTarget is path itself for a directory and its parent otherwise.
func revealTarget(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

func (d *Desktop) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	d.logger.Debug("desktop command finished", "command", name, "args", args)
	return nil
}

// ShowFileDialog runs zenity. Dismissing the dialog returns
// platform.ErrCancelled.
func (d *Desktop) ShowFileDialog(ctx context.Context, fd platform.FileDialog) ([]string, error) {
	cmd := exec.CommandContext(ctx, d.opts.DialogCommand, dialogArgs(fd)...)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			switch exitErr.ExitCode() {
			case zenityCancelled, zenityTimeout:
				return nil, platform.ErrCancelled
			}
		}
		return nil, fmt.Errorf("%s: %w", d.opts.DialogCommand, err)
	}
	paths := parseDialogOutput(string(out))
	if len(paths) == 0 {
		return nil, platform.ErrCancelled
	}
	return paths, nil
}

// ActivationToken returns an X startup-notification style id. There is no
// compositor to ask on X11, so the token is generated locally.
func (d *Desktop) ActivationToken(ctx context.Context, appID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if appID == "" {
		appID = d.opts.AppName
	}
	return fmt.Sprintf("%s-%s_TIME0", appID, uuid.NewString()), nil
}

const dialogSeparator = "\n"

func dialogArgs(fd platform.FileDialog) []string {
	args := []string{"--file-selection"}
	if fd.Title != "" {
		args = append(args, "--title="+fd.Title)
	}
	if fd.StartPath != "" {
		args = append(args, "--filename="+fd.StartPath)
	}
	if fd.Save {
		args = append(args, "--save", "--confirm-overwrite")
	}
	if fd.Directory {
		args = append(args, "--directory")
	}
	if fd.Multiple && !fd.Save {
		args = append(args, "--multiple", "--separator="+dialogSeparator)
	}
	if fd.Modal {
		args = append(args, "--modal")
	}
	if fd.AcceptLabel != "" {
		args = append(args, "--ok-label="+fd.AcceptLabel)
	}
	for _, f := range fd.Filters {
		if len(f.Patterns) == 0 {
			continue
		}
		filter := strings.Join(f.Patterns, " ")
		if f.Name != "" {
			filter = f.Name + " | " + filter
		}
		args = append(args, "--file-filter="+filter)
	}
	return args
}

func parseDialogOutput(out string) []string {
	var paths []string
	for _, line := range strings.Split(out, dialogSeparator) {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}
