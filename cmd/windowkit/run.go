package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/1broseidon/windowkit/internal/app"
	"github.com/1broseidon/windowkit/internal/config"
	"github.com/1broseidon/windowkit/internal/desktop"
	"github.com/1broseidon/windowkit/internal/eventtap"
	"github.com/1broseidon/windowkit/internal/headless"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/ipc"
	"github.com/1broseidon/windowkit/internal/logging"
	"github.com/1broseidon/windowkit/internal/loop"
	"github.com/1broseidon/windowkit/internal/mcp"
	"github.com/1broseidon/windowkit/internal/platform"
	"github.com/1broseidon/windowkit/internal/x11"
)

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Config file path (default: $WINDOWKIT_CONFIG or ~/.config/windowkit/config.yaml)")
	backendName := fs.String("backend", "", "Backend: auto, x11 or headless (overrides config)")
	serveMCP := fs.Bool("mcp", false, "Serve MCP tools on stdio")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: windowkit run [--backend NAME] [--config PATH] [--mcp]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open a window and run the event loop in the foreground.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "run takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config
	if *backendName != "" {
		cfg.Backend = *backendName
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "--backend: %v\n", err)
			return 2
		}
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "files", res.Files, "backend", cfg.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *serveMCP, logger); err != nil {
		logger.Error("windowkit stopped", "error", err)
		return 1
	}
	return 0
}

// selectBackend resolves auto to x11 when a display is reachable by name.
// The returned release func closes what the desktop holds open.
func selectBackend(cfg *config.Config, logger *slog.Logger) (platform.Backend, platform.Desktop, func()) {
	name := cfg.Backend
	if name == config.BackendAuto {
		name = config.BackendHeadless
		if cfg.Display != "" || os.Getenv("DISPLAY") != "" {
			name = config.BackendX11
		}
	}

	if name == config.BackendHeadless {
		return headless.New(headless.Options{Scale: cfg.ScaleOverride}), headless.NewDesktop(), func() {}
	}

	backend := x11.New(x11.Options{
		Display: cfg.Display,
		Scale:   cfg.ScaleOverride,
		Logger:  logger.With("component", "x11"),
	})
	opts := desktop.Options{
		AppName:       cfg.AppID,
		OpenCommand:   cfg.Desktop.OpenCommand,
		DialogCommand: cfg.Desktop.DialogCommand,
		Logger:        logger.With("component", "desktop"),
	}
	var conn *dbus.Conn
	if cfg.Desktop.SessionBus {
		var err error
		if conn, err = desktop.ConnectSessionBus(); err != nil {
			logger.Warn("notifications unavailable", "error", err)
		} else {
			opts.Bus = conn
		}
	}
	d := desktop.New(opts)
	release := func() {
		d.Close()
		if conn != nil {
			_ = conn.Close()
		}
	}
	return backend, d, release
}

func run(ctx context.Context, cfg *config.Config, serveMCP bool, logger *slog.Logger) error {
	l := loop.New(loop.Options{
		Debug:  cfg.DebugAssertions,
		Logger: logger.With("component", "loop"),
	})

	backend, d, release := selectBackend(cfg, logger)
	defer release()
	h := newHost(cfg.AppID, logger.With("component", "host"))
	a, err := app.New(app.Options{
		Backend:           backend,
		Desktop:           d,
		Loop:              l,
		Logger:            logger,
		Callbacks:         h.callbacks(),
		Workers:           cfg.Workers,
		RequestQueue:      cfg.RequestQueue,
		DebugAssertions:   cfg.DebugAssertions,
		NonIMEWindow:      ids.WindowID(cfg.NonIMEWindow),
		TieBreak:          cfg.TieBreak(),
		ClipboardHandover: cfg.ClipboardHandoverTimeout,
	})
	if err != nil {
		return err
	}
	h.app = a

	if cfg.IPC.Enabled {
		srv, err := ipc.NewServer(cfg.IPC.Socket, l, h, logger.With("component", "ipc"))
		if err != nil {
			return err
		}
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Stop()
	}

	if cfg.EventTap.Listen != "" {
		tap := eventtap.New(logger.With("component", "eventtap"))
		if _, err := tap.Start(cfg.EventTap.Listen); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := tap.Close(shutdownCtx); err != nil {
				logger.Warn("event tap close failed", "error", err)
			}
		}()
		// Queued ahead of Start so the tap sees ApplicationStarted.
		l.Post(func() { a.Observe(tap.Publish) })
	}

	if serveMCP {
		mcpCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		server := mcp.NewServer(l, h, logger.With("component", "mcp"))
		go func() {
			if err := server.Run(mcpCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("mcp server stopped", "error", err)
			}
			// The client went away; so does the application.
			l.Post(func() { a.RequestTerminate() })
		}()
	}

	return a.Run(ctx)
}
