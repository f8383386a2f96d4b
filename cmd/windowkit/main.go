package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/1broseidon/windowkit/internal/config"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/ipc"
	"github.com/1broseidon/windowkit/internal/window"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runRun(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "close":
		os.Exit(runClose(os.Args[2:]))
	case "open-url":
		os.Exit(runOpenURL(os.Args[2:]))
	case "clipboard":
		os.Exit(runClipboard(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: windowkit <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Open a window and run the event loop (foreground)")
	fmt.Fprintln(w, "  status              Show application status")
	fmt.Fprintln(w, "  windows             List live windows")
	fmt.Fprintln(w, "  close <id>          Close a window")
	fmt.Fprintln(w, "  open-url <url>      Open a URL on behalf of a window")
	fmt.Fprintln(w, "  clipboard set <t>   Put text on the clipboard")
	fmt.Fprintln(w, "  clipboard clear     Give up clipboard ownership")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print effective configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'windowkit <command> --help' for command-specific options.")
}

// clientFlags adds the shared --socket and --json flags.
func clientFlags(fs *flag.FlagSet) (socket *string, asJSON *bool) {
	socket = fs.String("socket", "", "IPC socket path (default: $XDG_RUNTIME_DIR/windowkit.sock)")
	asJSON = fs.Bool("json", false, "Print JSON")
	return socket, asJSON
}

func parseFlags(fs *flag.FlagSet, args []string, usage string) int {
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: "+usage)
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	return -1
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	socket, asJSON := clientFlags(fs)
	if code := parseFlags(fs, args, "windowkit status [--json] [--socket PATH]"); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := ipc.NewClient(*socket).GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(status)
	}
	fmt.Printf("backend:          %s\n", status.Backend)
	fmt.Printf("windows:          %d\n", status.Windows)
	fmt.Printf("focused:          %d\n", status.Focused)
	fmt.Printf("pending_requests: %d\n", status.Pending)
	fmt.Printf("notifications:    %d\n", status.Notifications)
	fmt.Printf("dragging:         %v\n", status.Dragging)
	fmt.Printf("drop_target:      %v\n", status.DropTarget)
	for _, sel := range status.Selections {
		fmt.Printf("%-17s %s %s\n", sel.Kind.String()+":", sel.Ownership, strings.Join(sel.MimeTypes, ","))
	}
	fmt.Printf("uptime_seconds:   %d\n", status.UptimeSeconds)
	return 0
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	socket, asJSON := clientFlags(fs)
	if code := parseFlags(fs, args, "windowkit windows [--json] [--socket PATH]"); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "windows takes no arguments")
		fs.Usage()
		return 2
	}

	windows, err := ipc.NewClient(*socket).ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(windows)
	}
	printWindows(os.Stdout, windows)
	return 0
}

func printWindows(w io.Writer, windows []window.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPHASE\tSIZE\tSCALE\tSTATE\tTITLE")
	for _, s := range windows {
		var state []string
		if s.Maximized {
			state = append(state, "maximized")
		}
		if s.Fullscreen {
			state = append(state, "fullscreen")
		}
		if s.TextInputAvailable {
			state = append(state, "ime")
		}
		if len(state) == 0 {
			state = append(state, "-")
		}
		fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%g\t%s\t%s\n",
			s.ID, s.Phase, s.Size.Width, s.Size.Height, s.Scale, strings.Join(state, ","), s.Title)
	}
	tw.Flush()
}

func runClose(args []string) int {
	fs := flag.NewFlagSet("close", flag.ContinueOnError)
	socket := fs.String("socket", "", "IPC socket path (default: $XDG_RUNTIME_DIR/windowkit.sock)")
	if code := parseFlags(fs, args, "windowkit close [--socket PATH] <window-id>"); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "close requires exactly one window id")
		return 2
	}
	id, err := parseWindowID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if err := ipc.NewClient(*socket).CloseWindow(id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runOpenURL(args []string) int {
	fs := flag.NewFlagSet("open-url", flag.ContinueOnError)
	socket := fs.String("socket", "", "IPC socket path (default: $XDG_RUNTIME_DIR/windowkit.sock)")
	windowArg := fs.String("window", "", "Requesting window id (default: focused window)")
	if code := parseFlags(fs, args, "windowkit open-url [--window ID] [--socket PATH] <url>"); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "open-url requires exactly one url")
		return 2
	}
	var w ids.WindowID
	if *windowArg != "" {
		id, err := parseWindowID(*windowArg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		w = id
	}

	req, err := ipc.NewClient(*socket).OpenURL(w, fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("request: %d\n", req)
	return 0
}

func runClipboard(args []string) int {
	usage := func() {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  windowkit clipboard set [--socket PATH] <text>")
		fmt.Fprintln(os.Stderr, "  windowkit clipboard clear [--socket PATH]")
	}
	if len(args) == 0 {
		usage()
		return 2
	}

	fs := flag.NewFlagSet("clipboard "+args[0], flag.ContinueOnError)
	socket := fs.String("socket", "", "IPC socket path (default: $XDG_RUNTIME_DIR/windowkit.sock)")
	var text string
	switch args[0] {
	case "set":
		if code := parseFlags(fs, args[1:], "windowkit clipboard set [--socket PATH] <text>"); code >= 0 {
			return code
		}
		if fs.NArg() == 0 {
			fmt.Fprintln(os.Stderr, "clipboard set requires text")
			return 2
		}
		text = strings.Join(fs.Args(), " ")
	case "clear":
		if code := parseFlags(fs, args[1:], "windowkit clipboard clear [--socket PATH]"); code >= 0 {
			return code
		}
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown clipboard command: %s\n\n", args[0])
		usage()
		return 2
	}

	if err := ipc.NewClient(*socket).SetClipboardText(text); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func parseWindowID(s string) (ids.WindowID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid window id %q", s)
	}
	return ids.WindowID(n), nil
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  windowkit config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  windowkit config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/windowkit/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		res, err := config.Load(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("config: ok (%d file(s))\n", len(res.Files))
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/windowkit/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := config.Load(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			for _, f := range res.Files {
				fmt.Printf("# source: %s\n", f)
			}
			cfg = res.Config
		}
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n", args[0])
		return 2
	}
}
