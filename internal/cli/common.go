package cli

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/avivsinai/mail-thread/internal/render"
)

// Output streams; tests swap them for buffers.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin
)

type commonFlags struct {
	Root    string
	JSON    bool
	Verbose bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	flags := &commonFlags{}
	fs.StringVar(&flags.Root, "root", defaultRoot(), "Mail root directory (or "+envRoot+")")
	fs.BoolVar(&flags.JSON, "json", false, "Emit JSON output")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Log debug output to stderr")
	return flags
}

func (c *commonFlags) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

func defaultRoot() string {
	if env := strings.TrimSpace(os.Getenv(envRoot)); env != "" {
		return env
	}
	return ".mail-thread"
}

func defaultFrom() string {
	return strings.TrimSpace(os.Getenv(envFrom))
}

// resolveRoot makes a relative root absolute, searching parent directories
// the way git finds .git.
func resolveRoot(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	cleaned := filepath.Clean(raw)
	if filepath.IsAbs(cleaned) {
		return cleaned
	}
	cwd, err := os.Getwd()
	if err != nil {
		return cleaned
	}
	for dir := cwd; ; {
		candidate := filepath.Join(dir, cleaned)
		if dirExists(candidate) {
			return absPath(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cleaned
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func readBody(bodyFlag string) (string, error) {
	if bodyFlag == "" || bodyFlag == "@-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if strings.HasPrefix(bodyFlag, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(bodyFlag, "@"))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return bodyFlag, nil
}

// messageFilename maps a message id to its file name in the mailbox.
func messageFilename(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("message id is required")
	}
	if strings.HasPrefix(id, ".") || strings.ContainsAny(id, "/\\") {
		return "", fmt.Errorf("invalid message id: %s", id)
	}
	return id + ".md", nil
}

func isHelp(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}

func parseFlags(fs *flag.FlagSet, args []string, usage func()) (bool, error) {
	fs.SetOutput(io.Discard)
	if usage != nil {
		fs.Usage = usage
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, UsageError("%v", err)
	}
	if fs.NArg() > 0 {
		return false, UsageError("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return false, nil
}

func usageWithFlags(fs *flag.FlagSet, usage string, notes ...string) func() {
	return func() {
		_ = writeStdoutLine("Usage:")
		_ = writeStdoutLine("  " + usage)
		if len(notes) > 0 {
			_ = writeStdoutLine("")
			for _, note := range notes {
				_ = writeStdoutLine(note)
			}
		}
		_ = writeStdoutLine("")
		_ = writeStdoutLine("Options:")
		var buf bytes.Buffer
		fs.SetOutput(&buf)
		fs.PrintDefaults()
		fs.SetOutput(io.Discard)
		_ = writeStdout("%s", buf.String())
	}
}

func writeJSON(v any) error {
	return render.JSON(stdout, v)
}

func writeStdout(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

func writeStdoutLine(args ...any) error {
	_, err := fmt.Fprintln(stdout, args...)
	return err
}

func writeStderr(format string, args ...any) error {
	_, err := fmt.Fprintf(stderr, format, args...)
	return err
}
