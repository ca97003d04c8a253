package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mptx/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Writer receives terminal output. Defaults to stderr so the launched
	// application owns stdout.
	Writer io.Writer
	// FilePath, when set, receives a JSON copy of every record.
	FilePath    string
	RunID       string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var terminal slog.Handler
	switch format {
	case "json":
		terminal = newJSONHandler(writer, levelVar, addSource)
	case "console":
		terminal = newPrettyHandler(writer, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	var file slog.Handler
	if path := strings.TrimSpace(opts.FilePath); path != "" {
		if err := ensureLogDir(path); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		file = newJSONHandler(f, fileLevel(level), addSource)
	}

	handler := newFanoutHandler(sink{name: "terminal", handler: terminal}, sink{name: "file", handler: file})
	if id := strings.TrimSpace(opts.RunID); id != "" {
		handler = newRunIDHandler(handler, id)
	}
	return slog.New(handler), nil
}

// NewFromConfig creates a logger using application config defaults. The JSON
// copy lands in <log_dir>/mptx-<runID>.log.
func NewFromConfig(cfg *config.Config, runID string, w io.Writer) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", Writer: w, RunID: runID})
	}
	opts := Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: w,
		RunID:  runID,
	}
	if cfg.Paths.LogDir != "" && runID != "" {
		opts.FilePath = RunLogPath(cfg.Paths.LogDir, runID)
	}
	return New(opts)
}

// RunLogPath returns the JSON log file for a launch.
func RunLogPath(logDir, runID string) string {
	return filepath.Join(logDir, fmt.Sprintf("mptx-%s.log", runID))
}

// fileLevel keeps info records in the run log even when the terminal is
// quieted to warn or error.
func fileLevel(terminal slog.Level) slog.Level {
	return min(terminal, slog.LevelInfo)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
