package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mptx/internal/config"
	"mptx/internal/logging"
)

func TestNewFromConfigWritesRunFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	var terminal bytes.Buffer
	logger, err := logging.NewFromConfig(&cfg, "run-123", &terminal)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "envconf").Info("cuDNN library path added", logging.String("path", "/opt/cudnn"))

	if !strings.Contains(terminal.String(), "envconf: cuDNN library path added path=/opt/cudnn") {
		t.Fatalf("unexpected terminal output: %q", terminal.String())
	}
	if strings.Contains(terminal.String(), "run-123") {
		t.Fatalf("run id should be hidden on the terminal: %q", terminal.String())
	}

	data, err := os.ReadFile(logging.RunLogPath(cfg.Paths.LogDir, "run-123"))
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("decode json record %q: %v", data, err)
	}
	if record["run_id"] != "run-123" {
		t.Fatalf("expected run_id in file record, got %v", record)
	}
	if record["component"] != "envconf" {
		t.Fatalf("expected component in file record, got %v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")
	if !strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("no active environment", logging.String("hint", "activate conda env"), logging.Duration("took", 1500*time.Microsecond))
	out := buf.String()
	if !strings.Contains(out, `WARN no active environment hint="activate conda env" took=2ms`) {
		t.Fatalf("unexpected console line: %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestJSONFormatOnTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf, RunID: "abc"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.With(logging.String(logging.FieldTarget, "webui")).Info("launching")
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["target"] != "webui" || record["run_id"] != "abc" || record["msg"] != "launching" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "cuDNN directory not found", "cudnn_missing",
		logging.String(logging.FieldImpact, "GPU kernels may fail to load"))

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["event_type"] != "cudnn_missing" {
		t.Fatalf("expected event_type, got %v", record)
	}
	if record["error_hint"] == nil {
		t.Fatalf("expected default error_hint, got %v", record)
	}
	if record["impact"] != "GPU kernels may fail to load" {
		t.Fatalf("caller impact should win, got %v", record["impact"])
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "mptx-old.log")
	fresh := filepath.Join(dir, "mptx-new.log")
	keep := filepath.Join(dir, "mptx-current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, keep, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, keep, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatal(err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 5, logging.RetentionTarget{Dir: dir, Pattern: "mptx-*.log", Exclude: []string{keep}})
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{fresh, keep, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}

	if got := logging.CleanupOldLogs(nil, 0, logging.RetentionTarget{Dir: dir, Pattern: "*"}); got != 0 {
		t.Fatalf("retention 0 must disable pruning, removed %d", got)
	}
}

func TestLinkCurrentReplacesPointer(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "webui-a.log")
	second := filepath.Join(dir, "webui-b.log")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for _, target := range []string{first, second} {
		if err := logging.LinkCurrent(dir, "webui.log", target); err != nil {
			t.Fatalf("LinkCurrent(%s): %v", target, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "webui.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "webui-b.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestLinkCurrentBeforeTargetExists(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "webui-c.log")
	if err := logging.LinkCurrent(dir, "webui.log", target); err != nil {
		t.Fatalf("LinkCurrent: %v", err)
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("target not created: %v", err)
	}
	if _, err := f.WriteString("server started\n"); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	data, err := os.ReadFile(filepath.Join(dir, "webui.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "server started\n" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestSecretsAreRedacted(t *testing.T) {
	var console, jsonOut bytes.Buffer
	pretty, err := logging.New(logging.Options{Writer: &console})
	if err != nil {
		t.Fatal(err)
	}
	structured, err := logging.New(logging.Options{Format: "json", Writer: &jsonOut})
	if err != nil {
		t.Fatal(err)
	}
	for _, logger := range []*slog.Logger{pretty, structured} {
		logger.Info("dotenv applied", logging.String("HF_TOKEN", "hf_abc"), logging.String("path", "/srv/.env"))
	}
	for name, out := range map[string]string{"console": console.String(), "json": jsonOut.String()} {
		if strings.Contains(out, "hf_abc") {
			t.Fatalf("%s output leaked the token: %q", name, out)
		}
		if !strings.Contains(out, "[redacted]") || !strings.Contains(out, "/srv/.env") {
			t.Fatalf("%s output missing fields: %q", name, out)
		}
	}
	if got := logging.Redact("OPENAI_API_KEY", "sk-1"); got != "[redacted]" {
		t.Fatalf("Redact = %q", got)
	}
	if got := logging.Redact("CHATTERBOX_DEVICE", "cuda"); got != "cuda" {
		t.Fatalf("Redact changed a plain value: %q", got)
	}
}

func TestRunFileKeepsInfoWhenTerminalQuiet(t *testing.T) {
	dir := t.TempDir()
	var terminal bytes.Buffer
	path := filepath.Join(dir, "run.log")
	logger, err := logging.New(logging.Options{Level: "warn", Writer: &terminal, FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("launching application")

	if terminal.Len() != 0 {
		t.Fatalf("terminal should stay quiet at warn: %q", terminal.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "launching application") {
		t.Fatalf("run file missing info record: %q", data)
	}
}

func TestConsoleIndentsMultilineMessages(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Warn("import failed\nModuleNotFoundError: streamlit")
	if !strings.Contains(buf.String(), "\n    | ModuleNotFoundError: streamlit") {
		t.Fatalf("expected indented continuation, got %q", buf.String())
	}
}

func TestConsoleFlattensGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logging.NewComponentLogger(logger, "launcher").WithGroup("plan").Info("built", logging.String("python", "python3"))
	if !strings.Contains(buf.String(), "INFO launcher: built plan.python=python3") {
		t.Fatalf("unexpected grouped line: %q", buf.String())
	}
}
