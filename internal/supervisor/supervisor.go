package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"mptx/internal/journal"
	"mptx/internal/launcher"
	"mptx/internal/logging"
	"mptx/internal/logs"
)

var (
	// ErrAlreadyRunning means another supervisor holds the project lock.
	ErrAlreadyRunning = errors.New("another mptx serve instance is already running")
	// ErrStartupTimeout means the server never answered within the timeout.
	ErrStartupTimeout = errors.New("server did not become ready before the startup timeout")
	// ErrExitedEarly means the child stopped before it started serving.
	ErrExitedEarly = errors.New("server exited before becoming ready")
)

const (
	defaultPollInterval   = 300 * time.Millisecond
	defaultRequestTimeout = 2 * time.Second
	defaultKillGrace      = 5 * time.Second
	defaultStartupTimeout = 30 * time.Second
	outputTailLines       = 80
)

// Recorder persists supervised launches. *journal.Journal satisfies it.
type Recorder interface {
	Record(ctx context.Context, launch *journal.Launch) error
	UpdateProcess(ctx context.Context, runID string, pid int, url string) error
	Finish(ctx context.Context, runID string, exitCode int) error
}

// Options configures a supervised run.
type Options struct {
	// Plan is the prepared web UI launch. Serving flags are appended.
	Plan launcher.Plan
	Host string
	// Port 0 picks a free port.
	Port           int
	StartupTimeout time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration
	KillGrace      time.Duration
	LockPath       string
	// LogPath receives the child's combined stdout and stderr.
	LogPath     string
	OpenBrowser bool
	Opener      func(url string) error
	// Output receives the captured log when startup fails. Defaults to stderr.
	Output  io.Writer
	Logger  *slog.Logger
	Journal Recorder
	RunID   string
	// Ready is called once with the served URL.
	Ready func(url string)
}

func (o *Options) applyDefaults() {
	if o.Host == "" {
		o.Host = "127.0.0.1"
	}
	if o.StartupTimeout <= 0 {
		o.StartupTimeout = defaultStartupTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	if o.KillGrace <= 0 {
		o.KillGrace = defaultKillGrace
	}
	if o.Output == nil {
		o.Output = os.Stderr
	}
	if o.Opener == nil {
		o.Opener = OpenBrowser
	}
}

// ServeArgs are the Streamlit flags for a headless server on host:port.
func ServeArgs(host string, port int) []string {
	return []string{
		"--server.port=" + strconv.Itoa(port),
		"--server.address=" + host,
		"--server.headless=true",
	}
}

// FreePort asks the kernel for an unused TCP port on host.
func FreePort(host string) (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// Run supervises the web UI until ctx ends or the child exits. It returns
// the child's exit code; a shutdown initiated through ctx reports 0.
func Run(ctx context.Context, opts Options) (int, error) {
	opts.applyDefaults()
	logger := logging.NewComponentLogger(opts.Logger, "supervisor")

	if opts.LockPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LockPath), 0o755); err != nil {
			return 1, fmt.Errorf("create lock directory: %w", err)
		}
		lock := flock.New(opts.LockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return 1, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return 1, ErrAlreadyRunning
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Warn("failed to release serve lock", logging.Error(err))
			}
		}()
	}

	port := opts.Port
	if port == 0 {
		free, err := FreePort(opts.Host)
		if err != nil {
			return 1, err
		}
		port = free
	}
	url := "http://" + net.JoinHostPort(opts.Host, strconv.Itoa(port))

	logFile, err := openLog(opts.LogPath)
	if err != nil {
		return 1, err
	}
	defer logFile.Close()

	plan := opts.Plan
	args := append(append([]string(nil), plan.Args...), ServeArgs(opts.Host, port)...)
	cmd := exec.Command(plan.Path, args...)
	cmd.Dir = plan.Dir
	cmd.Env = plan.Env
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("start %s: %w", plan.Path, err)
	}
	pid := cmd.Process.Pid
	logger.Info("server starting",
		logging.String(logging.FieldURL, url),
		logging.Int(logging.FieldPID, pid),
		logging.String("log", logFile.Name()),
		logging.String(logging.FieldEventType, "serve_start"),
	)
	s := &session{opts: opts, logger: logger, url: url}
	s.record(ctx, plan, pid)

	exited := make(chan struct{})
	var waitErr error
	var stopping bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		waitErr = cmd.Wait()
		close(exited)
		return nil
	})
	g.Go(func() error {
		if err := s.waitReady(gctx, exited); err != nil {
			return err
		}
		s.announce()
		return nil
	})
	g.Go(func() error {
		select {
		case <-exited:
			return nil
		case <-gctx.Done():
			stopping = true
			logger.Info("stopping server", logging.Int(logging.FieldPID, pid), logging.String(logging.FieldEventType, "serve_stop"))
			terminate(cmd, opts.KillGrace, exited)
			return nil
		}
	})

	runErr := g.Wait()
	code := exitCode(waitErr)
	shutdown := stopping && ctx.Err() != nil && runErr == nil
	if shutdown || errors.Is(runErr, context.Canceled) {
		code = 0
		runErr = nil
	}

	if runErr != nil {
		if code == 0 {
			code = 1
		}
		logging.WarnWithContext(logger, "server failed to start", "serve_startup_failed",
			logging.Error(runErr),
			logging.String(logging.FieldURL, url),
			logging.String(logging.FieldErrorHint, "check the captured output below or in "+logFile.Name()),
			logging.String(logging.FieldImpact, "web UI unavailable"),
		)
		dumpTail(opts.Output, logFile.Name())
	} else {
		logger.Info("server stopped", logging.Int("exit_code", code), logging.String(logging.FieldEventType, "serve_exit"))
	}
	s.finish(code)
	return code, runErr
}

type session struct {
	opts   Options
	logger *slog.Logger
	url    string
}

func (s *session) waitReady(ctx context.Context, exited <-chan struct{}) error {
	client := &http.Client{Timeout: s.opts.RequestTimeout}
	deadline := time.NewTimer(s.opts.StartupTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		if probe(ctx, client, s.url) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			return ErrExitedEarly
		case <-deadline.C:
			return fmt.Errorf("%w (%s)", ErrStartupTimeout, s.opts.StartupTimeout)
		case <-ticker.C:
		}
	}
}

func probe(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < http.StatusBadRequest
}

func (s *session) announce() {
	s.logger.Info("server ready", logging.String(logging.FieldURL, s.url), logging.String(logging.FieldEventType, "serve_ready"))
	if s.opts.Journal != nil && s.opts.RunID != "" {
		if err := s.opts.Journal.UpdateProcess(context.Background(), s.opts.RunID, 0, s.url); err != nil {
			s.logger.Debug("journal url update failed", logging.Error(err))
		}
	}
	if s.opts.Ready != nil {
		s.opts.Ready(s.url)
	}
	if s.opts.OpenBrowser {
		if err := s.opts.Opener(s.url); err != nil {
			logging.WarnWithContext(s.logger, "could not open browser", "browser_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "open "+s.url+" manually"),
			)
		}
	}
}

func (s *session) record(ctx context.Context, plan launcher.Plan, pid int) {
	if s.opts.Journal == nil || s.opts.RunID == "" {
		return
	}
	launch := &journal.Launch{
		RunID:   s.opts.RunID,
		Target:  string(plan.Target),
		Root:    plan.Dir,
		Command: plan.CommandLine(),
		Mode:    journal.ModeSupervised,
		PID:     pid,
	}
	if err := s.opts.Journal.Record(ctx, launch); err != nil {
		logging.WarnWithContext(s.logger, "launch history not recorded", "journal_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history omits this launch"),
		)
	}
}

func (s *session) finish(code int) {
	if s.opts.Journal == nil || s.opts.RunID == "" {
		return
	}
	if err := s.opts.Journal.Finish(context.Background(), s.opts.RunID, code); err != nil {
		s.logger.Debug("journal finish failed", logging.Error(err))
	}
}

func terminate(cmd *exec.Cmd, grace time.Duration, exited <-chan struct{}) {
	signalGroup(cmd, false)
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
		signalGroup(cmd, true)
		<-exited
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
	}
	return 1
}

func openLog(path string) (*os.File, error) {
	if path == "" {
		f, err := os.CreateTemp("", "mptx-serve-*.log")
		if err != nil {
			return nil, fmt.Errorf("create server log: %w", err)
		}
		return f, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open server log %s: %w", path, err)
	}
	return f, nil
}

func dumpTail(w io.Writer, path string) {
	lines, _, err := logs.Last(path, outputTailLines)
	if err != nil || len(lines) == 0 {
		return
	}
	fmt.Fprintln(w, "--- server output ---")
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "--- end server output ---")
}
