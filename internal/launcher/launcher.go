package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"mptx/internal/config"
	"mptx/internal/deps"
	"mptx/internal/envconf"
	"mptx/internal/journal"
	"mptx/internal/logging"
)

// Recorder stores launch history. *journal.Journal satisfies it.
type Recorder interface {
	Record(ctx context.Context, launch *journal.Launch) error
	Finish(ctx context.Context, runID string, exitCode int) error
}

// ExecFunc hands control to a prepared plan. It returns only on failure
// or, for non-exec transfers, after the child exits.
type ExecFunc func(ctx context.Context, plan Plan) error

// Launcher prepares and starts application entry points.
type Launcher struct {
	Config *config.Config
	// Root overrides the configured and executable-derived project root.
	Root    string
	RunID   string
	Logger  *slog.Logger
	Journal Recorder
	// GOOS selects platform conventions. Defaults to runtime.GOOS.
	GOOS string
	// Environ supplies the starting environment. Defaults to os.Environ.
	Environ func() []string
	// Executable locates the running binary. Defaults to os.Executable.
	Executable func() (string, error)
	// Exec transfers control. Defaults to execve on unix.
	Exec ExecFunc
}

// Environment is the prepared process environment for the application.
type Environment struct {
	Root       string
	Env        *envconf.MapEnv
	Report     envconf.Report
	DotEnv     []envconf.Assignment
	VirtualEnv string
}

// Plan is everything needed to start one target.
type Plan struct {
	Target     Target
	Dir        string
	Path       string
	Args       []string
	Env        []string
	VirtualEnv string
	Report     envconf.Report
}

// Argv returns the full argument vector including the program.
func (p Plan) Argv() []string {
	return append([]string{p.Path}, p.Args...)
}

// CommandLine renders the plan for logs and the journal.
func (p Plan) CommandLine() string {
	return strings.Join(p.Argv(), " ")
}

// ExitError carries a child exit status that mptx should propagate.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("application exited with status %d", e.Code)
}

// ExitCode extracts the propagated exit status from err, if any.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

func (l *Launcher) goos() string {
	if l.GOOS != "" {
		return l.GOOS
	}
	return runtime.GOOS
}

func (l *Launcher) cfg() *config.Config {
	if l.Config != nil {
		return l.Config
	}
	def := config.Default()
	l.Config = &def
	return l.Config
}

func (l *Launcher) logger() *slog.Logger {
	return logging.NewComponentLogger(l.Logger, "launcher")
}

// ResolveRoot applies the launcher's root precedence.
func (l *Launcher) ResolveRoot() (string, error) {
	return ResolveRoot(l.Root, l.cfg().Paths.ProjectRoot, l.Executable)
}

// Environment builds the child environment without starting anything.
// Precedence is caller, then .env, then configured defaults.
func (l *Launcher) Environment() (*Environment, error) {
	cfg := l.cfg()
	goos := l.goos()

	root, err := l.ResolveRoot()
	if err != nil {
		return nil, err
	}

	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}
	env := envconf.NewMapEnv(environ(), goos == "windows")
	out := &Environment{Root: root, Env: env}

	if cfg.Runtime.DotEnv {
		path := filepath.Join(root, ".env")
		applied, err := envconf.ApplyDotEnv(env, path)
		if err != nil {
			return nil, err
		}
		if len(applied) > 0 {
			l.logger().Debug("project .env applied", logging.String("path", path), logging.Int("count", len(applied)))
		}
		out.DotEnv = applied
	}

	opts := envconf.OptionsFromConfig(cfg, l.Logger)
	opts.GOOS = goos
	report, err := envconf.Configure(env, opts)
	if err != nil {
		return nil, err
	}
	report.MarkSource(out.DotEnv)
	out.Report = report

	if venv, ok := DetectVenv(root, cfg.Runtime.VenvDirs, goos); ok {
		if err := ActivateVenv(env, venv, goos); err != nil {
			return nil, fmt.Errorf("activate virtualenv %s: %w", venv, err)
		}
		out.VirtualEnv = venv
		l.logger().Debug("virtualenv activated", logging.String("path", venv))
	}

	if _, err := envconf.PrependPath(env, "PYTHONPATH", root, envconf.ListSeparator(goos)); err != nil {
		return nil, fmt.Errorf("set PYTHONPATH: %w", err)
	}
	return out, nil
}

// Plan prepares the environment and argument vector for target.
func (l *Launcher) Plan(target Target) (Plan, error) {
	if _, err := ParseTarget(string(target)); err != nil {
		return Plan{}, err
	}
	environment, err := l.Environment()
	if err != nil {
		return Plan{}, err
	}
	return l.planFor(target, environment)
}

func (l *Launcher) planFor(target Target, environment *Environment) (Plan, error) {
	cfg := l.cfg()
	goos := l.goos()

	script, args := entryPoint(cfg, target)
	if _, err := os.Stat(filepath.Join(environment.Root, filepath.FromSlash(script))); err != nil {
		return Plan{}, fmt.Errorf("%s entry point %s not found under %s: %w", target, script, environment.Root, err)
	}

	searchPath, _ := environment.Env.LookupEnv("PATH")
	python, err := deps.LookPathIn(cfg.Runtime.Python, searchPath, goos)
	if err != nil {
		return Plan{}, fmt.Errorf("python interpreter %q: %w", cfg.Runtime.Python, err)
	}

	return Plan{
		Target:     target,
		Dir:        environment.Root,
		Path:       python,
		Args:       args,
		Env:        environment.Env.Environ(),
		VirtualEnv: environment.VirtualEnv,
		Report:     environment.Report,
	}, nil
}

func entryPoint(cfg *config.Config, target Target) (string, []string) {
	switch target {
	case TargetWebUI:
		script := cfg.Launch.WebUIScript
		return script, []string{
			"-m", "streamlit", "run", script,
			"--browser.serverAddress=" + cfg.Launch.Host,
			"--server.enableCORS=True",
			"--browser.gatherUsageStats=False",
		}
	case TargetAPI:
		return cfg.Launch.APIScript, []string{cfg.Launch.APIScript}
	default:
		return cfg.Launch.DesktopScript, []string{cfg.Launch.DesktopScript}
	}
}

// Launch prepares target and transfers control to it.
func (l *Launcher) Launch(ctx context.Context, target Target) error {
	plan, err := l.Plan(target)
	if err != nil {
		return err
	}
	logger := l.logger().With(logging.String(logging.FieldTarget, string(target)))
	logger.Info("launching application",
		logging.String("python", plan.Path),
		logging.String("root", plan.Dir),
		logging.String("virtualenv", plan.VirtualEnv),
		logging.Strings("args", plan.Args),
		logging.String(logging.FieldEventType, "launch_start"),
	)

	run, mode := l.Exec, journal.ModeChild
	if run == nil {
		run, mode = transfer, transferMode
	}
	l.record(ctx, logger, plan, mode)

	err = run(ctx, plan)
	if mode != journal.ModeExec || err != nil {
		code := 0
		if c, ok := ExitCode(err); ok {
			code = c
		} else if err != nil {
			code = -1
		}
		l.finish(ctx, logger, code)
	}
	return err
}

func (l *Launcher) record(ctx context.Context, logger *slog.Logger, plan Plan, mode journal.Mode) {
	if l.Journal == nil || l.RunID == "" {
		return
	}
	launch := &journal.Launch{
		RunID:   l.RunID,
		Target:  string(plan.Target),
		Root:    plan.Dir,
		Command: plan.CommandLine(),
		Mode:    mode,
		PID:     os.Getpid(),
	}
	if err := l.Journal.Record(ctx, launch); err != nil {
		logging.WarnWithContext(logger, "launch history not recorded", "journal_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history omits this launch"),
		)
	}
}

func (l *Launcher) finish(ctx context.Context, logger *slog.Logger, code int) {
	if l.Journal == nil || l.RunID == "" {
		return
	}
	if err := l.Journal.Finish(ctx, l.RunID, code); err != nil {
		logger.Debug("launch exit not recorded", logging.Error(err))
	}
}
