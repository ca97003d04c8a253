package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mptx/internal/config"
	"mptx/internal/journal"
	"mptx/internal/launcher"
	"mptx/internal/logging"
)

// Test seams.
var (
	launchExec   launcher.ExecFunc
	environSnap  func() []string
	executableFn func() (string, error)
)

type commandContext struct {
	configFlag   *string
	rootFlag     *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, rootFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		rootFlag:     rootFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if level := c.flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func newRunID() string {
	return uuid.NewString()
}

// session bundles what a launching command needs for one invocation.
type session struct {
	cfg      *config.Config
	runID    string
	logger   *slog.Logger
	journal  *journal.Journal
	launcher *launcher.Launcher
}

func (r *session) Close() {
	if r.journal != nil {
		_ = r.journal.Close()
	}
}

// newSession builds a logger, opens the journal, and prepares a launcher.
// persistLog controls whether a JSON copy of the log lands in log_dir.
func (c *commandContext) newSession(cmd *cobra.Command, persistLog bool) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	runID := newRunID()

	logRunID := ""
	if persistLog {
		logRunID = runID
	}
	logger, err := logging.NewFromConfig(cfg, logRunID, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if persistLog {
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
			logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "mptx-*.log"},
			logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "webui-*.log"},
		)
	}

	rt := &session{cfg: cfg, runID: runID, logger: logger}
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.JournalPath())
		if err != nil {
			logging.WarnWithContext(logger, "launch history unavailable", "journal_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on "+cfg.Paths.StateDir),
				logging.String(logging.FieldImpact, "this launch is not recorded"),
			)
		} else {
			rt.journal = j
			if persistLog {
				pruneJournal(cmd, logger, j, cfg.Logging.RetentionDays)
			}
		}
	}

	l := &launcher.Launcher{
		Config:     cfg,
		Root:       c.flagValue(c.rootFlag),
		RunID:      runID,
		Logger:     logger,
		Environ:    environSnap,
		Executable: executableFn,
		Exec:       launchExec,
	}
	if rt.journal != nil {
		l.Journal = rt.journal
	}
	rt.launcher = l
	return rt, nil
}

// quietSession is newSession for inspection commands: no log file, and
// configurator warnings go to w only at warn level and above.
func (c *commandContext) quietSession(cmd *cobra.Command, w io.Writer) (*session, error) {
	rt, err := c.newSession(cmd, false)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: "warn", Format: rt.cfg.Logging.Format, Writer: w})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.logger = logger
	rt.launcher.Logger = logger
	return rt, nil
}

// pruneJournal drops closed launches older than the log retention window so
// history and the run logs it points at age out together.
func pruneJournal(cmd *cobra.Command, logger *slog.Logger, j *journal.Journal, days int) {
	if days <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	removed, err := j.Prune(contextOrBackground(cmd), cutoff)
	if err != nil {
		logger.Debug("launch history prune failed", logging.Error(err))
		return
	}
	if removed > 0 {
		logger.Debug("launch history pruned", logging.Int("removed", int(removed)))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
