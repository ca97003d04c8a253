package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mptx/internal/launcher"
	"mptx/internal/logging"
	"mptx/internal/supervisor"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int
	var open bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI headless and supervise it until interrupted",
		Long: "serve starts the Streamlit web UI on a loopback port, waits until it answers,\n" +
			"and stops the whole process group on Ctrl+C. Output is captured to\n" +
			"<log_dir>/webui-<run>.log, with webui.log pointing at the latest run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.newSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			plan, err := s.launcher.Plan(launcher.TargetWebUI)
			if err != nil {
				return err
			}

			cfg := s.cfg
			logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("webui-%s.log", s.runID))
			if err := logging.LinkCurrent(cfg.Paths.LogDir, "webui.log", logPath); err != nil {
				s.logger.Debug("webui.log pointer not updated", logging.Error(err))
			}

			startup := time.Duration(cfg.Launch.StartupTimeout) * time.Second
			if timeout > 0 {
				startup = timeout
			}
			openBrowser := cfg.Launch.OpenBrowser
			if cmd.Flags().Changed("open") {
				openBrowser = open
			}

			opts := supervisor.Options{
				Plan:           plan,
				Host:           cfg.Launch.Host,
				Port:           port,
				StartupTimeout: startup,
				LockPath:       cfg.ServeLockPath(),
				LogPath:        logPath,
				OpenBrowser:    openBrowser,
				Output:         cmd.ErrOrStderr(),
				Logger:         s.logger,
				RunID:          s.runID,
				Ready: func(url string) {
					fmt.Fprintf(cmd.OutOrStdout(), "Web UI ready at %s (Ctrl+C to stop)\n", url)
				},
			}
			if s.journal != nil {
				opts.Journal = s.journal
			}

			signalCtx, cancel := signal.NotifyContext(contextOrBackground(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			code, err := supervisor.Run(signalCtx, opts)
			if err != nil {
				return err
			}
			if code != 0 {
				return &launcher.ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to serve on (0 picks a free port)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the system browser once the server is ready")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Startup timeout (defaults to launch.startup_timeout)")
	return cmd
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
