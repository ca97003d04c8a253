package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mptx/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show captured web UI server output",
		Long: "logs prints the output of the latest serve run (webui.log in log_dir).\n" +
			"Use --run to read a specific run and --follow to keep streaming.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "webui.log")
			if id := strings.TrimSpace(runID); id != "" {
				if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
					return fmt.Errorf("invalid run id %q", id)
				}
				path = filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("webui-%s.log", id))
			}
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !follow {
				return fmt.Errorf("no server output at %s (run `mptx serve` first)", path)
			}

			out := cmd.OutOrStdout()
			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			signalCtx, cancel := signal.NotifyContext(contextOrBackground(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return logs.Follow(signalCtx, path, offset, 250*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new output until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Show output of a specific run id instead of the latest")
	return cmd
}
