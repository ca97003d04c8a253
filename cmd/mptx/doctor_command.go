package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mptx/internal/deps"
	"mptx/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the project checkout and Python runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.quietSession(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			prepared, err := s.launcher.Environment()
			if err != nil {
				return err
			}
			snap := preflight.Snapshot{
				Root:       prepared.Root,
				Env:        prepared.Env,
				Report:     prepared.Report,
				VirtualEnv: prepared.VirtualEnv,
			}
			results := preflight.RunAll(cmd.Context(), s.cfg, snap)
			statuses := preflight.CheckSystemDeps(s.cfg, snap)

			colorize := shouldColorize(cmd.OutOrStdout())
			out := cmd.OutOrStdout()
			writeLines(out, renderSectionHeader("Project", colorize))
			writeLines(out, checkLines(results, colorize))
			fmt.Fprintln(out)
			writeLines(out, renderSectionHeader("Dependencies", colorize))
			writeLines(out, dependencyLines(statuses, colorize))

			if problems := countProblems(results, statuses); problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			return nil
		},
	}
}

func checkLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		switch {
		case r.Passed:
		case r.Optional:
			kind = statusWarn
		default:
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func countProblems(results []preflight.Result, statuses []deps.Status) int {
	n := 0
	for _, r := range results {
		if !r.Passed && !r.Optional {
			n++
		}
	}
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			n++
		}
	}
	return n
}
