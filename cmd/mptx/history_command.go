package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mptx/internal/journal"
)

type launchView struct {
	RunID      string     `json:"run_id"`
	Target     string     `json:"target"`
	Mode       string     `json:"mode"`
	Root       string     `json:"root"`
	Command    string     `json:"command"`
	PID        int        `json:"pid,omitempty"`
	URL        string     `json:"url,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent launches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return errors.New("launch history is disabled (journal.enabled = false)")
			}
			j, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return err
			}
			defer j.Close()

			if id := strings.TrimSpace(runID); id != "" {
				launch, err := j.Get(cmd.Context(), id)
				if errors.Is(err, journal.ErrNotFound) {
					return fmt.Errorf("no launch recorded with run id %q", id)
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, toLaunchView(*launch))
				}
				fmt.Fprint(cmd.OutOrStdout(), renderLaunchDetail(*launch, shouldColorize(cmd.OutOrStdout())))
				return nil
			}

			launches, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				views := make([]launchView, 0, len(launches))
				for _, l := range launches {
					views = append(views, toLaunchView(l))
				}
				return writeJSON(cmd, views)
			}
			if len(launches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No launches recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(launches))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of launches to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&runID, "run", "", "Show one launch by run id")
	return cmd
}

func toLaunchView(l journal.Launch) launchView {
	return launchView{
		RunID: l.RunID, Target: l.Target, Mode: string(l.Mode), Root: l.Root,
		Command: l.Command, PID: l.PID, URL: l.URL,
		StartedAt: l.StartedAt, FinishedAt: l.FinishedAt, ExitCode: l.ExitCode,
	}
}

type detailRow struct {
	label string
	kind  statusKind
	value string
}

func renderLaunchDetail(l journal.Launch, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("Launch "+shortRunID(l.RunID), colorize) {
		b.WriteString(line + "\n")
	}
	kind := statusOK
	switch {
	case l.ExitCode != nil && *l.ExitCode != 0:
		kind = statusError
	case l.ExitCode == nil:
		kind = statusInfo
	}
	rows := []detailRow{
		{"Run ID", statusInfo, l.RunID},
		{"Target", statusInfo, l.Target},
		{"Mode", statusInfo, string(l.Mode)},
		{"Root", statusInfo, l.Root},
		{"Command", statusInfo, l.Command},
		{"Started", statusInfo, l.StartedAt.Local().Format(time.RFC3339)},
		{"Result", kind, launchOutcome(l)},
	}
	if l.URL != "" {
		rows = append(rows, detailRow{"URL", statusInfo, l.URL})
	}
	for _, r := range rows {
		b.WriteString(renderStatusLine(r.label, r.kind, r.value, colorize) + "\n")
	}
	return b.String()
}

func renderHistory(launches []journal.Launch) string {
	caser := cases.Title(language.Und)
	rows := make([][]string, 0, len(launches))
	for _, l := range launches {
		pid := ""
		if l.PID > 0 {
			pid = strconv.Itoa(l.PID)
		}
		rows = append(rows, []string{
			shortRunID(l.RunID),
			caser.String(l.Target),
			caser.String(string(l.Mode)),
			l.StartedAt.Local().Format("2006-01-02 15:04:05"),
			pid,
			launchOutcome(l),
		})
	}
	return renderTable(
		[]string{"Run", "Target", "Mode", "Started", "PID", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func launchOutcome(l journal.Launch) string {
	switch {
	case l.ExitCode != nil:
		return fmt.Sprintf("exit %d", *l.ExitCode)
	case l.Mode == journal.ModeExec:
		return "handed off"
	default:
		return "running"
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
