package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mptx/internal/envconf"
	"mptx/internal/logging"
)

type envVarView struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

type envView struct {
	Root          string       `json:"root"`
	VirtualEnv    string       `json:"virtualenv,omitempty"`
	Prefix        string       `json:"prefix,omitempty"`
	CUDNNDir      string       `json:"cudnn_dir,omitempty"`
	SearchPathVar string       `json:"search_path_var"`
	SearchPath    string       `json:"search_path"`
	PythonPath    string       `json:"pythonpath"`
	Variables     []envVarView `json:"variables"`
	Warnings      []string     `json:"warnings,omitempty"`
}

func newEnvCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var reveal bool

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show the environment the application would receive",
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
			view := buildEnvView(prepared.Root, prepared.VirtualEnv, prepared.Report, prepared.Env, reveal)
			if asJSON {
				return writeJSON(cmd, view)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderEnvView(view, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show values of token and key variables")
	return cmd
}

func buildEnvView(root, venv string, report envconf.Report, env envconf.Environ, reveal bool) envView {
	view := envView{
		Root:          root,
		VirtualEnv:    venv,
		Prefix:        report.Prefix,
		CUDNNDir:      report.CUDNNDir,
		SearchPathVar: report.SearchPathVar,
		Warnings:      report.Warnings,
	}
	view.SearchPath, _ = env.LookupEnv(report.SearchPathVar)
	view.PythonPath, _ = env.LookupEnv("PYTHONPATH")
	for _, a := range report.Assignments {
		value := a.Value
		if !reveal {
			value = logging.Redact(a.Name, value)
		}
		view.Variables = append(view.Variables, envVarView{Name: a.Name, Value: value, Source: string(a.Source)})
	}
	return view
}

func renderEnvView(view envView, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("Runtime", colorize) {
		b.WriteString(line + "\n")
	}
	b.WriteString(renderStatusLine("Project root", statusInfo, view.Root, colorize) + "\n")
	if view.VirtualEnv != "" {
		b.WriteString(renderStatusLine("Virtualenv", statusOK, view.VirtualEnv, colorize) + "\n")
	} else {
		b.WriteString(renderStatusLine("Virtualenv", statusInfo, "none", colorize) + "\n")
	}
	if view.Prefix != "" {
		b.WriteString(renderStatusLine("Environment prefix", statusOK, view.Prefix, colorize) + "\n")
	} else {
		b.WriteString(renderStatusLine("Environment prefix", statusWarn, "not set", colorize) + "\n")
	}
	if view.CUDNNDir != "" {
		b.WriteString(renderStatusLine("cuDNN", statusOK, view.CUDNNDir, colorize) + "\n")
	} else {
		b.WriteString(renderStatusLine("cuDNN", statusWarn, "not found", colorize) + "\n")
	}
	b.WriteString(renderStatusLine(view.SearchPathVar, statusInfo, displayValue(view.SearchPath), colorize) + "\n")
	b.WriteString(renderStatusLine("PYTHONPATH", statusInfo, displayValue(view.PythonPath), colorize) + "\n")
	b.WriteString("\n")

	caser := cases.Title(language.Und)
	rows := make([][]string, 0, len(view.Variables))
	for _, v := range view.Variables {
		rows = append(rows, []string{v.Name, displayValue(v.Value), caser.String(v.Source)})
	}
	b.WriteString(renderTable([]string{"Variable", "Value", "Source"}, rows, nil))
	b.WriteString("\n")
	return b.String()
}

func displayValue(value string) string {
	if value == "" {
		return "(empty)"
	}
	return value
}
