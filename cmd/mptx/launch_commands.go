package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mptx/internal/launcher"
)

// newLaunchCommands builds one command per entry point. They take no
// arguments or flags of their own.
func newLaunchCommands(ctx *commandContext) []*cobra.Command {
	targets := launcher.Targets()
	cmds := make([]*cobra.Command, 0, len(targets))
	for _, target := range targets {
		cmds = append(cmds, &cobra.Command{
			Use:   string(target),
			Short: fmt.Sprintf("Start the %s", target.Description()),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := ctx.newSession(cmd, true)
				if err != nil {
					return err
				}
				defer s.Close()
				return s.launcher.Launch(cmd.Context(), target)
			},
		})
	}
	return cmds
}
