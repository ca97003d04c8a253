package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"mptx/internal/launcher"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if code, ok := launcher.ExitCode(err); ok {
			os.Exit(code)
		}
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "mptx:", err)
		}
		os.Exit(1)
	}
}
