//go:build unix

package launcher

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"mptx/internal/journal"
)

const transferMode = journal.ModeExec

// transfer replaces the mptx process with the interpreter.
func transfer(_ context.Context, plan Plan) error {
	if err := os.Chdir(plan.Dir); err != nil {
		return fmt.Errorf("enter project root: %w", err)
	}
	if err := unix.Exec(plan.Path, plan.Argv(), plan.Env); err != nil {
		return fmt.Errorf("exec %s: %w", plan.Path, err)
	}
	return nil
}
