package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// RunChild starts plan as a child with inherited stdio and waits for it.
// A non-zero exit is reported as *ExitError.
func RunChild(ctx context.Context, plan Plan) error {
	cmd := exec.CommandContext(ctx, plan.Path, plan.Args...)
	cmd.Dir = plan.Dir
	cmd.Env = plan.Env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("run %s: %w", plan.Path, err)
	}
	return nil
}
