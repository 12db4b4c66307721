package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/glintshell/glint/internal/spec"
)

// ExecRunner returns the default command execution capability, backed by
// os/exec. A zero timeout runs unbounded; a timed-out command reports the
// context error so the generator contributes nothing.
func ExecRunner() spec.RunCommand {
	return func(ctx context.Context, argv []string, cwd string, timeout time.Duration) (spec.CommandResult, error) {
		if len(argv) == 0 {
			return spec.CommandResult{}, fmt.Errorf("empty argv")
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Dir = cwd

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()

		result := spec.CommandResult{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}

		var exitErr *exec.ExitError
		switch {
		case err == nil:
		case errors.As(err, &exitErr):
			// A nonzero exit is a result, not a transport failure.
			result.ExitCode = exitErr.ExitCode()
		default:
			return result, fmt.Errorf("run %s: %w", argv[0], err)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, nil
	}
}
