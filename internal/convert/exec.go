package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/blogbuild/blogbuild/internal/logfields"
)

// ExitError describes a converter process that ran but exited non-zero.
type ExitError struct {
	Binary string
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with status %d", e.Binary, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Binary, e.Code, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Is reports ExitError values as ErrExecutionFailed.
func (e *ExitError) Is(target error) bool { return target == ErrExecutionFailed }

// runTool starts binary with args, feeds stdin, and returns everything the
// process wrote to stdout once it has exited. The process never outlives the
// call: cancellation of ctx kills it.
func runTool(ctx context.Context, binary string, args []string, stdin io.Reader) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, binary, err)
	}

	// #nosec G204 -- binary and arguments come from the site configuration
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Invoking converter", logfields.Backend(binary), slog.Any("args", args))
	err = cmd.Run()

	errStr := strings.TrimSpace(stderr.String())
	if errStr != "" {
		slog.Debug("converter stderr", logfields.Backend(binary), slog.String("error_output", errStr))
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s: %w", binary, ctxErr)
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return "", &ExitError{Binary: binary, Code: code, Stderr: errStr, Err: err}
	}

	return strings.ToValidUTF8(stdout.String(), "�"), nil
}
