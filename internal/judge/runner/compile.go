package runner

import (
	"context"
	"os/exec"
	"time"

	appErr "rebornoj/pkg/errors"
)

const defaultCompileTimeout = 30 * time.Second

// Compile runs a compiler command and returns its combined output. A
// non-zero compiler exit maps to a CompilationError carrying the
// diagnostics; anything else that goes wrong is a system error.
func Compile(ctx context.Context, argv []string, workDir string, timeout time.Duration) (string, error) {
	if len(argv) == 0 {
		return "", appErr.New(appErr.JudgeSystemError).WithMessage("empty compile command")
	}
	if timeout <= 0 {
		timeout = defaultCompileTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workDir
	out, err := cmd.CombinedOutput()
	output := string(out)
	if err == nil {
		return output, nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return output, appErr.New(appErr.CompilationError).WithMessage("compilation timed out")
	}
	if _, ok := err.(*exec.ExitError); ok {
		return output, appErr.New(appErr.CompilationError).WithDetail("output", truncate(output, maxCapturedStderr))
	}
	return output, appErr.Wrapf(err, appErr.JudgeSystemError, "run compiler failed")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
