// Package runner executes untrusted programs under time and memory
// limits and classifies the outcome of each test case run.
package runner

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"rebornoj/internal/judge/compare"
	"rebornoj/internal/judge/model"
	"rebornoj/internal/judge/testcase"
	appErr "rebornoj/pkg/errors"
)

const (
	// maxCapturedOutput bounds how much program output is kept in
	// memory; anything past it is discarded, which also defuses
	// infinite-print submissions.
	maxCapturedOutput = 16 << 20
	maxCapturedStderr = 64 << 10

	// killGrace is how long after SIGKILL we wait for Wait to return
	// before giving up and reporting a system error.
	killGrace = 2 * time.Second
)

// Spec describes one sandboxed execution.
type Spec struct {
	// Cmd is the argv to execute. Cmd[0] is the binary path.
	Cmd     []string
	WorkDir string

	TimeLimitMs      int64
	MemoryLimitBytes int64
}

// Runner executes test cases against a compiled submission.
type Runner struct{}

func New() *Runner { return &Runner{} }

// RunCase executes spec with the test case input on stdin and compares
// the program output against the expected output. The returned error is
// non-nil only for harness faults; program misbehavior is expressed
// through the verdict.
func (r *Runner) RunCase(ctx context.Context, spec Spec, tc testcase.Case) (model.ExecutionResult, error) {
	result := model.ExecutionResult{CaseID: tc.ID}
	if len(spec.Cmd) == 0 {
		return result, appErr.New(appErr.JudgeSystemError).WithMessage("empty command")
	}

	input, err := os.Open(tc.InputPath)
	if err != nil {
		return result, appErr.Wrapf(err, appErr.TestCaseInvalid, "open input failed")
	}
	defer input.Close()

	expected, err := os.ReadFile(tc.OutputPath)
	if err != nil {
		return result, appErr.Wrapf(err, appErr.TestCaseInvalid, "read expected output failed")
	}

	run, err := r.execute(ctx, spec, input)
	if err != nil {
		return result, err
	}

	result.TimeMs = run.elapsedMs
	result.MemoryBytes = run.peakBytes
	result.Stderr = run.stderr

	memExceeded := spec.MemoryLimitBytes > 0 && run.peakBytes > spec.MemoryLimitBytes

	// Classification order matters: a process killed for exceeding the
	// memory limit dies with a non-zero status, so the memory check has
	// to win over the runtime-error check. A process still running at
	// the deadline is TLE regardless of how it died.
	switch {
	case run.exitCode != 0:
		if memExceeded {
			result.Verdict = model.VerdictMemoryLimit
		} else if run.timedOut || (spec.TimeLimitMs > 0 && run.elapsedMs > float64(spec.TimeLimitMs)) {
			result.Verdict = model.VerdictTimeLimitExceeded
			result.TimeMs = float64(spec.TimeLimitMs)
		} else {
			result.Verdict = model.VerdictRuntimeError
		}
	case run.timedOut || (spec.TimeLimitMs > 0 && run.elapsedMs > float64(spec.TimeLimitMs)):
		result.Verdict = model.VerdictTimeLimitExceeded
		result.TimeMs = float64(spec.TimeLimitMs)
	case memExceeded:
		result.Verdict = model.VerdictMemoryLimit
	case compare.Outputs(run.stdout, string(expected)):
		result.Verdict = model.VerdictAccepted
	default:
		result.Verdict = model.VerdictWrongAnswer
		result.Stdout = run.stdout
		result.Expected = string(expected)
	}
	return result, nil
}

type runOutcome struct {
	exitCode  int
	stdout    string
	stderr    string
	elapsedMs float64
	peakBytes int64
	timedOut  bool
}

func (r *Runner) execute(ctx context.Context, spec Spec, stdin io.Reader) (*runOutcome, error) {
	cmd := exec.Command(spec.Cmd[0], spec.Cmd[1:]...)
	cmd.Dir = spec.WorkDir
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, n: maxCapturedOutput}
	cmd.Stderr = &limitedWriter{w: &stderr, n: maxCapturedStderr}

	// Run the program in its own process group so the kill reaches
	// forked children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "start process failed")
	}
	pgid := cmd.Process.Pid

	killGroup := func() {
		_ = unix.Kill(-pgid, unix.SIGKILL)
	}

	done := make(chan struct{})
	peakCh := watchMemory(done, int32(cmd.Process.Pid), spec.MemoryLimitBytes, killGroup)

	var timedOut atomic.Bool
	var timer *time.Timer
	if spec.TimeLimitMs > 0 {
		timer = time.AfterFunc(time.Duration(spec.TimeLimitMs)*time.Millisecond, func() {
			timedOut.Store(true)
			killGroup()
		})
	}
	ctxDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			killGroup()
		case <-ctxDone:
		}
	}()

	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	close(ctxDone)
	if timer != nil {
		timer.Stop()
	}
	close(done)

	var peak int64
	select {
	case peak = <-peakCh:
	case <-time.After(killGrace):
	}

	outcome := &runOutcome{
		stdout:    stdout.String(),
		stderr:    stderr.String(),
		elapsedMs: float64(elapsed.Microseconds()) / 1000.0,
		peakBytes: peak,
		timedOut:  timedOut.Load(),
	}

	if waitErr != nil {
		// Signal-killed processes surface as ExitError with code -1.
		exitErr, ok := waitErr.(*exec.ExitError)
		if !ok {
			return nil, appErr.Wrapf(waitErr, appErr.JudgeSystemError, "wait process failed")
		}
		outcome.exitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		return nil, appErr.Wrap(ctx.Err(), appErr.JudgeSystemError)
	}
	return outcome, nil
}

// limitedWriter keeps the first n bytes and silently drops the rest.
type limitedWriter struct {
	w *bytes.Buffer
	n int64
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.n <= 0 {
		return len(p), nil
	}
	take := int64(len(p))
	if take > l.n {
		take = l.n
	}
	l.n -= take
	l.w.Write(p[:take])
	return len(p), nil
}
