package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rebornoj/internal/judge/model"
	"rebornoj/internal/judge/testcase"
	appErr "rebornoj/pkg/errors"
)

func makeCase(t *testing.T, input, expected string) testcase.Case {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "1.in")
	out := filepath.Join(dir, "1.out")
	if err := os.WriteFile(in, []byte(input), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if err := os.WriteFile(out, []byte(expected), 0644); err != nil {
		t.Fatalf("write expected: %v", err)
	}
	return testcase.Case{ID: "1_1", InputPath: in, OutputPath: out}
}

func TestRunCaseAccepted(t *testing.T) {
	r := New()
	tc := makeCase(t, "hello\nworld\n", "hello\nworld\n")
	spec := Spec{Cmd: []string{"/bin/cat"}, TimeLimitMs: 5000, MemoryLimitBytes: 512 << 20}

	res, err := r.RunCase(context.Background(), spec, tc)
	if err != nil {
		t.Fatalf("RunCase: %v", err)
	}
	if res.Verdict != model.VerdictAccepted {
		t.Fatalf("verdict = %s, want AC (stderr: %q)", res.Verdict, res.Stderr)
	}
	if res.TimeMs <= 0 {
		t.Fatalf("expected positive elapsed time, got %v", res.TimeMs)
	}
}

func TestRunCaseWrongAnswer(t *testing.T) {
	r := New()
	tc := makeCase(t, "hello\n", "goodbye\n")
	spec := Spec{Cmd: []string{"/bin/cat"}, TimeLimitMs: 5000}

	res, err := r.RunCase(context.Background(), spec, tc)
	if err != nil {
		t.Fatalf("RunCase: %v", err)
	}
	if res.Verdict != model.VerdictWrongAnswer {
		t.Fatalf("verdict = %s, want WA", res.Verdict)
	}
	if res.Stdout != "hello\n" {
		t.Fatalf("WA result should carry the produced output, got %q", res.Stdout)
	}
	if res.Expected != "goodbye\n" {
		t.Fatalf("WA result should carry the expected output, got %q", res.Expected)
	}
}

func TestRunCaseTimeLimit(t *testing.T) {
	r := New()
	tc := makeCase(t, "", "")
	spec := Spec{Cmd: []string{"/bin/sleep", "2"}, TimeLimitMs: 100}

	start := time.Now()
	res, err := r.RunCase(context.Background(), spec, tc)
	if err != nil {
		t.Fatalf("RunCase: %v", err)
	}
	if res.Verdict != model.VerdictTimeLimitExceeded {
		t.Fatalf("verdict = %s, want TLE", res.Verdict)
	}
	if res.TimeMs != 100 {
		t.Fatalf("TLE should report the limit as elapsed, got %v", res.TimeMs)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("process was not killed at the deadline")
	}
}

func TestRunCaseRuntimeError(t *testing.T) {
	r := New()
	tc := makeCase(t, "", "")
	spec := Spec{Cmd: []string{"/bin/sh", "-c", "exit 3"}, TimeLimitMs: 5000}

	res, err := r.RunCase(context.Background(), spec, tc)
	if err != nil {
		t.Fatalf("RunCase: %v", err)
	}
	if res.Verdict != model.VerdictRuntimeError {
		t.Fatalf("verdict = %s, want RE", res.Verdict)
	}
}

func TestRunCaseMemoryLimit(t *testing.T) {
	r := New()
	tc := makeCase(t, "", "")
	// Any real process exceeds a one-byte limit on the first sample.
	spec := Spec{Cmd: []string{"/bin/sleep", "1"}, TimeLimitMs: 5000, MemoryLimitBytes: 1}

	res, err := r.RunCase(context.Background(), spec, tc)
	if err != nil {
		t.Fatalf("RunCase: %v", err)
	}
	if res.Verdict != model.VerdictMemoryLimit {
		t.Fatalf("verdict = %s, want MLE", res.Verdict)
	}
}

func TestRunCaseMissingBinary(t *testing.T) {
	r := New()
	tc := makeCase(t, "", "")
	spec := Spec{Cmd: []string{"/no/such/binary"}, TimeLimitMs: 1000}

	_, err := r.RunCase(context.Background(), spec, tc)
	if appErr.GetCode(err) != appErr.JudgeSystemError {
		t.Fatalf("expected JudgeSystemError, got %v", err)
	}
}

func TestCompileReportsDiagnostics(t *testing.T) {
	out, err := Compile(context.Background(), []string{"/bin/sh", "-c", "echo broken >&2; exit 1"}, t.TempDir(), time.Minute)
	if appErr.GetCode(err) != appErr.CompilationError {
		t.Fatalf("expected CompilationError, got %v", err)
	}
	if out == "" {
		t.Fatalf("expected compiler output to be captured")
	}
}

func TestCompileSuccess(t *testing.T) {
	if _, err := Compile(context.Background(), []string{"/bin/true"}, t.TempDir(), time.Minute); err != nil {
		t.Fatalf("Compile: %v", err)
	}
}
