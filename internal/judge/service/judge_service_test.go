package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rebornoj/internal/judge/model"
	"rebornoj/internal/judge/runner"
	"rebornoj/internal/judge/testcase"
	appErr "rebornoj/pkg/errors"
)

type fakeCaseRunner struct {
	verdicts []model.Verdict
	calls    int
	err      error
}

func (f *fakeCaseRunner) RunCase(ctx context.Context, spec runner.Spec, tc testcase.Case) (model.ExecutionResult, error) {
	idx := f.calls
	f.calls++
	if f.err != nil {
		return model.ExecutionResult{}, f.err
	}
	verdict := model.VerdictAccepted
	if idx < len(f.verdicts) {
		verdict = f.verdicts[idx]
	}
	return model.ExecutionResult{CaseID: tc.ID, Verdict: verdict, TimeMs: 1}, nil
}

func okCompile(ctx context.Context, argv []string, workDir string, timeout time.Duration) (string, error) {
	return "", nil
}

func setupProblem(t *testing.T, caseCount int) (*testcase.Store, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "42", "1")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for i := 1; i <= caseCount; i++ {
		base := filepath.Join(dir, string(rune('0'+i)))
		if err := os.WriteFile(base+".in", []byte("in\n"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := os.WriteFile(base+".out", []byte("out\n"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return testcase.NewStore(root), "42"
}

func TestJudgeAllAccepted(t *testing.T) {
	store, problemDir := setupProblem(t, 3)
	fake := &fakeCaseRunner{}
	svc := NewJudgeService(t.TempDir(), store, fake, okCompile, time.Minute)

	report, err := svc.Judge(context.Background(), Request{
		SubmissionID: "s1",
		Language:     "cpp",
		Source:       "int main(){}",
		ProblemDir:   problemDir,
	})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if report.Verdict != model.VerdictAccepted {
		t.Fatalf("verdict = %s, want AC", report.Verdict)
	}
	if report.Passed != 3 || report.Total != 3 {
		t.Fatalf("passed/total = %d/%d, want 3/3", report.Passed, report.Total)
	}
	if fake.calls != 3 {
		t.Fatalf("runner called %d times, want 3", fake.calls)
	}
}

func TestJudgeFailFast(t *testing.T) {
	store, problemDir := setupProblem(t, 4)
	fake := &fakeCaseRunner{verdicts: []model.Verdict{
		model.VerdictAccepted,
		model.VerdictWrongAnswer,
	}}
	svc := NewJudgeService(t.TempDir(), store, fake, okCompile, time.Minute)

	report, err := svc.Judge(context.Background(), Request{
		SubmissionID: "s2",
		Language:     "cpp",
		Source:       "int main(){}",
		ProblemDir:   problemDir,
	})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if report.Verdict != model.VerdictWrongAnswer {
		t.Fatalf("verdict = %s, want WA", report.Verdict)
	}
	if fake.calls != 2 {
		t.Fatalf("judging must stop at the first failure, ran %d cases", fake.calls)
	}
	if report.Passed != 1 || report.Total != 2 {
		t.Fatalf("passed/total = %d/%d, want 1/2", report.Passed, report.Total)
	}
	if len(report.Details) != 2 {
		t.Fatalf("details should cover executed cases only, got %d", len(report.Details))
	}
}

func TestJudgeCompilationError(t *testing.T) {
	store, problemDir := setupProblem(t, 2)
	fake := &fakeCaseRunner{}
	failCompile := func(ctx context.Context, argv []string, workDir string, timeout time.Duration) (string, error) {
		return "sol.cpp:1: error: expected ';'", appErr.New(appErr.CompilationError)
	}
	svc := NewJudgeService(t.TempDir(), store, fake, failCompile, time.Minute)

	report, err := svc.Judge(context.Background(), Request{
		SubmissionID: "s3",
		Language:     "cpp",
		Source:       "int main(){",
		ProblemDir:   problemDir,
	})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if report.Verdict != model.VerdictCompilationError {
		t.Fatalf("verdict = %s, want CE", report.Verdict)
	}
	if report.CompileOutput == "" {
		t.Fatalf("CE report should carry compiler output")
	}
	if fake.calls != 0 {
		t.Fatalf("no cases should run after CE")
	}
}

func TestJudgeSystemErrorOnRunnerFault(t *testing.T) {
	store, problemDir := setupProblem(t, 2)
	fake := &fakeCaseRunner{err: appErr.New(appErr.JudgeSystemError)}
	svc := NewJudgeService(t.TempDir(), store, fake, okCompile, time.Minute)

	report, err := svc.Judge(context.Background(), Request{
		SubmissionID: "s4",
		Language:     "cpp",
		Source:       "int main(){}",
		ProblemDir:   problemDir,
	})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if report.Verdict != model.VerdictSystemError {
		t.Fatalf("verdict = %s, want SE", report.Verdict)
	}
	if report.Total != 1 || len(report.Details) != 1 {
		t.Fatalf("total must count produced results, got total %d / %d details",
			report.Total, len(report.Details))
	}
}

func TestJudgeUnsupportedLanguage(t *testing.T) {
	store, problemDir := setupProblem(t, 1)
	svc := NewJudgeService(t.TempDir(), store, &fakeCaseRunner{}, okCompile, time.Minute)

	_, err := svc.Judge(context.Background(), Request{
		SubmissionID: "s5",
		Language:     "cobol",
		Source:       "x",
		ProblemDir:   problemDir,
	})
	if appErr.GetCode(err) != appErr.LanguageNotSupported {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
}

func TestJudgeCleansWorkspace(t *testing.T) {
	store, problemDir := setupProblem(t, 1)
	workRoot := t.TempDir()
	svc := NewJudgeService(workRoot, store, &fakeCaseRunner{}, okCompile, time.Minute)

	if _, err := svc.Judge(context.Background(), Request{
		SubmissionID: "s6",
		Language:     "cpp",
		Source:       "int main(){}",
		ProblemDir:   problemDir,
	}); err != nil {
		t.Fatalf("Judge: %v", err)
	}

	entries, err := os.ReadDir(workRoot)
	if err != nil {
		t.Fatalf("read work root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace not cleaned up, %d entries left", len(entries))
	}
}
