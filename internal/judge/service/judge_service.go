// Package service orchestrates the judge pipeline: workspace setup,
// compilation, per-case execution, and report assembly.
package service

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rebornoj/internal/judge/lang"
	"rebornoj/internal/judge/model"
	"rebornoj/internal/judge/runner"
	"rebornoj/internal/judge/testcase"
	appErr "rebornoj/pkg/errors"
	"rebornoj/pkg/utils/logger"
)

// CaseRunner executes one test case. Satisfied by runner.Runner; tests
// substitute fakes.
type CaseRunner interface {
	RunCase(ctx context.Context, spec runner.Spec, tc testcase.Case) (model.ExecutionResult, error)
}

// CompileFunc builds a submission. Satisfied by runner.Compile.
type CompileFunc func(ctx context.Context, argv []string, workDir string, timeout time.Duration) (string, error)

// Request carries everything needed to judge one submission.
type Request struct {
	SubmissionID string
	Language     string
	Source       string

	// ProblemDir is the problem's test data directory relative to the
	// store root, as returned by the pack cache.
	ProblemDir string
	Limits     model.ProblemLimits
}

// JudgeService runs submissions against their test data.
type JudgeService struct {
	workRoot       string
	store          *testcase.Store
	runner         CaseRunner
	compile        CompileFunc
	compileTimeout time.Duration
}

func NewJudgeService(workRoot string, store *testcase.Store, caseRunner CaseRunner, compile CompileFunc, compileTimeout time.Duration) *JudgeService {
	if compile == nil {
		compile = runner.Compile
	}
	if compileTimeout <= 0 {
		compileTimeout = 30 * time.Second
	}
	return &JudgeService{
		workRoot:       workRoot,
		store:          store,
		runner:         caseRunner,
		compile:        compile,
		compileTimeout: compileTimeout,
	}
}

// Judge compiles and runs a submission, stopping at the first failing
// test case. CE and SE outcomes are reported through the verdict, not
// the error; a non-nil error means the request itself was unusable.
func (s *JudgeService) Judge(ctx context.Context, req Request) (*model.JudgeReport, error) {
	report := &model.JudgeReport{SubmissionID: req.SubmissionID}

	language, err := lang.Lookup(req.Language)
	if err != nil {
		return nil, err
	}
	if req.Source == "" {
		return nil, appErr.ValidationError("source", "required")
	}

	cases, err := s.store.Cases(req.ProblemDir)
	if err != nil {
		return nil, err
	}

	workDir, err := s.makeWorkspace()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn(ctx, "cleanup workspace failed", zap.String("dir", workDir), zap.Error(err))
		}
	}()

	srcPath := filepath.Join(workDir, "sol"+language.SourceSuffix)
	binPath := filepath.Join(workDir, "sol")
	if err := os.WriteFile(srcPath, []byte(req.Source), 0644); err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "write source failed")
	}

	compileArgv, err := language.CompileCommand(srcPath, binPath)
	if err != nil {
		return nil, err
	}
	if compileArgv != nil {
		output, err := s.compile(ctx, compileArgv, workDir, s.compileTimeout)
		if err != nil {
			if appErr.Is(err, appErr.CompilationError) {
				report.Verdict = model.VerdictCompilationError
				report.CompileOutput = output
				return report, nil
			}
			return nil, err
		}
	}

	runArgv, err := language.RunCommand(srcPath, binPath)
	if err != nil {
		return nil, err
	}
	spec := runner.Spec{
		Cmd:              runArgv,
		WorkDir:          workDir,
		TimeLimitMs:      req.Limits.TimeLimitMs,
		MemoryLimitBytes: req.Limits.MemoryLimitBytes,
	}

	// Total counts executed cases, not cases in the store: fail-fast
	// judging stops before unexecuted cases produce a result.
	report.Verdict = model.VerdictAccepted
	for _, tc := range cases {
		result, err := s.runner.RunCase(ctx, spec, tc)
		if err != nil {
			logger.Error(ctx, "case execution failed",
				zap.String("case", tc.ID), zap.Error(err))
			result.CaseID = tc.ID
			result.Verdict = model.VerdictSystemError
			report.Details = append(report.Details, result)
			report.Total = len(report.Details)
			report.Verdict = model.VerdictSystemError
			return report, nil
		}
		report.Details = append(report.Details, result)
		report.Total = len(report.Details)
		if result.Verdict.Terminal() {
			report.Verdict = result.Verdict
			return report, nil
		}
		report.Passed++
	}
	return report, nil
}

// makeWorkspace creates a unique scratch directory for one submission.
func (s *JudgeService) makeWorkspace() (string, error) {
	name := uuid.NewString()[:8]
	dir := filepath.Join(s.workRoot, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeSystemError, "create workspace failed")
	}
	return dir, nil
}
