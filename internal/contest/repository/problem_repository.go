package repository

import (
	"context"

	"rebornoj/internal/common/db"
	"rebornoj/internal/judge/model"
	"rebornoj/internal/judge/testcase"
	appErr "rebornoj/pkg/errors"
)

// ProblemRepository serves the judge pipeline the per-problem limits
// and the current test data pack location.
type ProblemRepository struct {
	db db.Database
}

func NewProblemRepository(database db.Database) *ProblemRepository {
	return &ProblemRepository{db: database}
}

// GetLimits returns the judge resource limits for a problem.
func (r *ProblemRepository) GetLimits(ctx context.Context, problemID int64) (model.ProblemLimits, error) {
	var limits model.ProblemLimits
	if problemID <= 0 {
		return limits, appErr.ValidationError("problem_id", "must be positive")
	}
	err := r.db.QueryRow(ctx, `
		SELECT time_limit_ms, memory_limit_bytes FROM problems WHERE id = ?`,
		problemID).Scan(&limits.TimeLimitMs, &limits.MemoryLimitBytes)
	if db.IsNoRows(err) {
		return limits, appErr.New(appErr.ProblemNotFound).WithDetail("problem_id", problemID)
	}
	if err != nil {
		return limits, appErr.Wrapf(err, appErr.DatabaseError, "load problem limits failed")
	}
	return limits, nil
}

// GetPackMeta returns the current data pack descriptor for a problem.
func (r *ProblemRepository) GetPackMeta(ctx context.Context, problemID int64) (testcase.PackMeta, error) {
	var meta testcase.PackMeta
	if problemID <= 0 {
		return meta, appErr.ValidationError("problem_id", "must be positive")
	}
	err := r.db.QueryRow(ctx, `
		SELECT id, data_version, data_pack_key, data_pack_hash FROM problems WHERE id = ?`,
		problemID).Scan(&meta.ProblemID, &meta.Version, &meta.PackKey, &meta.PackHash)
	if db.IsNoRows(err) {
		return meta, appErr.New(appErr.ProblemNotFound).WithDetail("problem_id", problemID)
	}
	if err != nil {
		return meta, appErr.Wrapf(err, appErr.DatabaseError, "load problem pack meta failed")
	}
	return meta, nil
}
