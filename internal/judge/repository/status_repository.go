package repository

import (
	"context"
	"encoding/json"
	"time"

	"rebornoj/internal/common/cache"
	"rebornoj/internal/judge/model"
	appErr "rebornoj/pkg/errors"
)

const statusKeyPrefix = "judge:status:"

// StatusRepository stores judge status snapshots in the cache so the
// HTTP layer can answer polls while a submission is still in flight.
type StatusRepository struct {
	cache cache.BasicOps
	ttl   time.Duration
}

func NewStatusRepository(c cache.BasicOps, ttl time.Duration) *StatusRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StatusRepository{cache: c, ttl: ttl}
}

// Save writes a status snapshot, stamping UpdatedAt.
func (r *StatusRepository) Save(ctx context.Context, status *model.JudgeStatus) error {
	if status == nil || status.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	status.UpdatedAt = time.Now()
	data, err := json.Marshal(status)
	if err != nil {
		return appErr.Wrap(err, appErr.CacheError)
	}
	if err := r.cache.Set(ctx, statusKeyPrefix+status.SubmissionID, string(data), r.ttl); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "save judge status failed")
	}
	return nil
}

// Get returns the latest snapshot for a submission.
func (r *StatusRepository) Get(ctx context.Context, submissionID string) (*model.JudgeStatus, error) {
	if submissionID == "" {
		return nil, appErr.ValidationError("submission_id", "required")
	}
	raw, err := r.cache.Get(ctx, statusKeyPrefix+submissionID)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "load judge status failed")
	}
	if raw == "" {
		return nil, appErr.New(appErr.SubmissionNotFound).WithDetail("submission_id", submissionID)
	}
	var status model.JudgeStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, appErr.Wrap(err, appErr.CacheError)
	}
	return &status, nil
}
