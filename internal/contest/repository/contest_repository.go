package repository

import (
	"context"
	"encoding/json"
	"time"

	"rebornoj/internal/common/db"
	"rebornoj/internal/contest/model"
	appErr "rebornoj/pkg/errors"
)

// ContestRepository loads contests and drives their status transitions.
type ContestRepository struct {
	db db.Database
}

func NewContestRepository(database db.Database) *ContestRepository {
	return &ContestRepository{db: database}
}

// Get loads one contest. The problem list is stored as a JSON array of
// problem IDs in display order.
func (r *ContestRepository) Get(ctx context.Context, contestID int64) (*model.Contest, error) {
	if contestID <= 0 {
		return nil, appErr.ValidationError("contest_id", "must be positive")
	}
	var (
		c           model.Contest
		problemsRaw []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, start_time, end_time, status, problem_ids
		FROM contests WHERE id = ?`,
		contestID).Scan(&c.ID, &c.Name, &c.StartTime, &c.EndTime, &c.Status, &problemsRaw)
	if db.IsNoRows(err) {
		return nil, appErr.New(appErr.ContestNotFound).WithDetail("contest_id", contestID)
	}
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load contest failed")
	}
	if len(problemsRaw) > 0 {
		if err := json.Unmarshal(problemsRaw, &c.ProblemIDs); err != nil {
			return nil, appErr.Wrapf(err, appErr.DatabaseError, "decode contest problems failed")
		}
	}
	return &c, nil
}

// StartDue flips pending contests whose start time has passed to
// running. Returns the number of contests transitioned.
func (r *ContestRepository) StartDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `
		UPDATE contests SET status = ?
		WHERE status = ? AND start_time <= ?`,
		model.StatusRunning, model.StatusPending, now)
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.DatabaseError, "start contests failed")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// EndDue flips running contests whose end time has passed to ended.
// Returns the number of contests transitioned.
func (r *ContestRepository) EndDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `
		UPDATE contests SET status = ?
		WHERE status = ? AND end_time <= ?`,
		model.StatusEnded, model.StatusRunning, now)
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.DatabaseError, "end contests failed")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
