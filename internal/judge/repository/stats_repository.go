package repository

import (
	"context"
	"database/sql"

	"rebornoj/internal/common/db"
	appErr "rebornoj/pkg/errors"
)

// aggregateUserID is the sentinel row holding per-problem totals. Real
// user IDs start at 1, so the zero row never collides.
const aggregateUserID = 0

// StatsRepository maintains per-user and per-problem submission
// counters in MySQL, including first-blood tracking.
type StatsRepository struct {
	db db.Database
}

func NewStatsRepository(database db.Database) *StatsRepository {
	return &StatsRepository{db: database}
}

// RecordSubmission bumps the submit counter for the user and for the
// problem aggregate. Called once per judged submission regardless of
// verdict.
func (r *StatsRepository) RecordSubmission(ctx context.Context, problemID, userID int64) error {
	if problemID <= 0 || userID <= 0 {
		return appErr.ValidationError("problem_id", "must be positive")
	}
	return r.db.Transaction(ctx, func(tx db.Querier) error {
		for _, uid := range []int64{userID, aggregateUserID} {
			_, err := tx.Exec(ctx, `
				INSERT INTO problem_stats (problem_id, user_id, submit_count, solve_count)
				VALUES (?, ?, 1, 0)
				ON DUPLICATE KEY UPDATE submit_count = submit_count + 1`,
				problemID, uid)
			if err != nil {
				return appErr.Wrapf(err, appErr.DatabaseError, "record submission failed")
			}
		}
		return nil
	})
}

// RecordAccepted bumps solve counters for an accepted submission. Only
// the user's first acceptance of a problem counts, and the very first
// acceptance across all users marks first blood. Returns whether this
// call took first blood.
func (r *StatsRepository) RecordAccepted(ctx context.Context, problemID, userID int64) (bool, error) {
	if problemID <= 0 || userID <= 0 {
		return false, appErr.ValidationError("problem_id", "must be positive")
	}
	firstBlood := false
	err := r.db.Transaction(ctx, func(tx db.Querier) error {
		var solved int64
		err := tx.QueryRow(ctx, `
			SELECT solve_count FROM problem_stats
			WHERE problem_id = ? AND user_id = ? FOR UPDATE`,
			problemID, userID).Scan(&solved)
		if err != nil && !db.IsNoRows(err) {
			return appErr.Wrapf(err, appErr.DatabaseError, "load user stats failed")
		}
		if solved > 0 {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO problem_stats (problem_id, user_id, submit_count, solve_count)
			VALUES (?, ?, 0, 1)
			ON DUPLICATE KEY UPDATE solve_count = solve_count + 1`,
			problemID, userID)
		if err != nil {
			return appErr.Wrapf(err, appErr.DatabaseError, "record solve failed")
		}

		var aggSolved int64
		var firstBloodUser sql.NullInt64
		err = tx.QueryRow(ctx, `
			SELECT solve_count, first_blood_user_id FROM problem_stats
			WHERE problem_id = ? AND user_id = ? FOR UPDATE`,
			problemID, aggregateUserID).Scan(&aggSolved, &firstBloodUser)
		if err != nil && !db.IsNoRows(err) {
			return appErr.Wrapf(err, appErr.DatabaseError, "load problem stats failed")
		}
		if db.IsNoRows(err) {
			aggSolved = 0
		}

		if aggSolved == 0 && !firstBloodUser.Valid {
			firstBlood = true
			_, err = tx.Exec(ctx, `
				INSERT INTO problem_stats (problem_id, user_id, submit_count, solve_count, first_blood_user_id)
				VALUES (?, ?, 0, 1, ?)
				ON DUPLICATE KEY UPDATE solve_count = solve_count + 1, first_blood_user_id = ?`,
				problemID, aggregateUserID, userID, userID)
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO problem_stats (problem_id, user_id, submit_count, solve_count)
				VALUES (?, ?, 0, 1)
				ON DUPLICATE KEY UPDATE solve_count = solve_count + 1`,
				problemID, aggregateUserID)
		}
		if err != nil {
			return appErr.Wrapf(err, appErr.DatabaseError, "update problem stats failed")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return firstBlood, nil
}

// ProblemCounters returns aggregate submit and solve counts for a
// problem, both zero when the problem has no submissions yet.
func (r *StatsRepository) ProblemCounters(ctx context.Context, problemID int64) (submits, solves int64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT submit_count, solve_count FROM problem_stats
		WHERE problem_id = ? AND user_id = ?`,
		problemID, aggregateUserID).Scan(&submits, &solves)
	if db.IsNoRows(err) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, appErr.Wrapf(err, appErr.DatabaseError, "load problem counters failed")
	}
	return submits, solves, nil
}
