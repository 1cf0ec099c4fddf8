package repository

import (
	"context"
	"encoding/json"

	"rebornoj/internal/common/db"
	"rebornoj/internal/contest/model"
	appErr "rebornoj/pkg/errors"
)

// RankRepository persists scoreboard rows. Per-problem stats are stored
// as a JSON document; the JSON boundary stays inside this package so
// the rank engine only ever sees model types.
type RankRepository struct {
	db db.Database
}

func NewRankRepository(database db.Database) *RankRepository {
	return &RankRepository{db: database}
}

// GetOrCreate returns the participant's scoreboard row, creating an
// empty one on first contact.
func (r *RankRepository) GetOrCreate(ctx context.Context, contestID, userID int64) (*model.RankEntry, error) {
	entry, err := r.get(ctx, r.db, contestID, userID)
	if err == nil || !appErr.Is(err, appErr.RecordNotFound) {
		return entry, err
	}

	fresh := &model.RankEntry{
		ContestID:    contestID,
		UserID:       userID,
		ProblemStats: make(map[string]*model.ProblemStat),
	}
	stats, _ := json.Marshal(fresh.ProblemStats)
	_, err = r.db.Exec(ctx, `
		INSERT INTO contest_ranks (contest_id, user_id, solved_count, total_penalty, problem_stats)
		VALUES (?, ?, 0, 0, ?)
		ON DUPLICATE KEY UPDATE contest_id = contest_id`,
		contestID, userID, stats)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "create rank entry failed")
	}
	return r.get(ctx, r.db, contestID, userID)
}

// Save overwrites a scoreboard row inside a transaction.
func (r *RankRepository) Save(ctx context.Context, entry *model.RankEntry) error {
	if entry == nil {
		return appErr.ValidationError("entry", "required")
	}
	stats, err := json.Marshal(entry.ProblemStats)
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	return r.db.Transaction(ctx, func(tx db.Querier) error {
		res, err := tx.Exec(ctx, `
			UPDATE contest_ranks
			SET solved_count = ?, total_penalty = ?, problem_stats = ?
			WHERE contest_id = ? AND user_id = ?`,
			entry.SolvedCount, entry.TotalPenalty, stats, entry.ContestID, entry.UserID)
		if err != nil {
			return appErr.Wrapf(err, appErr.RankUpdateFailed, "save rank entry failed")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			_, err = tx.Exec(ctx, `
				INSERT INTO contest_ranks (contest_id, user_id, solved_count, total_penalty, problem_stats)
				VALUES (?, ?, ?, ?, ?)`,
				entry.ContestID, entry.UserID, entry.SolvedCount, entry.TotalPenalty, stats)
			if err != nil {
				return appErr.Wrapf(err, appErr.RankUpdateFailed, "insert rank entry failed")
			}
		}
		return nil
	})
}

// List returns all scoreboard rows for a contest ordered by solved
// count descending, then total penalty ascending, then user ID for a
// stable output.
func (r *RankRepository) List(ctx context.Context, contestID int64) ([]*model.RankEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT contest_id, user_id, solved_count, total_penalty, problem_stats
		FROM contest_ranks
		WHERE contest_id = ?
		ORDER BY solved_count DESC, total_penalty ASC, user_id ASC`,
		contestID)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list rank entries failed")
	}
	defer rows.Close()

	var entries []*model.RankEntry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "iterate rank entries failed")
	}
	return entries, nil
}

func (r *RankRepository) get(ctx context.Context, q db.Querier, contestID, userID int64) (*model.RankEntry, error) {
	row := q.QueryRow(ctx, `
		SELECT contest_id, user_id, solved_count, total_penalty, problem_stats
		FROM contest_ranks
		WHERE contest_id = ? AND user_id = ?`,
		contestID, userID)
	return scanEntry(row.Scan)
}

func scanEntry(scan func(dest ...interface{}) error) (*model.RankEntry, error) {
	var (
		entry    model.RankEntry
		statsRaw []byte
	)
	if err := scan(&entry.ContestID, &entry.UserID, &entry.SolvedCount, &entry.TotalPenalty, &statsRaw); err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.RecordNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "scan rank entry failed")
	}
	entry.ProblemStats = make(map[string]*model.ProblemStat)
	if len(statsRaw) > 0 {
		if err := json.Unmarshal(statsRaw, &entry.ProblemStats); err != nil {
			return nil, appErr.Wrapf(err, appErr.DatabaseError, "decode problem stats failed")
		}
	}
	return &entry, nil
}
