package rank

import (
	"context"
	"sort"

	"rebornoj/internal/contest/model"
)

// Leaderboard returns the contest scoreboard with competition ranking:
// rows are ordered by solved count descending then total penalty
// ascending, tied rows share a rank, and the row after a tie takes its
// list position. Two solves at 52.0 and one at 60.0 rank 1, 1, 3.
func (e *Engine) Leaderboard(ctx context.Context, contestID int64) ([]model.RankedEntry, error) {
	if _, err := e.contests.Get(ctx, contestID); err != nil {
		return nil, err
	}
	entries, err := e.ranks.List(ctx, contestID)
	if err != nil {
		return nil, err
	}

	// The store already orders rows, but ranking correctness should
	// not depend on it.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SolvedCount != entries[j].SolvedCount {
			return entries[i].SolvedCount > entries[j].SolvedCount
		}
		if entries[i].TotalPenalty != entries[j].TotalPenalty {
			return entries[i].TotalPenalty < entries[j].TotalPenalty
		}
		return entries[i].UserID < entries[j].UserID
	})

	ranked := make([]model.RankedEntry, 0, len(entries))
	for i, entry := range entries {
		rank := i + 1
		if i > 0 && sameScore(entries[i-1], entry) {
			rank = ranked[i-1].Rank
		}
		ranked = append(ranked, model.RankedEntry{Rank: rank, RankEntry: *entry})
	}
	return ranked, nil
}

func sameScore(a, b *model.RankEntry) bool {
	return a.SolvedCount == b.SolvedCount && a.TotalPenalty == b.TotalPenalty
}
