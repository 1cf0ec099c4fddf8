// Package rank implements contest scoreboard maintenance: penalty
// accounting per submission and leaderboard assembly.
package rank

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"rebornoj/internal/contest/model"
	appErr "rebornoj/pkg/errors"
	"rebornoj/pkg/utils/logger"
)

// wrongSubmissionPenalty is the minutes added per rejected submission
// that precedes the accepted one.
const wrongSubmissionPenalty = 20

// maxProblemLetter bounds contests to problems A through Z.
const maxProblemLetter = 26

// ContestGetter loads contest metadata. Satisfied by
// repository.ContestRepository.
type ContestGetter interface {
	Get(ctx context.Context, contestID int64) (*model.Contest, error)
}

// RankStore persists scoreboard rows. Satisfied by
// repository.RankRepository.
type RankStore interface {
	GetOrCreate(ctx context.Context, contestID, userID int64) (*model.RankEntry, error)
	Save(ctx context.Context, entry *model.RankEntry) error
	List(ctx context.Context, contestID int64) ([]*model.RankEntry, error)
}

// Engine applies judged contest submissions to the scoreboard.
type Engine struct {
	contests ContestGetter
	ranks    RankStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(contests ContestGetter, ranks RankStore) *Engine {
	return &Engine{
		contests: contests,
		ranks:    ranks,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Update applies one judged submission to the participant's scoreboard
// row. Every attempt increments the submit counter, including attempts
// after the problem is solved; the scoring fields (solved, penalty,
// first solve time) freeze at the first accept, so post-solve
// submissions never change the standing. Wrong submissions only count
// toward penalty once the problem is eventually solved.
func (e *Engine) Update(ctx context.Context, contestID, userID, problemID int64, accepted bool, submittedAt time.Time) error {
	contest, err := e.contests.Get(ctx, contestID)
	if err != nil {
		return err
	}
	if submittedAt.Before(contest.StartTime) {
		return appErr.New(appErr.ContestNotStarted).WithDetail("contest_id", contestID)
	}
	if submittedAt.After(contest.EndTime) {
		return appErr.New(appErr.ContestEnded).WithDetail("contest_id", contestID)
	}

	letter, err := resolveLetter(contest, problemID)
	if err != nil {
		return err
	}

	unlock := e.lockUser(contestID, userID)
	defer unlock()

	entry, err := e.ranks.GetOrCreate(ctx, contestID, userID)
	if err != nil {
		return err
	}

	stat := entry.ProblemStats[letter]
	if stat == nil {
		stat = &model.ProblemStat{}
		entry.ProblemStats[letter] = stat
	}

	stat.SubmitCount++
	if !stat.Solved && accepted {
		minutes := submittedAt.Sub(contest.StartTime).Minutes()
		penalty := round2(minutes + float64(wrongSubmissionPenalty*(stat.SubmitCount-1)))
		stat.Solved = true
		stat.Penalty = penalty
		solvedAt := submittedAt
		stat.FirstSolveTime = &solvedAt
		entry.SolvedCount++
		entry.TotalPenalty = round2(entry.TotalPenalty + penalty)
	}

	if err := e.ranks.Save(ctx, entry); err != nil {
		return err
	}
	logger.Debug(ctx, "rank updated",
		zap.Int64("contest_id", contestID),
		zap.Int64("user_id", userID),
		zap.String("problem", letter),
		zap.Bool("accepted", accepted))
	return nil
}

// resolveLetter maps a problem ID to its display letter via its
// position in the contest problem list.
func resolveLetter(contest *model.Contest, problemID int64) (string, error) {
	for i, id := range contest.ProblemIDs {
		if id != problemID {
			continue
		}
		if i >= maxProblemLetter {
			return "", appErr.New(appErr.LetterRangeExceeded).WithDetail("position", i)
		}
		return string(rune('A' + i)), nil
	}
	return "", appErr.New(appErr.ProblemNotInContest).
		WithDetail("contest_id", contest.ID).
		WithDetail("problem_id", problemID)
}

// lockUser serializes updates for one participant in one contest.
func (e *Engine) lockUser(contestID, userID int64) func() {
	key := fmt.Sprintf("%d:%d", contestID, userID)
	e.mu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// round2 rounds to two decimal places, the precision penalties are
// stored and displayed with.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
