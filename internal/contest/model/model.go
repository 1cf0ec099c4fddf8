package model

import "time"

// Contest lifecycle states.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusEnded   = "ended"
)

// Contest is a timed competition over an ordered list of problems.
type Contest struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`

	// ProblemIDs is ordered; position determines the display letter,
	// so ProblemIDs[0] is problem A.
	ProblemIDs []int64 `json:"problem_ids"`
}

// ProblemStat tracks one participant's attempts on one problem.
// SubmitCount grows on every attempt, even after the problem is solved;
// Solved, Penalty and FirstSolveTime freeze at the first accept.
type ProblemStat struct {
	SubmitCount    int        `json:"submit_count"`
	Solved         bool       `json:"solved"`
	Penalty        float64    `json:"penalty"`
	FirstSolveTime *time.Time `json:"first_solve_time,omitempty"`
}

// RankEntry is one participant's scoreboard row. ProblemStats is keyed
// by problem letter ("A".."Z").
type RankEntry struct {
	ContestID    int64                   `json:"contest_id"`
	UserID       int64                   `json:"user_id"`
	SolvedCount  int                     `json:"solved_count"`
	TotalPenalty float64                 `json:"total_penalty"`
	ProblemStats map[string]*ProblemStat `json:"problem_stats"`
}

// RankedEntry is a RankEntry with its computed scoreboard position.
type RankedEntry struct {
	Rank int `json:"rank"`
	RankEntry
}
