// Package service hosts contest background workers.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rebornoj/pkg/utils/logger"
)

// transitioner is the slice of ContestRepository the updater needs.
type transitioner interface {
	StartDue(ctx context.Context, now time.Time) (int64, error)
	EndDue(ctx context.Context, now time.Time) (int64, error)
}

// StatusUpdater periodically moves contests through their lifecycle:
// pending to running at start time, running to ended at end time.
type StatusUpdater struct {
	contests transitioner
	interval time.Duration
}

func NewStatusUpdater(contests transitioner, interval time.Duration) *StatusUpdater {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StatusUpdater{contests: contests, interval: interval}
}

// Run ticks until ctx is cancelled. Transition failures are logged and
// retried on the next tick.
func (u *StatusUpdater) Run(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.Tick(ctx)
		}
	}
}

// Tick performs one pass of due transitions.
func (u *StatusUpdater) Tick(ctx context.Context) {
	now := time.Now()
	if n, err := u.contests.StartDue(ctx, now); err != nil {
		logger.Error(ctx, "start due contests failed", zap.Error(err))
	} else if n > 0 {
		logger.Info(ctx, "contests started", zap.Int64("count", n))
	}
	if n, err := u.contests.EndDue(ctx, now); err != nil {
		logger.Error(ctx, "end due contests failed", zap.Error(err))
	} else if n > 0 {
		logger.Info(ctx, "contests ended", zap.Int64("count", n))
	}
}
