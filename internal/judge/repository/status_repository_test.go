package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"rebornoj/internal/common/cache"
	"rebornoj/internal/judge/model"
	appErr "rebornoj/pkg/errors"
)

func newTestCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	return c
}

func TestStatusRoundTrip(t *testing.T) {
	repo := NewStatusRepository(newTestCache(t), time.Hour)
	ctx := context.Background()

	status := &model.JudgeStatus{
		SubmissionID: "sub-1",
		State:        model.StatusRunning,
	}
	if err := repo.Save(ctx, status); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Get(ctx, "sub-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != model.StatusRunning {
		t.Fatalf("state = %q, want running", got.State)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatalf("UpdatedAt should be stamped on save")
	}
}

func TestStatusOverwrite(t *testing.T) {
	repo := NewStatusRepository(newTestCache(t), time.Hour)
	ctx := context.Background()

	if err := repo.Save(ctx, &model.JudgeStatus{SubmissionID: "sub-2", State: model.StatusRunning}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	final := &model.JudgeStatus{
		SubmissionID: "sub-2",
		State:        model.StatusFinished,
		Report: &model.JudgeReport{
			SubmissionID: "sub-2",
			Verdict:      model.VerdictAccepted,
			Passed:       5,
			Total:        5,
		},
	}
	if err := repo.Save(ctx, final); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Get(ctx, "sub-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != model.StatusFinished || got.Report == nil || got.Report.Verdict != model.VerdictAccepted {
		t.Fatalf("final status not persisted: %+v", got)
	}
}

func TestStatusMissing(t *testing.T) {
	repo := NewStatusRepository(newTestCache(t), time.Hour)
	_, err := repo.Get(context.Background(), "nope")
	if appErr.GetCode(err) != appErr.SubmissionNotFound {
		t.Fatalf("expected SubmissionNotFound, got %v", err)
	}
}

func TestStatusValidation(t *testing.T) {
	repo := NewStatusRepository(newTestCache(t), time.Hour)
	if err := repo.Save(context.Background(), &model.JudgeStatus{}); err == nil {
		t.Fatalf("expected validation error for empty submission id")
	}
	if _, err := repo.Get(context.Background(), ""); err == nil {
		t.Fatalf("expected validation error for empty submission id")
	}
}
