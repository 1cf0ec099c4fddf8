package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"rebornoj/internal/common/mq"
	"rebornoj/internal/common/storage"
	"rebornoj/internal/judge/model"
	"rebornoj/internal/judge/testcase"
	appErr "rebornoj/pkg/errors"
)

type fakeJudger struct {
	report  *model.JudgeReport
	err     error
	lastReq Request
}

func (f *fakeJudger) Judge(ctx context.Context, req Request) (*model.JudgeReport, error) {
	f.lastReq = req
	return f.report, f.err
}

type fakeProblems struct{}

func (fakeProblems) GetLimits(ctx context.Context, problemID int64) (model.ProblemLimits, error) {
	return model.ProblemLimits{TimeLimitMs: 1000, MemoryLimitBytes: 256 << 20}, nil
}

func (fakeProblems) GetPackMeta(ctx context.Context, problemID int64) (testcase.PackMeta, error) {
	return testcase.PackMeta{ProblemID: problemID, Version: 1, PackKey: "p/1.tar.zst"}, nil
}

type fakePacks struct{}

func (fakePacks) Get(ctx context.Context, meta testcase.PackMeta) (string, error) {
	return "42/1", nil
}

type fakeStatuses struct {
	saved []model.JudgeStatus
}

func (f *fakeStatuses) Save(ctx context.Context, status *model.JudgeStatus) error {
	f.saved = append(f.saved, *status)
	return nil
}

type fakeStats struct {
	submissions int
	accepts     int
}

func (f *fakeStats) RecordSubmission(ctx context.Context, problemID, userID int64) error {
	f.submissions++
	return nil
}

func (f *fakeStats) RecordAccepted(ctx context.Context, problemID, userID int64) (bool, error) {
	f.accepts++
	return f.accepts == 1, nil
}

type fakeRanks struct {
	updates  int
	accepted bool
}

func (f *fakeRanks) Update(ctx context.Context, contestID, userID, problemID int64, accepted bool, submittedAt time.Time) error {
	f.updates++
	f.accepted = accepted
	return nil
}

type fakeObjects struct {
	objects map[string]string
}

func (f *fakeObjects) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, appErr.New(appErr.NotFound)
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (f *fakeObjects) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	return nil
}

func (f *fakeObjects) StatObject(ctx context.Context, bucket, key string) (storage.ObjectStat, error) {
	return storage.ObjectStat{}, nil
}

func (f *fakeObjects) RemoveObject(ctx context.Context, bucket, key string) error {
	return nil
}

type fakeProducer struct {
	published []*mq.Message
	topics    []string
}

func (f *fakeProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	f.topics = append(f.topics, topic)
	f.published = append(f.published, message)
	return nil
}

type consumerHarness struct {
	consumer *Consumer
	judger   *fakeJudger
	statuses *fakeStatuses
	stats    *fakeStats
	ranks    *fakeRanks
	producer *fakeProducer
	objects  *fakeObjects
}

func newHarness(report *model.JudgeReport, judgeErr error) *consumerHarness {
	h := &consumerHarness{
		judger:   &fakeJudger{report: report, err: judgeErr},
		statuses: &fakeStatuses{},
		stats:    &fakeStats{},
		ranks:    &fakeRanks{},
		producer: &fakeProducer{},
		objects:  &fakeObjects{objects: map[string]string{"src/s1.cpp": "int main(){}"}},
	}
	h.consumer = NewConsumer(
		ConsumerConfig{
			SubmissionTopic: "judge.submissions",
			ResultTopic:     "judge.status.final",
			SourceBucket:    "sources",
		},
		h.judger, fakeProblems{}, fakePacks{}, h.statuses, h.stats, h.ranks, h.objects, h.producer,
	)
	return h
}

func judgeMessage(t *testing.T, msg model.JudgeMessage) *mq.Message {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return mq.NewMessage(body)
}

func TestHandleMessageAccepted(t *testing.T) {
	report := &model.JudgeReport{SubmissionID: "s1", Verdict: model.VerdictAccepted, Passed: 3, Total: 3}
	h := newHarness(report, nil)

	err := h.consumer.HandleMessage(context.Background(), judgeMessage(t, model.JudgeMessage{
		SubmissionID: "s1",
		ProblemID:    42,
		UserID:       9,
		Language:     "cpp",
		Source:       "int main(){}",
		ContestID:    7,
		SubmittedAt:  time.Now(),
	}))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(h.statuses.saved) != 2 {
		t.Fatalf("expected running + finished snapshots, got %d", len(h.statuses.saved))
	}
	if h.statuses.saved[0].State != model.StatusRunning || h.statuses.saved[1].State != model.StatusFinished {
		t.Fatalf("status sequence wrong: %+v", h.statuses.saved)
	}
	if h.stats.submissions != 1 || h.stats.accepts != 1 {
		t.Fatalf("stats not recorded: %+v", h.stats)
	}
	if h.ranks.updates != 1 || !h.ranks.accepted {
		t.Fatalf("rank update missing: %+v", h.ranks)
	}
	if len(h.producer.published) != 1 || h.producer.topics[0] != "judge.status.final" {
		t.Fatalf("result event not published")
	}
}

func TestHandleMessageRejectedCountsNoSolve(t *testing.T) {
	report := &model.JudgeReport{SubmissionID: "s2", Verdict: model.VerdictWrongAnswer, Passed: 1, Total: 3}
	h := newHarness(report, nil)

	err := h.consumer.HandleMessage(context.Background(), judgeMessage(t, model.JudgeMessage{
		SubmissionID: "s2",
		ProblemID:    42,
		UserID:       9,
		Language:     "cpp",
		Source:       "int main(){}",
		ContestID:    7,
		SubmittedAt:  time.Now(),
	}))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if h.stats.submissions != 1 || h.stats.accepts != 0 {
		t.Fatalf("WA must count a submission but no accept: %+v", h.stats)
	}
	if h.ranks.updates != 1 || h.ranks.accepted {
		t.Fatalf("rank must see a rejected submission: %+v", h.ranks)
	}
}

func TestHandleMessagePracticeSkipsRank(t *testing.T) {
	report := &model.JudgeReport{SubmissionID: "s3", Verdict: model.VerdictAccepted, Passed: 1, Total: 1}
	h := newHarness(report, nil)

	err := h.consumer.HandleMessage(context.Background(), judgeMessage(t, model.JudgeMessage{
		SubmissionID: "s3",
		ProblemID:    42,
		UserID:       9,
		Language:     "cpp",
		Source:       "int main(){}",
	}))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if h.ranks.updates != 0 {
		t.Fatalf("practice submissions must not touch the scoreboard")
	}
}

func TestHandleMessageFetchesSourceFromStorage(t *testing.T) {
	report := &model.JudgeReport{SubmissionID: "s4", Verdict: model.VerdictAccepted, Passed: 1, Total: 1}
	h := newHarness(report, nil)

	err := h.consumer.HandleMessage(context.Background(), judgeMessage(t, model.JudgeMessage{
		SubmissionID: "s4",
		ProblemID:    42,
		UserID:       9,
		Language:     "cpp",
		SourceKey:    "src/s1.cpp",
	}))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if h.judger.lastReq.Source != "int main(){}" {
		t.Fatalf("source not fetched from storage: %q", h.judger.lastReq.Source)
	}
}

func TestHandleMessageMalformedDropped(t *testing.T) {
	h := newHarness(nil, nil)
	if err := h.consumer.HandleMessage(context.Background(), mq.NewMessage([]byte("{not json"))); err != nil {
		t.Fatalf("malformed messages must be acknowledged, got %v", err)
	}
	if len(h.statuses.saved) != 0 || h.stats.submissions != 0 {
		t.Fatalf("malformed message must not produce side effects")
	}
}

func TestHandleMessagePermanentFailure(t *testing.T) {
	h := newHarness(nil, appErr.New(appErr.LanguageNotSupported))

	err := h.consumer.HandleMessage(context.Background(), judgeMessage(t, model.JudgeMessage{
		SubmissionID: "s5",
		ProblemID:    42,
		UserID:       9,
		Language:     "cobol",
		Source:       "x",
	}))
	if err != nil {
		t.Fatalf("permanent failures must be acknowledged, got %v", err)
	}
	last := h.statuses.saved[len(h.statuses.saved)-1]
	if last.State != model.StatusFailed || last.Error == "" {
		t.Fatalf("expected failed status with error, got %+v", last)
	}
	if h.stats.submissions != 0 {
		t.Fatalf("failed judge must not count as a submission")
	}
}

func TestHandleMessageTransientFailureRetries(t *testing.T) {
	h := newHarness(nil, appErr.New(appErr.DatabaseError))

	err := h.consumer.HandleMessage(context.Background(), judgeMessage(t, model.JudgeMessage{
		SubmissionID: "s6",
		ProblemID:    42,
		UserID:       9,
		Language:     "cpp",
		Source:       "x",
	}))
	if err == nil {
		t.Fatalf("transient failures must be returned for redelivery")
	}
}
