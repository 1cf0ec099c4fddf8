package service

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"go.uber.org/zap"

	"rebornoj/internal/common/mq"
	"rebornoj/internal/common/storage"
	"rebornoj/internal/judge/model"
	"rebornoj/internal/judge/testcase"
	appErr "rebornoj/pkg/errors"
	"rebornoj/pkg/utils/contextkey"
	"rebornoj/pkg/utils/logger"
)

// Judger runs one submission. Satisfied by JudgeService.
type Judger interface {
	Judge(ctx context.Context, req Request) (*model.JudgeReport, error)
}

// ProblemSource serves limits and pack metadata. Satisfied by
// repository.ProblemRepository.
type ProblemSource interface {
	GetLimits(ctx context.Context, problemID int64) (model.ProblemLimits, error)
	GetPackMeta(ctx context.Context, problemID int64) (testcase.PackMeta, error)
}

// PackProvider materializes a data pack locally. Satisfied by
// testcase.PackCache.
type PackProvider interface {
	Get(ctx context.Context, meta testcase.PackMeta) (string, error)
}

// StatusStore records judge status snapshots. Satisfied by
// repository.StatusRepository.
type StatusStore interface {
	Save(ctx context.Context, status *model.JudgeStatus) error
}

// StatsStore maintains submission counters. Satisfied by
// repository.StatsRepository.
type StatsStore interface {
	RecordSubmission(ctx context.Context, problemID, userID int64) error
	RecordAccepted(ctx context.Context, problemID, userID int64) (bool, error)
}

// RankUpdater applies contest submissions to the scoreboard. Satisfied
// by rank.Engine.
type RankUpdater interface {
	Update(ctx context.Context, contestID, userID, problemID int64, accepted bool, submittedAt time.Time) error
}

// ConsumerConfig wires the consumer's topics and buckets.
type ConsumerConfig struct {
	SubmissionTopic string        `yaml:"submissionTopic"`
	ResultTopic     string        `yaml:"resultTopic"`
	DeadLetterTopic string        `yaml:"deadLetterTopic"`
	ConsumerGroup   string        `yaml:"consumerGroup"`
	Concurrency     int           `yaml:"concurrency"`
	SourceBucket    string        `yaml:"sourceBucket"`
	JudgeTimeout    time.Duration `yaml:"judgeTimeout"`
}

// Consumer pulls submissions off the queue, judges them, and fans the
// results out to status storage, statistics, contest ranks, and the
// result topic.
type Consumer struct {
	cfg      ConsumerConfig
	judger   Judger
	problems ProblemSource
	packs    PackProvider
	statuses StatusStore
	stats    StatsStore
	ranks    RankUpdater
	objects  storage.ObjectStorage
	producer mq.Producer
}

func NewConsumer(cfg ConsumerConfig, judger Judger, problems ProblemSource, packs PackProvider, statuses StatusStore, stats StatsStore, ranks RankUpdater, objects storage.ObjectStorage, producer mq.Producer) *Consumer {
	if cfg.JudgeTimeout <= 0 {
		cfg.JudgeTimeout = 5 * time.Minute
	}
	return &Consumer{
		cfg:      cfg,
		judger:   judger,
		problems: problems,
		packs:    packs,
		statuses: statuses,
		stats:    stats,
		ranks:    ranks,
		objects:  objects,
		producer: producer,
	}
}

// Register subscribes the consumer to the submission topic.
func (c *Consumer) Register(ctx context.Context, queue mq.Consumer) error {
	return queue.Subscribe(ctx, c.cfg.SubmissionTopic, c.HandleMessage, &mq.SubscribeOptions{
		ConsumerGroup:   c.cfg.ConsumerGroup,
		Concurrency:     c.cfg.Concurrency,
		DeadLetterTopic: c.cfg.DeadLetterTopic,
	})
}

// HandleMessage judges one queued submission. A non-nil return asks the
// queue to redeliver; malformed or permanently unjudgeable messages are
// recorded as failed and acknowledged so they do not loop forever.
func (c *Consumer) HandleMessage(ctx context.Context, message *mq.Message) error {
	var msg model.JudgeMessage
	if err := json.Unmarshal(message.Body, &msg); err != nil {
		logger.Error(ctx, "drop malformed judge message", zap.Error(err))
		return nil
	}
	if msg.SubmissionID == "" {
		logger.Error(ctx, "drop judge message without submission id")
		return nil
	}

	ctx = context.WithValue(ctx, contextkey.SubmissionID, msg.SubmissionID)
	ctx = context.WithValue(ctx, contextkey.UserID, msg.UserID)
	ctx, cancel := context.WithTimeout(ctx, c.cfg.JudgeTimeout)
	defer cancel()

	c.saveStatus(ctx, &model.JudgeStatus{SubmissionID: msg.SubmissionID, State: model.StatusRunning})

	report, err := c.judge(ctx, &msg)
	if err != nil {
		if permanent(err) {
			c.finishFailed(ctx, &msg, err)
			return nil
		}
		logger.Error(ctx, "judge attempt failed, will retry", zap.Error(err))
		return err
	}

	c.recordOutcome(ctx, &msg, report)

	status := &model.JudgeStatus{
		SubmissionID: msg.SubmissionID,
		State:        model.StatusFinished,
		Report:       report,
	}
	c.saveStatus(ctx, status)
	c.publishResult(ctx, status)
	logger.Info(ctx, "submission judged",
		zap.String("verdict", string(report.Verdict)),
		zap.Int("passed", report.Passed),
		zap.Int("total", report.Total))
	return nil
}

func (c *Consumer) judge(ctx context.Context, msg *model.JudgeMessage) (*model.JudgeReport, error) {
	source := msg.Source
	if source == "" && msg.SourceKey != "" {
		fetched, err := c.fetchSource(ctx, msg.SourceKey)
		if err != nil {
			return nil, err
		}
		source = fetched
	}

	limits, err := c.problems.GetLimits(ctx, msg.ProblemID)
	if err != nil {
		return nil, err
	}
	packMeta, err := c.problems.GetPackMeta(ctx, msg.ProblemID)
	if err != nil {
		return nil, err
	}
	problemDir, err := c.packs.Get(ctx, packMeta)
	if err != nil {
		return nil, err
	}

	return c.judger.Judge(ctx, Request{
		SubmissionID: msg.SubmissionID,
		Language:     msg.Language,
		Source:       source,
		ProblemDir:   problemDir,
		Limits:       limits,
	})
}

// recordOutcome updates statistics and contest ranks. Failures here are
// logged but do not fail the message: the verdict is already final and
// a redelivery would double-count.
func (c *Consumer) recordOutcome(ctx context.Context, msg *model.JudgeMessage, report *model.JudgeReport) {
	if msg.UserID <= 0 || msg.ProblemID <= 0 {
		return
	}
	if err := c.stats.RecordSubmission(ctx, msg.ProblemID, msg.UserID); err != nil {
		logger.Error(ctx, "record submission stats failed", zap.Error(err))
	}
	accepted := report.Verdict == model.VerdictAccepted
	if accepted {
		firstBlood, err := c.stats.RecordAccepted(ctx, msg.ProblemID, msg.UserID)
		if err != nil {
			logger.Error(ctx, "record accepted stats failed", zap.Error(err))
		} else if firstBlood {
			logger.Info(ctx, "first blood", zap.Int64("problem_id", msg.ProblemID))
		}
	}
	if msg.ContestID > 0 {
		submittedAt := msg.SubmittedAt
		if submittedAt.IsZero() {
			submittedAt = time.Now()
		}
		if err := c.ranks.Update(ctx, msg.ContestID, msg.UserID, msg.ProblemID, accepted, submittedAt); err != nil {
			logger.Error(ctx, "contest rank update failed", zap.Error(err))
		}
	}
}

func (c *Consumer) fetchSource(ctx context.Context, key string) (string, error) {
	reader, err := c.objects.GetObject(ctx, c.cfg.SourceBucket, key)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeSystemError, "fetch source failed")
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeSystemError, "read source failed")
	}
	return string(data), nil
}

func (c *Consumer) finishFailed(ctx context.Context, msg *model.JudgeMessage, cause error) {
	logger.Error(ctx, "submission unjudgeable", zap.Error(cause))
	c.saveStatus(ctx, &model.JudgeStatus{
		SubmissionID: msg.SubmissionID,
		State:        model.StatusFailed,
		Error:        cause.Error(),
	})
}

func (c *Consumer) saveStatus(ctx context.Context, status *model.JudgeStatus) {
	if err := c.statuses.Save(ctx, status); err != nil {
		logger.Error(ctx, "save judge status failed", zap.Error(err))
	}
}

func (c *Consumer) publishResult(ctx context.Context, status *model.JudgeStatus) {
	if c.producer == nil || c.cfg.ResultTopic == "" {
		return
	}
	body, err := json.Marshal(status)
	if err != nil {
		return
	}
	event := mq.NewMessage(body)
	event.ID = status.SubmissionID
	if err := c.producer.Publish(ctx, c.cfg.ResultTopic, event); err != nil {
		logger.Error(ctx, "publish judge result failed", zap.Error(err))
	}
}

// permanent reports whether an error can never succeed on redelivery.
func permanent(err error) bool {
	switch appErr.GetCode(err) {
	case appErr.LanguageNotSupported,
		appErr.ProblemNotFound,
		appErr.TestCaseNotFound,
		appErr.TestCaseInvalid,
		appErr.ValidationFailed,
		appErr.RequiredFieldEmpty:
		return true
	}
	return false
}
