package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/eventpass/eventpass-backend/pkg/logger"
	"gorm.io/gorm"
)

// Published outbox rows are kept for a month so operators can trace
// delivered events; rows still under their attempt budget are never pruned.
const (
	defaultRetentionDays = 30
	defaultMinAttempts   = 5
)

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type outboxRetentionJob struct {
	logg          *logger.Logger
	db            txRunner
	repo          outboxRetentionRepo
	retentionDays int
	minAttempts   int
	now           func() time.Time
}

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxRetentionRepo
	Retention   int
	MinAttempts int
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:          params.Logger,
		db:            params.DB,
		repo:          params.Repository,
		retentionDays: params.Retention,
		minAttempts:   params.MinAttempts,
		now:           time.Now,
	}
	if job.retentionDays <= 0 {
		job.retentionDays = defaultRetentionDays
	}
	if job.minAttempts <= 0 {
		job.minAttempts = defaultMinAttempts
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) cutoff() time.Time {
	return j.now().UTC().AddDate(0, 0, -j.retentionDays)
}

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.cutoff()
	var pruned int64
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		pruned, txErr = j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts)
		return txErr
	}); err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retentionDays,
		"min_attempts":   j.minAttempts,
		"rows_deleted":   pruned,
	})
	j.logg.Info(logCtx, "pruned published outbox rows")
	return nil
}
