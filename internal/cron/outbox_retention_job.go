package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/farmlink/farmlink-backend/pkg/logger"
)

const (
	defaultOutboxRetention   = 30 * 24 * time.Hour
	defaultOutboxMaxAttempts = 10
)

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	Repository  outboxRetentionRepo
	Retention   time.Duration
	MaxAttempts int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExhaustedBefore(ctx context.Context, cutoff time.Time, maxAttempts int) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultOutboxMaxAttempts
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		repo:        params.Repository,
		retention:   retention,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	repo        outboxRetentionRepo
	retention   time.Duration
	maxAttempts int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run sweeps published rows and exhausted rows independently; one failing
// sweep does not stop the other.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	published, pubErr := j.repo.DeletePublishedBefore(ctx, cutoff)
	if pubErr != nil {
		pubErr = fmt.Errorf("delete published: %w", pubErr)
	}
	exhausted, exhErr := j.repo.DeleteExhaustedBefore(ctx, cutoff, j.maxAttempts)
	if exhErr != nil {
		exhErr = fmt.Errorf("delete exhausted: %w", exhErr)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention":      j.retention.String(),
		"published_rows": published,
		"exhausted_rows": exhausted,
	})
	if err := multierr.Combine(pubErr, exhErr); err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
