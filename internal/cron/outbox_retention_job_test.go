package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/farmlink/farmlink-backend/pkg/db/dbtest"
	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	"github.com/farmlink/farmlink-backend/pkg/logger"
	"github.com/farmlink/farmlink-backend/pkg/outbox"
)

func TestOutboxRetentionJobUsesRetentionWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.True(t, repo.publishedCutoff.Equal(now.Add(-defaultOutboxRetention)))
	require.True(t, repo.exhaustedCutoff.Equal(now.Add(-defaultOutboxRetention)))
	require.Equal(t, defaultOutboxMaxAttempts, repo.maxAttempts)
}

func TestOutboxRetentionJobRunsBothSweepsOnError(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{
		publishedErr: errors.New("published boom"),
		exhaustedErr: errors.New("exhausted boom"),
	}
	job := newOutboxRetentionJob(t, repo)

	err := job.Run(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(errors.Unwrap(err)), 2)
	require.False(t, repo.exhaustedCutoff.IsZero())
}

func TestOutboxRetentionJobAgainstDatabase(t *testing.T) {
	conn := dbtest.New(t)
	repo := outbox.NewRepository(conn)
	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	rows := []models.OutboxEvent{
		{PublishedAt: &old, CreatedAt: old},
		{CreatedAt: old, AttemptCount: defaultOutboxMaxAttempts},
		{CreatedAt: old, AttemptCount: 1},
	}
	for _, row := range rows {
		row.EventType = enums.EventOrderPlaced
		row.AggregateType = enums.AggregateOrder
		row.AggregateID = uuid.New()
		row.Payload = []byte(`{}`)
		require.NoError(t, repo.Insert(conn, row))
	}

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), Repository: repo})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, 1, remaining[0].AttemptCount)
}

func TestNewOutboxRetentionJobValidatesDeps(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Repository: &fakeOutboxRetentionRepo{}})
	require.ErrorContains(t, err, "logger required")
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop()})
	require.ErrorContains(t, err, "outbox repository required")
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		Repository: repo,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*outboxRetentionJob)
	require.True(t, ok)
	return job
}

type fakeOutboxRetentionRepo struct {
	publishedCutoff time.Time
	exhaustedCutoff time.Time
	maxAttempts     int
	publishedErr    error
	exhaustedErr    error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.publishedCutoff = cutoff
	return 3, f.publishedErr
}

func (f *fakeOutboxRetentionRepo) DeleteExhaustedBefore(_ context.Context, cutoff time.Time, maxAttempts int) (int64, error) {
	f.exhaustedCutoff = cutoff
	f.maxAttempts = maxAttempts
	return 1, f.exhaustedErr
}
