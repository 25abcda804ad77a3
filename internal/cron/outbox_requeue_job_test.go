package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/pkg/logger"
)

type fakeRequeueRepo struct {
	requeued       int64
	released       int64
	requeueErr     error
	releaseErr     error
	lastMaxRetries int
	lastStaleAge   time.Duration
}

func (f *fakeRequeueRepo) RequeueFailed(ctx context.Context, tx *gorm.DB, maxRetries int) (int64, error) {
	f.lastMaxRetries = maxRetries
	if f.requeueErr != nil {
		return 0, f.requeueErr
	}
	return f.requeued, nil
}

func (f *fakeRequeueRepo) ReleaseStaleProcessing(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.lastStaleAge = olderThan
	if f.releaseErr != nil {
		return 0, f.releaseErr
	}
	return f.released, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestOutboxRequeueJobSweepsFailedAndStale(t *testing.T) {
	repo := &fakeRequeueRepo{requeued: 4, released: 2}
	job := newOutboxRequeueJob(t, repo)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repo.lastMaxRetries != 7 {
		t.Fatalf("expected max attempts 7, got %d", repo.lastMaxRetries)
	}
	if repo.lastStaleAge != 15*time.Minute {
		t.Fatalf("expected stale age 15m, got %s", repo.lastStaleAge)
	}
}

func TestOutboxRequeueJobPropagatesErrors(t *testing.T) {
	repo := &fakeRequeueRepo{releaseErr: errors.New("boom")}
	job := newOutboxRequeueJob(t, repo)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected release error")
	}

	repo = &fakeRequeueRepo{requeueErr: errors.New("boom")}
	job = newOutboxRequeueJob(t, repo)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected requeue error")
	}
}

func newOutboxRequeueJob(t *testing.T, repo *fakeRequeueRepo) Job {
	t.Helper()
	job, err := NewOutboxRequeueJob(OutboxRequeueJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		DB:            stubTxRunner{},
		Repository:    repo,
		MaxAttempts:   7,
		StaleClaimAge: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewOutboxRequeueJob: %v", err)
	}
	return job
}
