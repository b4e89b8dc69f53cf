package repository

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"container-health/internal/domain"
)

const initialRetryInterval = 100 * time.Millisecond

// InitWithRetry calls store.Init with exponential backoff until it succeeds,
// maxElapsed has passed or ctx is cancelled. The last Init error is returned.
func InitWithRetry(ctx context.Context, store domain.SnapshotStore, maxElapsed time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialRetryInterval
	b.MaxElapsedTime = maxElapsed
	return backoff.Retry(store.Init, backoff.WithContext(b, ctx))
}
