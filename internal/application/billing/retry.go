package billing

import (
	"context"
	"errors"
	"time"

	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
)

const (
	conflictRetryAttempts = 3
	conflictRetryBackoff  = 25 * time.Millisecond
)

// withConflictRetry runs fn, retrying on optimistic-lock conflicts with
// bounded backoff before surfacing the conflict to the caller. fn must
// re-read the aggregate on each attempt; the helper only drives the loop.
func withConflictRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	backoff := conflictRetryBackoff

	for attempt := 0; attempt < conflictRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err = fn(ctx)
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
	}

	return err
}
