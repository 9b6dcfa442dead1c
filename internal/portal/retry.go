package portal

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edwingoed13/c3pr3-2025-2/internal/models"
)

// ListOperation is one attemptable fetch against the portal.
type ListOperation func(ctx context.Context) ([]models.Record, error)

// Retrier wraps portal fetches in a bounded retry loop. Auth failures force
// a full session invalidation before the next attempt; every other failure
// kind is retried without touching the session. The loop is a small
// attempt/backoff state machine rather than nested error recovery.
type Retrier struct {
	sessions *SessionManager
	attempts int
	backoff  time.Duration
	logger   *logrus.Logger
}

// NewRetrier creates a Retrier with the given budget and backoff.
func NewRetrier(sessions *SessionManager, attempts int, backoff time.Duration, logger *logrus.Logger) *Retrier {
	return &Retrier{
		sessions: sessions,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger,
	}
}

// Do runs op under the retry budget. The name only labels log lines.
func (r *Retrier) Do(ctx context.Context, name string, op ListOperation) ([]models.Record, error) {
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		r.logger.WithFields(logrus.Fields{
			"operation": name,
			"attempt":   attempt,
		}).Info("Fetching portal data")

		records, err := op(ctx)
		if err == nil {
			return records, nil
		}
		lastErr = err

		if models.IsAuthExpired(err) {
			r.logger.WithFields(logrus.Fields{
				"operation": name,
				"attempt":   attempt,
			}).Warn("Authentication failure, will re-login before retrying")

			if attempt == r.attempts {
				r.logger.WithField("operation", name).Error("Retry budget spent on authentication failures")
				return nil, models.NewAuthExhausted(r.attempts)
			}

			// Full session clear: the next attempt starts from a fresh login.
			r.sessions.Invalidate()
		} else {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"operation": name,
				"attempt":   attempt,
			}).Warn("Fetch attempt failed")

			if attempt == r.attempts {
				r.logger.WithField("operation", name).Error("Retry budget spent")
				return nil, models.NewRetriesExhausted(r.attempts, err)
			}
		}

		if err := r.wait(ctx); err != nil {
			return nil, err
		}
	}

	// Unreachable with attempts >= 1; kept for safety.
	return nil, models.NewRetriesExhausted(r.attempts, lastErr)
}

// wait sleeps for the backoff duration or until the context is done.
func (r *Retrier) wait(ctx context.Context) error {
	timer := time.NewTimer(r.backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
