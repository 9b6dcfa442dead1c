// Package cache memoizes aggregated statistics in two independent
// time-boxed slots, one per statistic kind. All state lives in process
// memory and dies with it.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edwingoed13/c3pr3-2025-2/internal/models"
)

// Kind identifies one of the two cache slots.
type Kind string

const (
	// Students is the enrolled-student statistics slot.
	Students Kind = "students"
	// Seats is the available-seat statistics slot.
	Seats Kind = "seats"
)

// SessionInvalidator is the session-clearing hook ClearAll calls so a cache
// flush also drops the portal session.
type SessionInvalidator interface {
	Invalidate()
}

// entry is one cached payload with its storage time. An entry is valid
// while now - storedAt stays inside the freshness window.
type entry struct {
	payload  *models.AggregatedStats
	storedAt time.Time
}

// ComputeFunc produces a fresh statistics payload on a cache miss.
type ComputeFunc func(ctx context.Context) (*models.AggregatedStats, error)

// Store holds the two statistics slots. Both share a single freshness
// window but expire independently.
type Store struct {
	mu       sync.Mutex
	duration time.Duration
	slots    map[Kind]entry
	sessions SessionInvalidator
	logger   *logrus.Logger
}

// NewStore creates a Store with the given freshness window.
func NewStore(duration time.Duration, sessions SessionInvalidator, logger *logrus.Logger) *Store {
	return &Store{
		duration: duration,
		slots:    make(map[Kind]entry),
		sessions: sessions,
		logger:   logger,
	}
}

// GetOrCompute returns the slot's payload while it is fresh; otherwise it
// invokes compute, stores the result, and returns it. On compute failure
// the slot is left cleared rather than holding partial data, and the
// failure propagates. The hit result reports whether the payload came from
// the cache.
func (s *Store) GetOrCompute(ctx context.Context, kind Kind, compute ComputeFunc) (stats *models.AggregatedStats, hit bool, err error) {
	s.mu.Lock()
	if e, ok := s.slots[kind]; ok && time.Since(e.storedAt) < s.duration {
		s.mu.Unlock()
		s.logger.WithField("kind", string(kind)).Info("Serving statistics from cache")
		return e.payload, true, nil
	}
	s.mu.Unlock()

	s.logger.WithField("kind", string(kind)).Info("Cache miss, computing fresh statistics")

	payload, err := compute(ctx)
	if err != nil {
		// Never keep a stale or partial entry behind a failed refresh.
		s.clear(kind)
		return nil, false, err
	}

	s.mu.Lock()
	s.slots[kind] = entry{payload: payload, storedAt: time.Now()}
	s.mu.Unlock()

	return payload, false, nil
}

// clear empties a single slot.
func (s *Store) clear(kind Kind) {
	s.mu.Lock()
	delete(s.slots, kind)
	s.mu.Unlock()
}

// ClearAll empties both slots and invalidates the portal session in the
// same operation. It is idempotent.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.slots = make(map[Kind]entry)
	s.mu.Unlock()

	s.sessions.Invalidate()
	s.logger.Info("Cache and session cleared")
}

// Snapshot reports whether the slot currently holds a fresh entry and when
// it was stored. It never mutates state.
func (s *Store) Snapshot(kind Kind) (valid bool, storedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.slots[kind]
	if !ok {
		return false, time.Time{}
	}
	return time.Since(e.storedAt) < s.duration, e.storedAt
}
