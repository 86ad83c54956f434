// Package workers implements the bounded-concurrency gate used by the
// background disk sweeper and any fan-out directory walk (spec.md §4.H).
package workers

import "context"

// Semaphore is a counting semaphore of abstract job slots.
type Semaphore struct {
	slots chan struct{}
	limit int
}

// New returns a Semaphore with limit available slots.
func New(limit int) *Semaphore {
	if limit <= 0 {
		limit = 1
	}
	s := &Semaphore{slots: make(chan struct{}, limit), limit: limit}
	for i := 0; i < limit; i++ {
		s.slots <- struct{}{}
	}
	return s
}

// Take blocks until a slot is available or ctx is done.
func (s *Semaphore) Take(ctx context.Context) error {
	select {
	case <-s.slots:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Give returns a slot, waking one waiter.
func (s *Semaphore) Give() {
	select {
	case s.slots <- struct{}{}:
	default:
		// Give without a matching Take is a caller bug; drop rather
		// than block or panic.
	}
}

// Wait blocks until every slot is available, i.e. no job is outstanding.
func (s *Semaphore) Wait(ctx context.Context) error {
	taken := make([]struct{}, 0, s.limit)
	defer func() {
		for range taken {
			s.Give()
		}
	}()
	for i := 0; i < s.limit; i++ {
		if err := s.Take(ctx); err != nil {
			return err
		}
		taken = append(taken, struct{}{})
	}
	return nil
}

// Limit returns the configured number of slots.
func (s *Semaphore) Limit() int {
	return s.limit
}
