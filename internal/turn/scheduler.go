package turn

import (
	"log"
	"sync"
	"sync/atomic"
)

// Runner executes the translate/synthesize/play cycle for one turn. It
// returns an error when the turn failed; either way the turn is finished
// once the runner returns.
type Runner func(*Turn) error

// Scheduler serializes turns through a single active slot. A submission
// while the slot is occupied is rejected outright, never queued: new speech
// arriving mid-translation is dropped so that translated playback is never
// interleaved.
type Scheduler struct {
	active   atomic.Bool
	runner   Runner
	wg       sync.WaitGroup
	rejected atomic.Int64
	done     atomic.Int64
	failed   atomic.Int64
}

// NewScheduler creates a scheduler that executes accepted turns on runner.
func NewScheduler(runner Runner) *Scheduler {
	return &Scheduler{runner: runner}
}

// Submit offers a turn to the active slot. It returns true if the turn was
// accepted; the cycle then runs on its own goroutine and the slot is cleared
// when it completes or fails. A false return means the slot was occupied and
// the turn was dropped.
func (s *Scheduler) Submit(t *Turn) bool {
	if !s.active.CompareAndSwap(false, true) {
		s.rejected.Add(1)
		log.Printf("Scheduler: turn %s rejected, translation already in flight", t.ID)
		return false
	}

	t.Status = StatusActive
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.active.Store(false)

		if err := s.runner(t); err != nil {
			t.Status = StatusFailed
			s.failed.Add(1)
			log.Printf("Scheduler: turn %s failed: %v", t.ID, err)
			return
		}
		t.Status = StatusCompleted
		s.done.Add(1)
	}()
	return true
}

// Busy reports whether a turn currently occupies the active slot.
func (s *Scheduler) Busy() bool {
	return s.active.Load()
}

// Wait blocks until the in-flight turn, if any, has finished. Used during
// teardown: the active turn is allowed to run to completion, never cancelled.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Counts returns completed, failed and rejected turn totals.
func (s *Scheduler) Counts() (completed, failed, rejected int64) {
	return s.done.Load(), s.failed.Load(), s.rejected.Load()
}
