/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratecontroltest

import (
	"sort"
	"sync"
	"time"
)

type manualTimer struct {
	at  time.Time
	seq uint64
	fn  func()
}

// ManualScheduler is a scheduler and a clock in one, where the time moves only when Advance is called.
// It satisfies both ratecontrol.Scheduler and ratecontrol.Clock interfaces.
// Callbacks run synchronously inside Advance, in the order of their due time (and arming order for equal times).
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

// NewManualScheduler creates a new ManualScheduler with the clock set to start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now returns the current manual time.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule arms fn to run when the manual time reaches Now() + delay.
func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) (stop func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTimer{at: s.now.Add(delay), seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.removeTimer(t)
	}
}

// Advance moves the clock forward by d and runs all callbacks that became due.
// Callbacks armed by other callbacks are run as well if they are due before the new time.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.removeTimer(next)
		s.now = next.at
		s.mu.Unlock()

		next.fn()
	}
}

// AdvanceTo moves the clock forward to the given time (see Advance).
// It does nothing if the time is not after the current one.
func (s *ManualScheduler) AdvanceTo(t time.Time) {
	if d := t.Sub(s.Now()); d > 0 {
		s.Advance(d)
	}
}

// PendingTimers returns the number of armed callbacks.
func (s *ManualScheduler) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *ManualScheduler) nextDue(target time.Time) *manualTimer {
	if len(s.timers) == 0 {
		return nil
	}
	sort.Slice(s.timers, func(i, j int) bool {
		if s.timers[i].at.Equal(s.timers[j].at) {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].at.Before(s.timers[j].at)
	})
	if s.timers[0].at.After(target) {
		return nil
	}
	return s.timers[0]
}

func (s *ManualScheduler) removeTimer(t *manualTimer) bool {
	for i, armed := range s.timers {
		if armed == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return true
		}
	}
	return false
}
