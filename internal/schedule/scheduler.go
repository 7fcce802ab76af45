// Package schedule provides cancellable delayed tasks.
//
// The debounce timer of the scan controller and the expiry of highlight
// markers are both modelled as scheduled tasks: Schedule returns a Token and
// Cancel(token) guarantees the task will not run if it has not started yet.
// TimerScheduler runs tasks on real timers; ManualScheduler runs them when a
// test advances its clock.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Token identifies a scheduled task. The zero Token is never issued.
type Token uint64

// Scheduler schedules cancellable tasks.
type Scheduler interface {
	// Schedule arranges for fn to run once after d.
	Schedule(d time.Duration, fn func()) Token

	// Cancel stops a pending task. It reports whether the task was still
	// pending; after a true return fn is guaranteed not to run.
	Cancel(tok Token) bool
}

// TimerScheduler runs tasks with time.AfterFunc.
type TimerScheduler struct {
	mu     sync.Mutex
	next   Token
	timers map[Token]*time.Timer
}

// NewTimerScheduler creates a scheduler backed by real timers.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		timers: make(map[Token]*time.Timer),
	}
}

// Schedule implements Scheduler.
func (s *TimerScheduler) Schedule(d time.Duration, fn func()) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	tok := s.next
	s.timers[tok] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, pending := s.timers[tok]
		delete(s.timers, tok)
		s.mu.Unlock()

		if pending {
			fn()
		}
	})
	return tok
}

// Cancel implements Scheduler.
func (s *TimerScheduler) Cancel(tok Token) bool {
	s.mu.Lock()
	t, ok := s.timers[tok]
	delete(s.timers, tok)
	s.mu.Unlock()

	if ok {
		t.Stop()
	}
	return ok
}

// Pending returns the number of tasks that have not fired or been cancelled.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler is a deterministic Scheduler whose clock only moves when
// Advance is called. Tasks run on the goroutine calling Advance.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	next  Token
	tasks map[Token]*manualTask
}

type manualTask struct {
	tok Token
	at  time.Duration
	fn  func()
}

// NewManualScheduler creates a ManualScheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		tasks: make(map[Token]*manualTask),
	}
}

// Schedule implements Scheduler.
func (s *ManualScheduler) Schedule(d time.Duration, fn func()) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.tasks[s.next] = &manualTask{tok: s.next, at: s.now + d, fn: fn}
	return s.next
}

// Cancel implements Scheduler.
func (s *ManualScheduler) Cancel(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tasks[tok]
	delete(s.tasks, tok)
	return ok
}

// Advance moves the clock forward by d, running every task that falls due
// in order of due time, then scheduling order. Tasks scheduled by a running
// task are honoured if they fall due within the same window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		task := s.nextDue(target)
		if task == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		delete(s.tasks, task.tok)
		s.now = task.at
		s.mu.Unlock()

		task.fn()
	}
}

// nextDue returns the earliest task due at or before target. Callers hold mu.
func (s *ManualScheduler) nextDue(target time.Duration) *manualTask {
	due := make([]*manualTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.at <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].tok < due[j].tok
	})
	return due[0]
}

// Pending returns the number of tasks not yet run or cancelled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Now returns the elapsed virtual time.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}
