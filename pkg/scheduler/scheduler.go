// Package scheduler abstracts delayed execution so time-driven behavior can
// run on the wall clock in production and on a hand-advanced clock in tests.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs a function once after a delay. The returned cancel stops
// the run if it has not fired yet; calling it afterwards is a no-op.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (cancel func())
}

type realScheduler struct{}

// New returns a wall-clock scheduler.
func New() Scheduler {
	return realScheduler{}
}

func (realScheduler) Schedule(delay time.Duration, fn func()) func() {
	timer := time.AfterFunc(delay, fn)
	return func() { timer.Stop() }
}

type task struct {
	id  int
	due time.Time
	fn  func()
}

// Manual is a scheduler whose clock only moves when the test advances it.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks map[int]task
}

// NewManual returns a manual scheduler with a fixed starting instant.
func NewManual() *Manual {
	return &Manual{
		now:   time.Unix(1_700_000_000, 0),
		tasks: make(map[int]task),
	}
}

// Schedule registers fn to fire once the clock has advanced past the delay.
func (m *Manual) Schedule(delay time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	id := m.seq
	m.tasks[id] = task{id: id, due: m.now.Add(delay), fn: fn}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.tasks, id)
	}
}

// Advance moves the clock forward and fires every task that has come due, in
// due order. The clock steps to each task's due time before its callback
// runs, so tasks scheduled by a firing task are relative to that instant and
// fire too when they land inside the advanced window. Callbacks run without
// the scheduler lock held.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		next, ok := m.nextDue(target)
		if !ok {
			break
		}
		next.fn()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// nextDue pops the earliest task at or before target and moves the clock to
// its due time.
func (m *Manual) nextDue(target time.Time) (task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	due := make([]task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if !t.due.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return task{}, false
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].id < due[j].id
		}
		return due[i].due.Before(due[j].due)
	})

	next := due[0]
	delete(m.tasks, next.id)
	if next.due.After(m.now) {
		m.now = next.due
	}
	return next, true
}

// Pending reports how many tasks are still armed.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
