package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualFiresInDueOrder(t *testing.T) {
	m := NewManual()

	var fired []string
	m.Schedule(2*time.Second, func() { fired = append(fired, "second") })
	m.Schedule(1*time.Second, func() { fired = append(fired, "first") })
	m.Schedule(3*time.Second, func() { fired = append(fired, "third") })

	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"first", "second"}, fired)
	assert.Equal(t, 1, m.Pending())

	m.Advance(time.Second)
	assert.Equal(t, []string{"first", "second", "third"}, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManualCancelBeforeFire(t *testing.T) {
	m := NewManual()

	fired := false
	cancel := m.Schedule(time.Second, func() { fired = true })
	cancel()
	cancel()

	m.Advance(time.Minute)
	assert.False(t, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManualFollowUpInsideWindow(t *testing.T) {
	m := NewManual()

	var fired []string
	m.Schedule(time.Second, func() {
		fired = append(fired, "outer")
		m.Schedule(time.Second, func() { fired = append(fired, "inner") })
	})

	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"outer", "inner"}, fired,
		"a follow-up landing inside the advanced window fires in the same call")
}

func TestManualFollowUpRelativeToFireTime(t *testing.T) {
	m := NewManual()

	var fired []string
	m.Schedule(time.Second, func() {
		fired = append(fired, "outer")
		m.Schedule(2*time.Second, func() { fired = append(fired, "inner") })
	})

	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"outer"}, fired,
		"the follow-up is due a second past the window, measured from the outer fire")
	assert.Equal(t, 1, m.Pending())

	m.Advance(time.Second)
	assert.Equal(t, []string{"outer", "inner"}, fired)
}

func TestRealSchedulerFiresAndCancels(t *testing.T) {
	s := New()

	fired := make(chan struct{})
	s.Schedule(5*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("scheduled function never fired")
	}

	cancelled := make(chan struct{})
	cancel := s.Schedule(20*time.Millisecond, func() { close(cancelled) })
	cancel()
	select {
	case <-cancelled:
		t.Fatal("cancelled function fired")
	case <-time.After(60 * time.Millisecond):
	}
}
