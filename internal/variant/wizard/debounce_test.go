package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerKeepsLastTask(t *testing.T) {
	timers := &manualTimers{}
	d := newDebouncer(DefaultRegenerateDelay, timers.AfterFunc)
	var ran []int

	for i := 1; i <= 3; i++ {
		i := i
		d.Schedule(func() { ran = append(ran, i) })
	}

	assert.True(t, d.Pending())
	assert.Equal(t, 1, timers.Active())
	assert.Equal(t, 1, timers.FireAll())
	assert.Equal(t, []int{3}, ran)
	assert.False(t, d.Pending())
}

func TestDebouncerSupersededTaskDoesNotRun(t *testing.T) {
	timers := &manualTimers{}
	d := newDebouncer(DefaultRegenerateDelay, timers.AfterFunc)
	ran := 0

	d.Schedule(func() { ran++ })
	first := timers.timers[0]
	d.Schedule(func() { ran += 10 })

	// A timer that fired just as it was being replaced.
	first.f()
	assert.Equal(t, 0, ran)

	timers.FireAll()
	assert.Equal(t, 10, ran)
}

func TestDebouncerCancel(t *testing.T) {
	timers := &manualTimers{}
	d := newDebouncer(DefaultRegenerateDelay, timers.AfterFunc)
	ran := false

	d.Schedule(func() { ran = true })
	first := timers.timers[0]
	d.Cancel()
	d.Cancel()

	assert.False(t, d.Pending())
	assert.Equal(t, 0, timers.FireAll())
	first.f()
	assert.False(t, ran)
}
