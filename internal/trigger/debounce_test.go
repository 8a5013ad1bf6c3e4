package trigger_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscope/queryscope/internal/trigger"
)

// counter is a goroutine-safe call counter for timer callbacks.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.n++
}

func (c *counter) value() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.n
}

func TestDebouncer_RapidSchedulesCollapseToOneFire(t *testing.T) {
	t.Parallel()

	deb := trigger.NewDebouncer()
	fired := &counter{}

	for range 3 {
		deb.Schedule("doc", 40*time.Millisecond, fired.inc)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return fired.value() == 1 }, waitFor, tick)
	assert.False(t, deb.Pending("doc"))

	// No second fire from the superseded timers.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, fired.value())
}

func TestDebouncer_CancelDiscardsPendingTimer(t *testing.T) {
	t.Parallel()

	deb := trigger.NewDebouncer()
	fired := &counter{}

	deb.Schedule("doc", 30*time.Millisecond, fired.inc)
	require.True(t, deb.Pending("doc"))

	deb.Cancel("doc")
	assert.False(t, deb.Pending("doc"))

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, fired.value())
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	deb := trigger.NewDebouncer()
	a := &counter{}
	b := &counter{}

	deb.Schedule("a", 20*time.Millisecond, a.inc)
	deb.Schedule("b", 20*time.Millisecond, b.inc)
	deb.Cancel("a")

	require.Eventually(t, func() bool { return b.value() == 1 }, waitFor, tick)
	assert.Zero(t, a.value())
}

func TestDebouncer_ScheduleAfterFireArmsAgain(t *testing.T) {
	t.Parallel()

	deb := trigger.NewDebouncer()
	fired := &counter{}

	deb.Schedule("doc", 10*time.Millisecond, fired.inc)
	require.Eventually(t, func() bool { return fired.value() == 1 }, waitFor, tick)

	deb.Schedule("doc", 10*time.Millisecond, fired.inc)
	require.Eventually(t, func() bool { return fired.value() == 2 }, waitFor, tick)
}
