package wizard

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerRunsLastOnly(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls, last atomic.Int32

	for i := int32(1); i <= 5; i++ {
		n := i
		d.Trigger(func() {
			calls.Add(1)
			last.Store(n)
		})
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(5), last.Load())
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestDebouncerDefaultDelay(t *testing.T) {
	assert.Equal(t, DefaultSearchDebounce, NewDebouncer(0).delay)
	assert.Equal(t, 300*time.Millisecond, DefaultSearchDebounce)
}
