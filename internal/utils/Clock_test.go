package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock_Advance(t *testing.T) {
	t.Run("should fire due timers in deadline order", func(t *testing.T) {
		// given
		clock := &MockClock{FixedNow: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
		var fired []string
		clock.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "late") })
		clock.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early") })
		clock.AfterFunc(time.Second, func() { fired = append(fired, "never") })

		// when
		clock.Advance(500 * time.Millisecond)

		// then
		assert.Equal(t, []string{"early", "late"}, fired)
		assert.Equal(t, 1, clock.PendingTimers())
	})

	t.Run("should not fire stopped timers", func(t *testing.T) {
		// given
		clock := &MockClock{}
		fired := false
		timer := clock.AfterFunc(time.Millisecond, func() { fired = true })

		// when
		stopped := timer.Stop()
		clock.Advance(time.Second)

		// then
		assert.True(t, stopped)
		assert.False(t, fired)
		assert.False(t, timer.Stop())
	})
}
