package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_Publish(t *testing.T) {
	t.Run("should run subscribers in subscription order", func(t *testing.T) {
		// given
		bus := NewEventBus()
		var calls []int
		for i := 1; i <= 5; i++ {
			i := i
			bus.Subscribe("test", func(e Event) error {
				calls = append(calls, i)
				return nil
			})
		}

		// when
		err := bus.Publish(NewEvent(context.Background(), "test", nil))

		// then
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
	})

	t.Run("should keep going after failing and panicking subscribers", func(t *testing.T) {
		// given
		bus := NewEventBus()
		failure := errors.New("boom")
		reached := false
		bus.Subscribe("test", func(e Event) error { return failure })
		bus.Subscribe("test", func(e Event) error { panic("oops") })
		bus.Subscribe("test", func(e Event) error {
			reached = true
			return nil
		})

		// when
		err := bus.Publish(NewEvent(context.Background(), "test", nil))

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, failure)
		assert.Contains(t, err.Error(), "2 handler(s) failed")
		assert.True(t, reached)
	})

	t.Run("should not publish on a cancelled context", func(t *testing.T) {
		// given
		bus := NewEventBus()
		called := false
		bus.Subscribe("test", func(e Event) error {
			called = true
			return nil
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// when
		err := bus.Publish(NewEvent(ctx, "test", nil))

		// then
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("should stop calling unsubscribed handlers", func(t *testing.T) {
		// given
		bus := NewEventBus()
		count := 0
		unsubscribe := bus.Subscribe("test", func(e Event) error {
			count++
			return nil
		})

		// when
		_ = bus.Publish(NewEvent(context.Background(), "test", nil))
		unsubscribe()
		_ = bus.Publish(NewEvent(context.Background(), "test", nil))

		// then
		assert.Equal(t, 1, count)
	})
}

func TestSubscribeTyped(t *testing.T) {
	// given
	bus := NewEventBus()
	var received []EntitiesChanged
	SubscribeTyped(bus, EntitiesChangedType, func(e EventT[EntitiesChanged]) error {
		received = append(received, e.Data)
		return nil
	})

	// when
	err := bus.Publish(NewEvent(context.Background(), EntitiesChangedType, EntitiesChanged{Owner: "u1", Kind: "assets"}))
	require.NoError(t, err)
	err = bus.Publish(NewEvent(context.Background(), EntitiesChangedType, "not a change"))
	require.NoError(t, err)

	// then
	require.Len(t, received, 1)
	assert.Equal(t, "u1", received[0].Owner)
	assert.Equal(t, "assets", received[0].Kind)
}
