package picker

import (
	"testing"
	"time"

	"github.com/moneyboard/moneyboard/internal/utils"
	"github.com/moneyboard/moneyboard/pkg/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func currencies() []option.Option {
	return []option.Option{
		option.Static{K: "1", L: "Euro", SearchTags: []string{"EUR"}},
		option.Static{K: "2", L: "US Dollar", SearchTags: []string{"USD"}, Group: "fiat"},
		option.Static{K: "3", L: "Bitcoin", SearchTags: []string{"BTC"}, Group: "crypto"},
	}
}

func TestDebouncer(t *testing.T) {
	t.Run("should fire once with the last value of a burst", func(t *testing.T) {
		// given
		clock := &utils.MockClock{}
		var fired []string
		d := NewDebouncer(clock, 500*time.Millisecond, func(v string) { fired = append(fired, v) })

		// when
		for i, v := range []string{"e", "eu", "eur"} {
			if i > 0 {
				clock.Advance(100 * time.Millisecond)
			}
			d.Trigger(v)
		}
		clock.Advance(499 * time.Millisecond)

		// then
		assert.Empty(t, fired)
		assert.True(t, d.Pending())

		// when
		clock.Advance(time.Millisecond)

		// then
		assert.Equal(t, []string{"eur"}, fired)
		assert.False(t, d.Pending())
		assert.Equal(t, 0, clock.PendingTimers())
	})

	t.Run("should not fire after Stop", func(t *testing.T) {
		// given
		clock := &utils.MockClock{}
		fired := false
		d := NewDebouncer(clock, time.Second, func(string) { fired = true })
		d.Trigger("x")

		// when
		stopped := d.Stop()
		clock.Advance(2 * time.Second)

		// then
		assert.True(t, stopped)
		assert.False(t, fired)
		assert.False(t, d.Stop())
	})

	t.Run("should default the delay", func(t *testing.T) {
		clock := &utils.MockClock{}
		count := 0
		d := NewDebouncer(clock, 0, func(int) { count++ })

		d.Trigger(1)
		clock.Advance(DefaultDebounce - time.Millisecond)
		assert.Equal(t, 0, count)
		clock.Advance(time.Millisecond)
		assert.Equal(t, 1, count)
	})
}

func TestCombobox_OpenState(t *testing.T) {
	// given
	c := New(Config{Source: currencies, Clock: &utils.MockClock{}})

	// then
	assert.False(t, c.IsOpen())

	// when
	c.Open()
	// then
	assert.True(t, c.IsOpen())

	// when
	c.Dismiss()
	// then
	assert.False(t, c.IsOpen())

	// when
	c.Toggle()
	// then
	assert.True(t, c.IsOpen())

	// when selecting
	require.NoError(t, c.Select("2"))
	// then
	assert.False(t, c.IsOpen())
}

func TestCombobox_Uncontrolled(t *testing.T) {
	t.Run("should track the selection internally", func(t *testing.T) {
		// given
		var changes []string
		c := New(Config{Source: currencies, OnChange: func(o option.Option) {
			changes = append(changes, o.Key())
		}})

		// when
		err := c.Select("3")

		// then
		require.NoError(t, err)
		assert.False(t, c.Controlled())
		assert.Equal(t, "3", c.SelectedKey())
		selected, ok := c.Selected()
		require.True(t, ok)
		assert.Equal(t, "Bitcoin", selected.Label())
		assert.Equal(t, []string{"3"}, changes)
	})

	t.Run("should reject unknown keys", func(t *testing.T) {
		c := New(Config{Source: currencies})

		err := c.Select("42")

		assert.ErrorIs(t, err, ErrUnknownOption)
		assert.Empty(t, c.SelectedKey())
	})

	t.Run("should match the selection by key on rebuilt options", func(t *testing.T) {
		// given
		label := "Euro"
		source := func() []option.Option {
			return []option.Option{option.Static{K: "1", L: label}}
		}
		c := New(Config{Source: source})
		require.NoError(t, c.Select("1"))

		// when
		label = "Euro (renamed)"

		// then
		assert.True(t, c.IsSelected(option.Static{K: "1", L: "anything"}))
		selected, ok := c.Selected()
		require.True(t, ok)
		assert.Equal(t, "Euro (renamed)", selected.Label())
	})

	t.Run("should clear the selection", func(t *testing.T) {
		c := New(Config{Source: currencies})
		require.NoError(t, c.Select("1"))

		c.Clear()

		_, ok := c.Selected()
		assert.False(t, ok)
	})
}

func TestCombobox_Controlled(t *testing.T) {
	// given
	value := "1"
	var reported []option.Option
	c := New(Config{
		Source:   currencies,
		Value:    func() string { return value },
		OnChange: func(o option.Option) { reported = append(reported, o) },
	})

	// when
	err := c.Select("2")

	// then
	require.NoError(t, err)
	assert.True(t, c.Controlled())
	assert.Equal(t, "1", c.SelectedKey(), "controlled value only moves when the owner moves it")
	require.Len(t, reported, 1)
	assert.Equal(t, "2", reported[0].Key())

	// when the owner applies the change
	value = reported[0].Key()

	// then
	assert.Equal(t, "2", c.SelectedKey())
}

func TestCombobox_Type(t *testing.T) {
	t.Run("should filter locally and emit one debounced search", func(t *testing.T) {
		// given
		clock := &utils.MockClock{}
		var searches []string
		c := New(Config{
			Source:   currencies,
			OnSearch: func(q string) { searches = append(searches, q) },
			Debounce: 300 * time.Millisecond,
			Clock:    clock,
		})

		// when
		c.Type("b")
		clock.Advance(100 * time.Millisecond)
		c.Type("bt")

		// then
		assert.True(t, c.IsOpen())
		assert.Equal(t, SearchSearching, c.SearchState())
		assert.Equal(t, []string{"3"}, keys(c.Options()))
		assert.Empty(t, searches)

		// when
		clock.Advance(300 * time.Millisecond)

		// then
		assert.Equal(t, []string{"bt"}, searches)
		assert.Equal(t, SearchIdle, c.SearchState())
	})

	t.Run("should not search after release", func(t *testing.T) {
		clock := &utils.MockClock{}
		searched := false
		c := New(Config{Source: currencies, Clock: clock, OnSearch: func(string) { searched = true }})

		c.Type("eu")
		c.Release()
		clock.Advance(time.Second)

		assert.False(t, searched)
	})
}

func TestCombobox_Fetching(t *testing.T) {
	c := New(Config{Source: currencies})

	c.BeginFetch()
	c.BeginFetch()
	c.EndFetch()
	assert.True(t, c.Fetching())

	c.EndFetch()
	c.EndFetch()
	assert.False(t, c.Fetching())
}

func TestCombobox_View(t *testing.T) {
	// given
	c := New(Config{ID: "asset", Source: currencies, Clock: &utils.MockClock{}})
	require.NoError(t, c.Select("2"))
	c.Type("o")

	// when
	v := c.View()

	// then
	assert.Equal(t, "asset", v.ID)
	assert.True(t, v.Open)
	assert.Equal(t, "o", v.Query)
	assert.Equal(t, "2", v.SelectedKey)
	assert.Equal(t, "US Dollar", v.SelectedLabel)
	require.Len(t, v.Sections, 3)
	assert.Equal(t, []string{"1"}, keys(v.Sections[0].Options))
	assert.Equal(t, "fiat", v.Sections[1].Key)
	assert.Equal(t, "crypto", v.Sections[2].Key)
}
