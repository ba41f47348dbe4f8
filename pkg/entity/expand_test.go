package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kindType struct {
	Id   string
	Name string
}

func (k kindType) EntityKey() string { return k.Id }

type holding struct {
	Id     int
	KindId string
}

func (h holding) EntityKey() int { return h.Id }

func kindOf(h holding) string { return h.KindId }

func TestExpand(t *testing.T) {
	t.Run("should join entities with their type", func(t *testing.T) {
		// given
		holdings := []holding{{1, "cash"}, {2, "stock"}}
		kinds := []kindType{{"stock", "Stock"}, {"cash", "Cash"}}

		// when
		result := Expand(holdings, kinds, kindOf)

		// then
		require.Len(t, result, 2)
		require.NotNil(t, result[0].Type)
		assert.Equal(t, "Cash", result[0].Type.Name)
		require.NotNil(t, result[1].Type)
		assert.Equal(t, "Stock", result[1].Type.Name)
	})

	t.Run("should leave the type nil for dangling references", func(t *testing.T) {
		// given
		holdings := []holding{{1, "bond"}, {2, ""}}

		// when
		result := Expand(holdings, []kindType{{"cash", "Cash"}}, kindOf)

		// then
		require.Len(t, result, 2)
		assert.Nil(t, result[0].Type)
		assert.Nil(t, result[1].Type)
		assert.Equal(t, 1, result[0].Entity.Id)
	})
}

func TestExpander_Expand(t *testing.T) {
	t.Run("should recompute only when a store changed", func(t *testing.T) {
		// given
		holdings := NewStore[int, holding]("holdings")
		kinds := NewStore[string, kindType]("kinds")
		holdings.Add([]holding{{1, "cash"}})
		expander := NewExpander(holdings, kinds, kindOf)

		// when
		first := expander.Expand()
		_ = expander.Expand()

		// then
		assert.Equal(t, 1, expander.Computations())
		assert.Nil(t, first[0].Type)

		// when types arrive later
		kinds.Add([]kindType{{"cash", "Cash"}})
		second := expander.Expand()

		// then
		assert.Equal(t, 2, expander.Computations())
		require.NotNil(t, second[0].Type)
		assert.Equal(t, "Cash", second[0].Type.Name)

		// when nothing was added
		kinds.Add([]kindType{{"cash", "Cash again"}})
		_ = expander.Expand()

		// then
		assert.Equal(t, 2, expander.Computations())
	})
}
