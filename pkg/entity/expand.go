package entity

import "sync"

// Expanded is an entity joined with the type it references. Type is nil when
// the reference matches no cached type.
type Expanded[E any, T any] struct {
	Entity E
	Type   *T
}

// Expand joins every entity with the type whose key equals ref(entity).
func Expand[E any, TK comparable, T Keyed[TK]](entities []E, types []T, ref func(E) TK) []Expanded[E, T] {
	out := make([]Expanded[E, T], 0, len(entities))
	for _, e := range entities {
		x := Expanded[E, T]{Entity: e}
		want := ref(e)
		for i := range types {
			if types[i].EntityKey() == want {
				t := types[i]
				x.Type = &t
				break
			}
		}
		out = append(out, x)
	}
	return out
}

// Expander memoizes Expand over two stores. The join is recomputed only when
// the snapshot version of either store moved since the previous call.
type Expander[K comparable, E Keyed[K], TK comparable, T Keyed[TK]] struct {
	entities *Store[K, E]
	types    *Store[TK, T]
	ref      func(E) TK

	mu           sync.Mutex
	entitiesVer  uint64
	typesVer     uint64
	computed     bool
	result       []Expanded[E, T]
	computations int
}

func NewExpander[K comparable, E Keyed[K], TK comparable, T Keyed[TK]](entities *Store[K, E], types *Store[TK, T], ref func(E) TK) *Expander[K, E, TK, T] {
	return &Expander[K, E, TK, T]{entities: entities, types: types, ref: ref}
}

// Expand returns the current join. The returned slice is shared between
// callers until the next recomputation and must not be modified.
func (x *Expander[K, E, TK, T]) Expand() []Expanded[E, T] {
	es := x.entities.Snapshot()
	ts := x.types.Snapshot()

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.computed && es.Version == x.entitiesVer && ts.Version == x.typesVer {
		return x.result
	}
	x.result = Expand(es.Items, ts.Items, x.ref)
	x.entitiesVer = es.Version
	x.typesVer = ts.Version
	x.computed = true
	x.computations++
	return x.result
}

// Computations reports how many times the join was actually recomputed.
func (x *Expander[K, E, TK, T]) Computations() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.computations
}
