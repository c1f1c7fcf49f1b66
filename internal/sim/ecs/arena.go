package ecs

type arena interface {
	grow(n int)
	reset(idx uint32)
}

// Arena is dense storage for one component kind, indexed by entity slot.
// Presence is tracked by the owning store's signature bit.
type Arena[T any] struct {
	store *Store
	bit   uint32
	data  []T
}

func newArena[T any](s *Store, bit uint32) *Arena[T] {
	a := &Arena[T]{store: s, bit: bit}
	s.arenas = append(s.arenas, a)
	return a
}

func (a *Arena[T]) grow(n int) {
	for len(a.data) < n {
		var zero T
		a.data = append(a.data, zero)
	}
}

func (a *Arena[T]) reset(idx uint32) {
	var zero T
	a.data[idx] = zero
}

// Bit is the signature bit for this component.
func (a *Arena[T]) Bit() uint32 { return a.bit }

// Set attaches or overwrites the component.
func (a *Arena[T]) Set(e Entity, v T) {
	if !a.store.Alive(e) {
		return
	}
	a.data[e.Index] = v
	a.store.slots[e.Index].sig.Mark(a.bit)
}

// Get returns a pointer into the arena. The pointer is valid until the next
// Create, which may grow the backing slice.
func (a *Arena[T]) Get(e Entity) (*T, bool) {
	if !a.store.Alive(e) || !a.store.slots[e.Index].sig.ContainsAll(Signature(a.bit)) {
		return nil, false
	}
	return &a.data[e.Index], true
}

// MustGet is Get for callers that already filtered on the signature.
func (a *Arena[T]) MustGet(e Entity) *T {
	return &a.data[e.Index]
}

func (a *Arena[T]) Has(e Entity) bool {
	return a.store.Has(e, Signature(a.bit))
}

func (a *Arena[T]) Remove(e Entity) {
	if !a.store.Alive(e) {
		return
	}
	a.reset(e.Index)
	a.store.slots[e.Index].sig.Unmark(a.bit)
}
