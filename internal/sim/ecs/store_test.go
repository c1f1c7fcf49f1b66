package ecs

import "testing"

func TestStore_GenerationInvalidatesStaleHandles(t *testing.T) {
	s := NewStore()
	a := s.Create()
	s.Health.Set(a, Health{Current: 10, Max: 10})
	idA := s.NetID(a)

	if !s.Destroy(a) {
		t.Fatalf("destroy live entity")
	}
	if s.Destroy(a) {
		t.Fatalf("double destroy should be a no-op")
	}
	b := s.Create()
	if b.Index != a.Index {
		t.Fatalf("slot not reused: %+v vs %+v", b, a)
	}
	if b.Generation == a.Generation {
		t.Fatalf("generation not bumped")
	}
	if s.Alive(a) {
		t.Fatalf("stale handle reported alive")
	}
	if _, ok := s.Health.Get(b); ok {
		t.Fatalf("component leaked into reused slot")
	}
	if _, ok := s.Health.Get(a); ok {
		t.Fatalf("stale handle resolved a component")
	}
	if s.NetID(b) == idA {
		t.Fatalf("network id reused: %d", idA)
	}
	if _, ok := s.Lookup(idA); ok {
		t.Fatalf("retired network id still resolves")
	}
}

func TestStore_NetworkIDsMonotonic(t *testing.T) {
	s := NewStore()
	var last NetworkID
	for i := 0; i < 50; i++ {
		e := s.Create()
		id := s.NetID(e)
		if id == 0 || id <= last {
			t.Fatalf("id %d after %d", id, last)
		}
		last = id
		if i%3 == 0 {
			s.Destroy(e)
		}
	}
	if got := s.PeekNextNetworkID(); got != last+1 {
		t.Fatalf("peek=%d want %d", got, last+1)
	}
}

func TestStore_EachFiltersBySignatureInSlotOrder(t *testing.T) {
	s := NewStore()
	var players []Entity
	for i := 0; i < 6; i++ {
		e := s.Create()
		s.Transform.Set(e, Transform{X: float32(i)})
		if i%2 == 0 {
			s.Tag(e, TagPlayer)
			players = append(players, e)
		} else {
			s.Tag(e, TagNPC)
		}
	}

	var got []Entity
	s.Each(Signature(CTransform, TagPlayer), func(e Entity) { got = append(got, e) })
	if len(got) != len(players) {
		t.Fatalf("got %d players want %d", len(got), len(players))
	}
	for i := range got {
		if got[i] != players[i] {
			t.Fatalf("order mismatch at %d: %+v vs %+v", i, got[i], players[i])
		}
	}

	n := 0
	s.EachExcept(Signature(CTransform), Signature(TagPlayer), func(e Entity) {
		if s.HasBit(e, TagPlayer) {
			t.Fatalf("excluded tag visited")
		}
		n++
	})
	if n != 3 {
		t.Fatalf("except visited %d", n)
	}
}

func TestArena_RemoveClearsBit(t *testing.T) {
	s := NewStore()
	e := s.Create()
	s.Velocity.Set(e, Velocity{X: 1})
	if !s.Velocity.Has(e) {
		t.Fatalf("missing after set")
	}
	s.Velocity.Remove(e)
	if s.Velocity.Has(e) {
		t.Fatalf("present after remove")
	}
	s.Velocity.Set(e, Velocity{Z: 2})
	v, ok := s.Velocity.Get(e)
	if !ok || v.X != 0 || v.Z != 2 {
		t.Fatalf("got %+v ok=%v", v, ok)
	}
}
