package spatial

import (
	"testing"

	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/mathx"
)

func TestGrid_QueryIsSupersetOfCircle(t *testing.T) {
	g := NewGrid(100)
	rng := mathx.NewRand(7)
	type pos struct{ x, z float32 }
	at := map[ecs.NetworkID]pos{}
	for i := 1; i <= 400; i++ {
		p := pos{rng.Range(-1000, 1000), rng.Range(-1000, 1000)}
		at[ecs.NetworkID(i)] = p
		g.Update(ecs.NetworkID(i), p.x, p.z, 0)
	}
	for q := 0; q < 200; q++ {
		cx, cz := rng.Range(-1100, 1100), rng.Range(-1100, 1100)
		r := rng.Range(0, 400)
		got := map[ecs.NetworkID]bool{}
		for _, id := range g.QueryRadius(cx, cz, r) {
			got[id] = true
		}
		for id, p := range at {
			if mathx.DistSq(cx, cz, p.x, p.z) <= r*r && !got[id] {
				t.Fatalf("query (%v,%v,r=%v) omitted id %d at %+v", cx, cz, r, id, p)
			}
		}
	}
}

func TestGrid_MoveKeepsMapsConsistent(t *testing.T) {
	g := NewGrid(50)
	g.Update(1, 10, 10, 1)
	g.Update(2, 20, 20, 2)
	if g.CellCount() != 1 || g.Len() != 2 {
		t.Fatalf("cells=%d len=%d", g.CellCount(), g.Len())
	}

	g.Update(1, 260, -40, 1)
	if g.CellCount() != 2 {
		t.Fatalf("cells after move=%d", g.CellCount())
	}
	if ids := g.QueryRadius(10, 10, 5); len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("old cell still holds moved id: %v", ids)
	}

	g.Remove(2)
	if g.CellCount() != 1 {
		t.Fatalf("empty cell not dropped: %d", g.CellCount())
	}
	g.Remove(2)
	g.Remove(1)
	if g.Len() != 0 || g.CellCount() != 0 {
		t.Fatalf("len=%d cells=%d", g.Len(), g.CellCount())
	}
}

func TestGrid_QueryRadiusKind(t *testing.T) {
	g := NewGrid(500)
	g.Update(1, 0, 0, 0)
	g.Update(2, 5, 5, 1)
	g.Update(3, 6, 6, 1)
	ids := g.QueryRadiusKind(0, 0, 10, 1)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Fatalf("got %v", ids)
	}
	if k, ok := g.Kind(1); !ok || k != 0 {
		t.Fatalf("kind=%d ok=%v", k, ok)
	}
}
