// Package spatial is a uniform grid over the ground plane. It is owned by the
// simulation goroutine and is not safe for concurrent use.
package spatial

import (
	"slices"

	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/mathx"
)

const DefaultCellSize = 500

type cellKey struct {
	X, Z int32
}

type entry struct {
	cell cellKey
	kind uint8
}

type Grid struct {
	cellSize float32
	cells    map[cellKey]map[ecs.NetworkID]struct{}
	where    map[ecs.NetworkID]entry
}

func NewGrid(cellSize float32) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Grid{
		cellSize: cellSize,
		cells:    map[cellKey]map[ecs.NetworkID]struct{}{},
		where:    map[ecs.NetworkID]entry{},
	}
}

func (g *Grid) CellSize() float32 { return g.cellSize }

func (g *Grid) key(x, z float32) cellKey {
	return cellKey{X: mathx.Cell(x, g.cellSize), Z: mathx.Cell(z, g.cellSize)}
}

// Update inserts id or moves it to the cell containing (x, z).
func (g *Grid) Update(id ecs.NetworkID, x, z float32, kind uint8) {
	k := g.key(x, z)
	if old, ok := g.where[id]; ok {
		if old.cell == k {
			if old.kind != kind {
				g.where[id] = entry{cell: k, kind: kind}
			}
			return
		}
		g.erase(id, old.cell)
	}
	set := g.cells[k]
	if set == nil {
		set = map[ecs.NetworkID]struct{}{}
		g.cells[k] = set
	}
	set[id] = struct{}{}
	g.where[id] = entry{cell: k, kind: kind}
}

func (g *Grid) Remove(id ecs.NetworkID) {
	old, ok := g.where[id]
	if !ok {
		return
	}
	g.erase(id, old.cell)
	delete(g.where, id)
}

func (g *Grid) erase(id ecs.NetworkID, k cellKey) {
	set := g.cells[k]
	delete(set, id)
	if len(set) == 0 {
		delete(g.cells, k)
	}
}

// QueryRadius returns every id in the cells overlapping the circle's bounding
// box, in ascending order. The result is a superset of the circle; callers
// filter by true distance.
func (g *Grid) QueryRadius(cx, cz, r float32) []ecs.NetworkID {
	return g.query(cx, cz, r, func(entry) bool { return true })
}

// QueryRadiusKind is QueryRadius restricted to one entity kind.
func (g *Grid) QueryRadiusKind(cx, cz, r float32, kind uint8) []ecs.NetworkID {
	return g.query(cx, cz, r, func(e entry) bool { return e.kind == kind })
}

func (g *Grid) query(cx, cz, r float32, keep func(entry) bool) []ecs.NetworkID {
	if r < 0 {
		return nil
	}
	lo := g.key(cx-r, cz-r)
	hi := g.key(cx+r, cz+r)
	var out []ecs.NetworkID
	for x := lo.X; x <= hi.X; x++ {
		for z := lo.Z; z <= hi.Z; z++ {
			for id := range g.cells[cellKey{X: x, Z: z}] {
				if keep(g.where[id]) {
					out = append(out, id)
				}
			}
		}
	}
	slices.Sort(out)
	return out
}

// Kind reports the kind recorded for id.
func (g *Grid) Kind(id ecs.NetworkID) (uint8, bool) {
	e, ok := g.where[id]
	return e.kind, ok
}

func (g *Grid) Len() int       { return len(g.where) }
func (g *Grid) CellCount() int { return len(g.cells) }
