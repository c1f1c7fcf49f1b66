package netview

import (
	"slices"

	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/sim/spatial"
)

// MaxViewDistance is the largest per-type view distance.
func (c *Config) MaxViewDistance() float32 {
	var m float32
	for _, d := range c.ViewDistance {
		m = max(m, d)
	}
	return m
}

// Index maps network ids to their position in one tick's state slice.
type Index map[uint32]int

func NewIndex(states []protocol.NetEntityState) Index {
	idx := make(Index, len(states))
	for i := range states {
		idx[states[i].ID] = i
	}
	return idx
}

// Nearby appends to dst the states the grid places within MaxViewDistance of
// the owner, in the order they appear in states. It returns dst unchanged when
// the owner has no state this tick. The result is a superset of what the
// view can see, so ComputeUpdates over it matches ComputeUpdates over states.
func (v *View) Nearby(dst, states []protocol.NetEntityState, idx Index, g *spatial.Grid) []protocol.NetEntityState {
	oi, ok := idx[v.owner]
	if !ok {
		return dst
	}
	o := &states[oi]
	ids := g.QueryRadius(o.X, o.Z, v.cfg.MaxViewDistance())
	pos := make([]int, 0, len(ids)+1)
	pos = append(pos, oi)
	for _, id := range ids {
		if i, ok := idx[uint32(id)]; ok && i != oi {
			pos = append(pos, i)
		}
	}
	slices.Sort(pos)
	for _, i := range pos {
		dst = append(dst, states[i])
	}
	return dst
}
