// Package netview tracks what each client has been told and computes the
// minimal enter, update and exit messages that bring it up to date.
package netview

import (
	"slices"

	"mmoarena.ai/internal/protocol"
)

type known struct {
	state    protocol.NetEntityState
	lastSent float64
}

// View is one client's replicated picture of the world. It is owned by the
// simulation goroutine.
type View struct {
	cfg   *Config
	owner uint32
	known map[uint32]*known
}

type Updates struct {
	Enter []protocol.NetEntityState
	Delta []protocol.EntityDelta
	Exit  []uint32
}

func (u *Updates) Empty() bool {
	return len(u.Enter) == 0 && len(u.Delta) == 0 && len(u.Exit) == 0
}

// Frames encodes the updates as wire frames: exits first, then enters, then
// deltas.
func (u *Updates) Frames() [][]byte {
	out := make([][]byte, 0, len(u.Exit)+len(u.Enter)+len(u.Delta))
	for _, id := range u.Exit {
		out = append(out, protocol.EncodeIDMessage(protocol.TypeEntityExit, id))
	}
	for i := range u.Enter {
		out = append(out, protocol.EncodeEntityState(protocol.TypeEntityEnter, &u.Enter[i]))
	}
	for i := range u.Delta {
		out = append(out, u.Delta[i].Encode())
	}
	return out
}

// New creates the view for the player with network id owner. cfg must
// outlive the view.
func New(cfg *Config, owner uint32) *View {
	return &View{cfg: cfg, owner: owner, known: map[uint32]*known{}}
}

func (v *View) Owner() uint32 { return v.owner }
func (v *View) Len() int      { return len(v.known) }

// Known returns the state last sent for id, as the client holds it.
func (v *View) Known(id uint32) (protocol.NetEntityState, bool) {
	k, ok := v.known[id]
	if !ok {
		return protocol.NetEntityState{}, false
	}
	return k.state, true
}

// ComputeUpdates diffs states against what the client holds. The owner's
// own state is the viewpoint; when it is missing every known entity exits.
//
// An entity enters when it comes within its type's view distance. A known
// entity gets a delta carrying only the groups that changed by more than
// the epsilon, at most once per its type's minimum interval; a rate-limited
// entity is left untouched. Exits are reported in ascending id order.
func (v *View) ComputeUpdates(states []protocol.NetEntityState, now float64) Updates {
	var u Updates
	var ox, oz float32
	found := false
	for i := range states {
		if states[i].ID == v.owner {
			ox, oz = states[i].X, states[i].Z
			found = true
			break
		}
	}

	seen := make(map[uint32]struct{}, len(v.known))
	if found {
		for i := range states {
			s := &states[i]
			if !v.inRange(s, ox, oz) {
				continue
			}
			seen[s.ID] = struct{}{}
			k, ok := v.known[s.ID]
			if !ok {
				v.known[s.ID] = &known{state: *s, lastSent: now}
				u.Enter = append(u.Enter, *s)
				continue
			}
			if now-k.lastSent < v.cfg.interval(s.Type) {
				continue
			}
			d := diff(&k.state, s, v.cfg.Epsilon)
			if d.Flags == 0 {
				continue
			}
			d.Apply(&k.state)
			k.lastSent = now
			u.Delta = append(u.Delta, d)
		}
	}

	for id := range v.known {
		if _, ok := seen[id]; !ok {
			u.Exit = append(u.Exit, id)
		}
	}
	slices.Sort(u.Exit)
	for _, id := range u.Exit {
		delete(v.known, id)
	}
	return u
}

func (v *View) inRange(s *protocol.NetEntityState, ox, oz float32) bool {
	if s.ID == v.owner {
		return true
	}
	r := v.cfg.viewDistance(s.Type)
	dx, dz := s.X-ox, s.Z-oz
	return dx*dx+dz*dz <= r*r
}

func changed(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d > eps
}

// diff builds a delta holding every group of cur that differs from last.
func diff(last, cur *protocol.NetEntityState, eps float32) protocol.EntityDelta {
	d := protocol.EntityDelta{ID: cur.ID}
	if changed(last.X, cur.X, eps) || changed(last.Y, cur.Y, eps) || changed(last.Z, cur.Z, eps) {
		d.Flags |= protocol.DeltaPosition
		d.X, d.Y, d.Z = cur.X, cur.Y, cur.Z
	}
	if changed(last.VX, cur.VX, eps) || changed(last.VY, cur.VY, eps) {
		d.Flags |= protocol.DeltaVelocity
		d.VX, d.VY = cur.VX, cur.VY
	}
	if changed(last.Health, cur.Health, eps) {
		d.Flags |= protocol.DeltaHealth
		d.Health = cur.Health
	}
	if last.IsAttacking != cur.IsAttacking {
		d.Flags |= protocol.DeltaAttacking
		d.IsAttacking = cur.IsAttacking
	}
	if changed(last.AttackDirX, cur.AttackDirX, eps) || changed(last.AttackDirY, cur.AttackDirY, eps) {
		d.Flags |= protocol.DeltaAttackDir
		d.AttackDirX, d.AttackDirY = cur.AttackDirX, cur.AttackDirY
	}
	if changed(last.Rotation, cur.Rotation, eps) {
		d.Flags |= protocol.DeltaRotation
		d.Rotation = cur.Rotation
	}
	return d
}
