package physics

import (
	"fmt"
	"math"
	"slices"
)

type body struct {
	spec   BodySpec
	pos    Vec3
	vel    Vec3
	target *Vec3
}

type pairKey struct {
	a, b BodyID
}

// Builtin is a ground-plane integrator: bodies move on X/Z, round shapes are
// circles and boxes are oriented rectangles. Dynamic bodies are pushed out of
// static and kinematic ones and split the correction between each other.
// Iteration is in body id order so a run is reproducible.
type Builtin struct {
	maxBodies int
	nextID    BodyID
	bodies    map[BodyID]*body
	order     []BodyID
	touching  map[pairKey]bool
	listener  func(Contact)
}

// NewBuiltin creates a backend holding at most maxBodies bodies; 0 means
// unlimited.
func NewBuiltin(maxBodies int) *Builtin {
	return &Builtin{
		maxBodies: maxBodies,
		bodies:    map[BodyID]*body{},
		touching:  map[pairKey]bool{},
	}
}

func (w *Builtin) CreateBody(spec BodySpec) (BodyID, error) {
	if w.maxBodies > 0 && len(w.bodies) >= w.maxBodies {
		return 0, ErrBodyLimit
	}
	switch spec.Shape {
	case Box:
		if spec.HalfExtents.X <= 0 || spec.HalfExtents.Z <= 0 {
			return 0, fmt.Errorf("%w: box extents %+v", ErrBadShape, spec.HalfExtents)
		}
	case Capsule, Sphere, Cylinder:
		if spec.Radius <= 0 {
			return 0, fmt.Errorf("%w: radius %v", ErrBadShape, spec.Radius)
		}
	default:
		return 0, fmt.Errorf("%w: shape %d", ErrBadShape, spec.Shape)
	}
	w.nextID++
	id := w.nextID
	w.bodies[id] = &body{spec: spec, pos: spec.Position}
	w.order = append(w.order, id)
	return id, nil
}

func (w *Builtin) DestroyBody(id BodyID) {
	if _, ok := w.bodies[id]; !ok {
		return
	}
	delete(w.bodies, id)
	if i := slices.Index(w.order, id); i >= 0 {
		w.order = slices.Delete(w.order, i, i+1)
	}
	for k := range w.touching {
		if k.a == id || k.b == id {
			delete(w.touching, k)
		}
	}
}

func (w *Builtin) SetPosition(id BodyID, p Vec3) {
	if b := w.bodies[id]; b != nil {
		b.pos = p
		b.target = nil
	}
}

func (w *Builtin) SetVelocity(id BodyID, v Vec3) {
	if b := w.bodies[id]; b != nil && b.spec.Kind == Dynamic {
		b.vel = v
	}
}

func (w *Builtin) MoveKinematic(id BodyID, target Vec3, dt float32) {
	b := w.bodies[id]
	if b == nil || b.spec.Kind != Kinematic {
		return
	}
	t := target
	b.target = &t
	if dt > 0 {
		b.vel = Vec3{X: (target.X - b.pos.X) / dt, Y: (target.Y - b.pos.Y) / dt, Z: (target.Z - b.pos.Z) / dt}
	}
}

func (w *Builtin) Position(id BodyID) (Vec3, bool) {
	b := w.bodies[id]
	if b == nil {
		return Vec3{}, false
	}
	return b.pos, true
}

func (w *Builtin) SetContactListener(fn func(Contact)) { w.listener = fn }

func (w *Builtin) BodyCount() int { return len(w.bodies) }

// Step integrates once and resolves overlaps in a single pass.
func (w *Builtin) Step(dt float32) {
	for _, id := range w.order {
		b := w.bodies[id]
		switch b.spec.Kind {
		case Dynamic:
			b.pos.X += b.vel.X * dt
			b.pos.Y += b.vel.Y * dt
			b.pos.Z += b.vel.Z * dt
		case Kinematic:
			if b.target != nil {
				b.pos = *b.target
				b.target = nil
			}
		}
	}

	now := map[pairKey]bool{}
	for i, ia := range w.order {
		a := w.bodies[ia]
		for _, ib := range w.order[i+1:] {
			b := w.bodies[ib]
			if a.spec.Kind != Dynamic && b.spec.Kind != Dynamic {
				continue
			}
			nx, nz, depth, ok := overlap(a, b)
			if !ok {
				continue
			}
			w.separate(a, b, nx, nz, depth)
			k := pairKey{ia, ib}
			now[k] = true
			if !w.touching[k] && w.listener != nil {
				w.listener(Contact{
					A:      a.spec.UserData,
					B:      b.spec.UserData,
					Point:  Vec3{X: b.pos.X + nx*radiusOf(b), Y: a.pos.Y, Z: b.pos.Z + nz*radiusOf(b)},
					Normal: Vec3{X: nx, Z: nz},
					Depth:  depth,
				})
			}
		}
	}
	w.touching = now
}

// separate moves dynamic bodies apart along the normal pointing from b to a.
func (w *Builtin) separate(a, b *body, nx, nz, depth float32) {
	aDyn, bDyn := a.spec.Kind == Dynamic, b.spec.Kind == Dynamic
	switch {
	case aDyn && bDyn:
		h := depth / 2
		a.pos.X += nx * h
		a.pos.Z += nz * h
		b.pos.X -= nx * h
		b.pos.Z -= nz * h
	case aDyn:
		a.pos.X += nx * depth
		a.pos.Z += nz * depth
	case bDyn:
		b.pos.X -= nx * depth
		b.pos.Z -= nz * depth
	}
}

func radiusOf(b *body) float32 {
	if b.spec.Shape == Box {
		return 0
	}
	return b.spec.Radius
}

// overlap returns the unit normal from b towards a and the penetration depth.
func overlap(a, b *body) (nx, nz, depth float32, ok bool) {
	aBox, bBox := a.spec.Shape == Box, b.spec.Shape == Box
	switch {
	case !aBox && !bBox:
		return circleCircle(a.pos, a.spec.Radius, b.pos, b.spec.Radius)
	case !aBox && bBox:
		return circleBox(a.pos, a.spec.Radius, b)
	case aBox && !bBox:
		nx, nz, depth, ok = circleBox(b.pos, b.spec.Radius, a)
		return -nx, -nz, depth, ok
	default:
		// Box pairs are treated as their bounding circles.
		ra := float32(math.Hypot(float64(a.spec.HalfExtents.X), float64(a.spec.HalfExtents.Z)))
		rb := float32(math.Hypot(float64(b.spec.HalfExtents.X), float64(b.spec.HalfExtents.Z)))
		return circleCircle(a.pos, ra, b.pos, rb)
	}
}

func circleCircle(pa Vec3, ra float32, pb Vec3, rb float32) (nx, nz, depth float32, ok bool) {
	dx, dz := pa.X-pb.X, pa.Z-pb.Z
	d2 := dx*dx + dz*dz
	sum := ra + rb
	if d2 >= sum*sum {
		return 0, 0, 0, false
	}
	d := float32(math.Sqrt(float64(d2)))
	if d < 1e-6 {
		return 1, 0, sum, true
	}
	return dx / d, dz / d, sum - d, true
}

// circleBox tests a circle against an oriented box rotated by its yaw.
func circleBox(pc Vec3, r float32, box *body) (nx, nz, depth float32, ok bool) {
	sin, cos := math.Sincos(float64(-box.spec.Rotation))
	s, c := float32(sin), float32(cos)
	dx, dz := pc.X-box.pos.X, pc.Z-box.pos.Z
	lx := dx*c - dz*s
	lz := dx*s + dz*c

	hx, hz := box.spec.HalfExtents.X, box.spec.HalfExtents.Z
	cx := clamp(lx, -hx, hx)
	cz := clamp(lz, -hz, hz)
	ox, oz := lx-cx, lz-cz
	d2 := ox*ox + oz*oz

	var lnx, lnz float32
	if d2 == 0 {
		// Center inside the box: push out through the nearest face.
		px, pz := hx-abs(lx), hz-abs(lz)
		if px < pz {
			lnx, depth = sign(lx), px+r
		} else {
			lnz, depth = sign(lz), pz+r
		}
	} else {
		if d2 >= r*r {
			return 0, 0, 0, false
		}
		d := float32(math.Sqrt(float64(d2)))
		lnx, lnz, depth = ox/d, oz/d, r-d
	}
	// Back to world space.
	nx = lnx*c + lnz*s
	nz = -lnx*s + lnz*c
	return nx, nz, depth, true
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
