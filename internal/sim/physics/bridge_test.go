package physics_test

import (
	"testing"

	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/physics"
	"mmoarena.ai/internal/sim/physics/physicstest"
)

func spawnMover(s *ecs.Store, x, z float32) ecs.Entity {
	e := s.Create()
	s.Transform.Set(e, ecs.Transform{X: x, Z: z})
	s.Velocity.Set(e, ecs.Velocity{})
	s.Collider.Set(e, ecs.Collider{Shape: ecs.ShapeCapsule, Radius: 10, HalfHeight: 12})
	s.RigidBody.Set(e, ecs.RigidBody{Kind: ecs.BodyDynamic, Mass: 1})
	return e
}

func TestBridge_DestroyReturnsBodyCountToBaseline(t *testing.T) {
	s := ecs.NewStore()
	fake := physicstest.NewFake()
	br := physics.NewBridge(fake, nil, nil)

	wall := s.Create()
	s.Transform.Set(wall, ecs.Transform{})
	s.Collider.Set(wall, ecs.Collider{Shape: ecs.ShapeBox, HalfX: 5, HalfY: 5, HalfZ: 5})
	s.RigidBody.Set(wall, ecs.RigidBody{Kind: ecs.BodyStatic})
	br.SyncNewBodies(s)
	baseline := fake.BodyCount()

	var players []ecs.Entity
	for i := 0; i < 5; i++ {
		players = append(players, spawnMover(s, float32(i*100), 0))
	}
	if n := br.SyncNewBodies(s); n != 5 {
		t.Fatalf("created %d bodies", n)
	}
	if n := br.SyncNewBodies(s); n != 0 {
		t.Fatalf("second sync created %d", n)
	}
	for _, e := range players {
		id := s.NetID(e)
		if !br.Destroy(id) {
			t.Fatalf("no body for %d", id)
		}
		s.Destroy(e)
	}
	if got := fake.BodyCount(); got != baseline {
		t.Fatalf("body count %d after removal, baseline %d", got, baseline)
	}
	if br.BodyCount() != baseline {
		t.Fatalf("bridge still tracks %d bodies", br.BodyCount())
	}
}

func TestBridge_CreateFailureLeavesEntityWithoutBody(t *testing.T) {
	s := ecs.NewStore()
	fake := physicstest.NewFake()
	fake.FailCreate = func(physics.BodySpec) bool { return true }
	br := physics.NewBridge(fake, nil, nil)

	e := spawnMover(s, 0, 0)
	br.SyncNewBodies(s)
	br.SyncNewBodies(s)
	if !s.Alive(e) {
		t.Fatalf("entity died on body failure")
	}
	if s.Body.Has(e) || !s.HasBit(e, ecs.TagNoBody) {
		t.Fatalf("expected NoBody tag and no body component")
	}
	if br.CreateFailures() != 1 {
		t.Fatalf("retried creation: failures=%d", br.CreateFailures())
	}
}

func TestBridge_StepGroundLocksAndWritesBack(t *testing.T) {
	s := ecs.NewStore()
	fake := physicstest.NewFake()
	br := physics.NewBridge(fake, func(x, z float32) float32 { return 7 }, nil)

	e := spawnMover(s, 0, 0)
	br.SyncNewBodies(s)
	v := s.Velocity.MustGet(e)
	v.X, v.Y, v.Z = 100, 55, -50

	br.Step(s, 0.5)
	tr := s.Transform.MustGet(e)
	if tr.X != 50 || tr.Z != -25 {
		t.Fatalf("position not written back: %+v", *tr)
	}
	if tr.Y != 7 {
		t.Fatalf("y=%v, want terrain height 7", tr.Y)
	}
	if s.Velocity.MustGet(e).Y != 0 {
		t.Fatalf("vertical velocity survived")
	}
	if fake.Steps != 1 {
		t.Fatalf("steps=%d", fake.Steps)
	}
}

func TestBridge_TeleportConsumedBeforeVelocityPush(t *testing.T) {
	s := ecs.NewStore()
	fake := physicstest.NewFake()
	br := physics.NewBridge(fake, nil, nil)

	e := spawnMover(s, 0, 0)
	br.SyncNewBodies(s)

	tr := s.Transform.MustGet(e)
	tr.X, tr.Z = 1000, 2000
	s.Tag(e, ecs.TagNeedsTeleport)
	br.Step(s, 1.0/60)

	if s.HasBit(e, ecs.TagNeedsTeleport) {
		t.Fatalf("teleport flag not consumed")
	}
	if tr := s.Transform.MustGet(e); tr.X != 1000 || tr.Z != 2000 {
		t.Fatalf("teleport lost: %+v", *tr)
	}
}

func TestBridge_ContactsDeliveredAfterStep(t *testing.T) {
	s := ecs.NewStore()
	fake := physicstest.NewFake()
	br := physics.NewBridge(fake, nil, nil)
	a := spawnMover(s, 0, 0)
	b := spawnMover(s, 5, 0)
	br.SyncNewBodies(s)

	var got []physics.Contact
	br.OnContact(func(c physics.Contact) { got = append(got, c) })
	fake.Emit(physics.Contact{A: uint32(s.NetID(a)), B: uint32(s.NetID(b)), Depth: 15})
	br.Step(s, 1.0/60)
	if len(got) != 1 || got[0].A != uint32(s.NetID(a)) || got[0].Depth != 15 {
		t.Fatalf("contacts=%+v", got)
	}
	br.Step(s, 1.0/60)
	if len(got) != 1 {
		t.Fatalf("contact redelivered")
	}
}
