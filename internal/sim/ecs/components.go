package ecs

// Component bits. Tag bits carry no arena.
const (
	CTransform uint32 = iota
	CVelocity
	CHealth
	CCombat
	CInput
	CAttackDirection
	CInfo
	CName
	CScale
	CAI
	CTownAI
	CCollider
	CRigidBody
	CPhysicsBody

	TagPlayer
	TagNPC
	TagTownNPC
	TagStatic
	TagNeedsTeleport
	// TagNoBody marks an entity whose physics body could not be created so
	// the bridge does not retry every tick.
	TagNoBody
)

type Transform struct {
	X, Y, Z  float32
	Rotation float32
}

type Velocity struct {
	X, Y, Z float32
}

type Health struct {
	Current float32
	Max     float32
}

func (h Health) Alive() bool { return h.Current > 0 }

type Combat struct {
	Damage          float32
	AttackRange     float32
	AttackCooldown  float32
	CurrentCooldown float32
	ConeAngle       float32
	IsAttacking     bool
}

type InputState struct {
	MoveX, MoveY float32
	AimX, AimY   float32
	Flags        uint8
	Attacking    bool
}

type AttackDirection struct {
	X, Y float32
}

// EntityInfo carries the wire-facing classification and presentation.
// Subtype is the player class, NPC, building or environment type depending
// on Type.
type EntityInfo struct {
	Type         uint8
	Subtype      uint8
	Model        string
	Color        uint32
	Speed        float32
	TargetSize   float32
	TargetID     NetworkID
	Animation    string
	Effect       string
	ShowsReticle bool
}

type Name struct {
	Value string
}

type Scale struct {
	X, Y, Z float32
}

type AIMode uint8

const (
	AIIdle AIMode = iota
	AIChasing
	AIAttacking
)

func (m AIMode) String() string {
	switch m {
	case AIChasing:
		return "chasing"
	case AIAttacking:
		return "attacking"
	default:
		return "idle"
	}
}

type AIState struct {
	Mode         AIMode
	AggroRange   float32
	MonsterSpeed float32
	Target       NetworkID
}

type TownMode uint8

const (
	TownIdle TownMode = iota
	TownWalking
)

// TownNPCAI drives the ambient wanderers inside the safe zone.
type TownNPCAI struct {
	Mode         TownMode
	HomeX, HomeZ float32
	TargetX      float32
	TargetZ      float32
	WanderRadius float32
	WalkSpeed    float32
	IdleTimer    float32
	MoveTimer    float32
}

type ShapeKind uint8

const (
	ShapeCapsule ShapeKind = iota
	ShapeBox
	ShapeSphere
	ShapeCylinder
)

type Collider struct {
	Shape      ShapeKind
	Radius     float32
	HalfHeight float32
	HalfX      float32
	HalfY      float32
	HalfZ      float32
}

type BodyKind uint8

const (
	BodyDynamic BodyKind = iota
	BodyKinematic
	BodyStatic
)

type RigidBody struct {
	Kind BodyKind
	Mass float32
}

// PhysicsBody links an entity to its backend body.
type PhysicsBody struct {
	ID uint32
}
