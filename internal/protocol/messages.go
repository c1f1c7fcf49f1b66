package protocol

import (
	"fmt"
	"math"
)

// Fixed string widths on the wire.
const (
	NameLen       = 32
	ModelLen      = 32
	EffectLen     = 16
	AnimationLen  = 16
	ReasonLen     = 64
	ShortDescLen  = 32
	DescLineLen   = 64
	reservedBytes = 16
)

// Fixed record sizes.
const (
	PlayerInputSize    = 17
	NetEntityStateSize = 195
	ClassInfoSize      = 237
	WorldConfigSize    = 12
	CombatEventSize    = 20
	EntityDeathSize    = 8
)

// Connect (client -> server)
type Connect struct {
	Name string
}

func (m Connect) Encode() []byte {
	w := NewWriter(NameLen)
	w.FixedString(m.Name, NameLen)
	return Frame(TypeConnect, w.Bytes())
}

func DecodeConnect(payload []byte) (Connect, error) {
	r := NewReader(payload)
	name := r.FixedString(NameLen)
	if err := r.Err(); err != nil {
		return Connect{}, err
	}
	return Connect{Name: name}, nil
}

// ClassSelect (client -> server)
type ClassSelect struct {
	Index uint8
}

func (m ClassSelect) Encode() []byte {
	return Frame(TypeClassSelect, []byte{m.Index})
}

func DecodeClassSelect(payload []byte) (ClassSelect, error) {
	r := NewReader(payload)
	idx := r.U8()
	if err := r.Err(); err != nil {
		return ClassSelect{}, err
	}
	return ClassSelect{Index: idx}, nil
}

// PlayerInput (client -> server). AttackDir and MoveDir are ground-plane
// vectors: X maps to world X, Y maps to world Z.
type PlayerInput struct {
	Flags      uint8
	AttackDirX float32
	AttackDirY float32
	MoveDirX   float32
	MoveDirY   float32
}

func (in PlayerInput) Attacking() bool { return in.Flags&InputAttacking != 0 }

func (in PlayerInput) Encode() []byte {
	w := NewWriter(PlayerInputSize)
	w.U8(in.Flags)
	w.F32(in.AttackDirX)
	w.F32(in.AttackDirY)
	w.F32(in.MoveDirX)
	w.F32(in.MoveDirY)
	return Frame(TypePlayerInput, w.Bytes())
}

func DecodePlayerInput(payload []byte) (PlayerInput, error) {
	r := NewReader(payload)
	in := PlayerInput{
		Flags:      r.U8(),
		AttackDirX: r.F32(),
		AttackDirY: r.F32(),
		MoveDirX:   r.F32(),
		MoveDirY:   r.F32(),
	}
	if err := r.Err(); err != nil {
		return PlayerInput{}, err
	}
	if !finite(in.AttackDirX, in.AttackDirY, in.MoveDirX, in.MoveDirY) {
		return PlayerInput{}, fmt.Errorf("%w: non-finite direction", ErrMalformed)
	}
	return in, nil
}

// ConnectionAccepted (server -> client). PlayerID 0 acknowledges the
// connection before a class has been selected.
func EncodeConnectionAccepted(playerID uint32) []byte {
	w := NewWriter(4)
	w.U32(playerID)
	return Frame(TypeConnectionAccepted, w.Bytes())
}

func DecodeConnectionAccepted(payload []byte) (uint32, error) {
	r := NewReader(payload)
	id := r.U32()
	return id, r.Err()
}

func EncodeConnectionRejected(reason string) []byte {
	w := NewWriter(ReasonLen)
	w.FixedString(reason, ReasonLen)
	return Frame(TypeConnectionRejected, w.Bytes())
}

func DecodeConnectionRejected(payload []byte) (string, error) {
	r := NewReader(payload)
	s := r.FixedString(ReasonLen)
	return s, r.Err()
}

// EncodeIDMessage builds PlayerLeft / EntityExit style frames carrying one id.
func EncodeIDMessage(t MessageType, id uint32) []byte {
	w := NewWriter(4)
	w.U32(id)
	return Frame(t, w.Bytes())
}

func DecodeID(payload []byte) (uint32, error) {
	r := NewReader(payload)
	id := r.U32()
	return id, r.Err()
}

// WorldConfig (server -> client)
type WorldConfig struct {
	Width    float32
	Height   float32
	TickRate float32
}

func (m WorldConfig) Encode() []byte {
	w := NewWriter(WorldConfigSize)
	w.F32(m.Width)
	w.F32(m.Height)
	w.F32(m.TickRate)
	return Frame(TypeWorldConfig, w.Bytes())
}

func DecodeWorldConfig(payload []byte) (WorldConfig, error) {
	r := NewReader(payload)
	m := WorldConfig{Width: r.F32(), Height: r.F32(), TickRate: r.F32()}
	return m, r.Err()
}

// ClassInfo describes one selectable class for the class-select screen.
type ClassInfo struct {
	Name         string
	ShortDesc    string
	DescLine1    string
	DescLine2    string
	Model        string
	Color        uint32
	SelectColor  uint32
	UIColor      uint32
	ShowsReticle bool
}

func (c ClassInfo) appendTo(w *Writer) {
	w.FixedString(c.Name, NameLen)
	w.FixedString(c.ShortDesc, ShortDescLen)
	w.FixedString(c.DescLine1, DescLineLen)
	w.FixedString(c.DescLine2, DescLineLen)
	w.FixedString(c.Model, ModelLen)
	w.U32(c.Color)
	w.U32(c.SelectColor)
	w.U32(c.UIColor)
	w.Bool(c.ShowsReticle)
}

func readClassInfo(r *Reader) ClassInfo {
	return ClassInfo{
		Name:         r.FixedString(NameLen),
		ShortDesc:    r.FixedString(ShortDescLen),
		DescLine1:    r.FixedString(DescLineLen),
		DescLine2:    r.FixedString(DescLineLen),
		Model:        r.FixedString(ModelLen),
		Color:        r.U32(),
		SelectColor:  r.U32(),
		UIColor:      r.U32(),
		ShowsReticle: r.Bool(),
	}
}

// EncodeClassList caps the list at 255 entries (count is a u8).
func EncodeClassList(classes []ClassInfo) []byte {
	if len(classes) > 255 {
		classes = classes[:255]
	}
	w := NewWriter(1 + len(classes)*ClassInfoSize)
	w.U8(uint8(len(classes)))
	for _, c := range classes {
		c.appendTo(w)
	}
	return Frame(TypeClassList, w.Bytes())
}

func DecodeClassList(payload []byte) ([]ClassInfo, error) {
	r := NewReader(payload)
	n := int(r.U8())
	if r.Err() == nil && r.Remaining() < n*ClassInfoSize {
		return nil, fmt.Errorf("%w: class list count=%d", ErrShortPayload, n)
	}
	out := make([]ClassInfo, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, readClassInfo(r))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// NetEntityState is the fixed-size wire projection of one entity. VX and VY
// are ground-plane velocity (world X and Z).
type NetEntityState struct {
	ID              uint32
	Type            EntityType
	PlayerClass     uint8
	NPCType         uint8
	BuildingType    uint8
	EnvironmentType uint8

	X, Y, Z   float32
	VX, VY    float32
	Rotation  float32
	Health    float32
	MaxHealth float32
	Color     uint32
	Name      string

	IsAttacking bool
	AttackDirX  float32
	AttackDirY  float32
	Scale       float32

	ModelName    string
	TargetSize   float32
	EffectType   string
	Animation    string
	ConeAngle    float32
	ShowsReticle bool

	Speed          float32
	AttackRange    float32
	AttackCooldown float32
	TargetID       uint32
}

func (s *NetEntityState) AppendTo(w *Writer) {
	w.U32(s.ID)
	w.U8(uint8(s.Type))
	w.U8(s.PlayerClass)
	w.U8(s.NPCType)
	w.U8(s.BuildingType)
	w.U8(s.EnvironmentType)
	w.F32(s.X)
	w.F32(s.Y)
	w.F32(s.Z)
	w.F32(s.VX)
	w.F32(s.VY)
	w.F32(s.Rotation)
	w.F32(s.Health)
	w.F32(s.MaxHealth)
	w.U32(s.Color)
	w.FixedString(s.Name, NameLen)
	w.Bool(s.IsAttacking)
	w.F32(s.AttackDirX)
	w.F32(s.AttackDirY)
	w.F32(s.Scale)
	w.FixedString(s.ModelName, ModelLen)
	w.F32(s.TargetSize)
	w.FixedString(s.EffectType, EffectLen)
	w.FixedString(s.Animation, AnimationLen)
	w.F32(s.ConeAngle)
	w.Bool(s.ShowsReticle)
	w.F32(s.Speed)
	w.F32(s.AttackRange)
	w.F32(s.AttackCooldown)
	w.U32(s.TargetID)
	for i := 0; i < reservedBytes; i++ {
		w.U8(0)
	}
}

func ReadNetEntityState(r *Reader) NetEntityState {
	s := NetEntityState{
		ID:              r.U32(),
		Type:            EntityType(r.U8()),
		PlayerClass:     r.U8(),
		NPCType:         r.U8(),
		BuildingType:    r.U8(),
		EnvironmentType: r.U8(),
	}
	s.X = r.F32()
	s.Y = r.F32()
	s.Z = r.F32()
	s.VX = r.F32()
	s.VY = r.F32()
	s.Rotation = r.F32()
	s.Health = r.F32()
	s.MaxHealth = r.F32()
	s.Color = r.U32()
	s.Name = r.FixedString(NameLen)
	s.IsAttacking = r.Bool()
	s.AttackDirX = r.F32()
	s.AttackDirY = r.F32()
	s.Scale = r.F32()
	s.ModelName = r.FixedString(ModelLen)
	s.TargetSize = r.F32()
	s.EffectType = r.FixedString(EffectLen)
	s.Animation = r.FixedString(AnimationLen)
	s.ConeAngle = r.F32()
	s.ShowsReticle = r.Bool()
	s.Speed = r.F32()
	s.AttackRange = r.F32()
	s.AttackCooldown = r.F32()
	s.TargetID = r.U32()
	r.Raw(reservedBytes)
	return s
}

// EncodeEntityState frames a single state as PlayerJoined or EntityEnter.
func EncodeEntityState(t MessageType, s *NetEntityState) []byte {
	w := NewWriter(NetEntityStateSize)
	s.AppendTo(w)
	return Frame(t, w.Bytes())
}

func DecodeEntityState(payload []byte) (NetEntityState, error) {
	r := NewReader(payload)
	s := ReadNetEntityState(r)
	if err := r.Err(); err != nil {
		return NetEntityState{}, err
	}
	return s, nil
}

// EncodeWorldState builds the legacy full-state broadcast. At most 65535
// states fit the u16 count.
func EncodeWorldState(states []NetEntityState) []byte {
	if len(states) > 0xFFFF {
		states = states[:0xFFFF]
	}
	w := NewWriter(2 + len(states)*NetEntityStateSize)
	w.U16(uint16(len(states)))
	for i := range states {
		states[i].AppendTo(w)
	}
	return Frame(TypeWorldState, w.Bytes())
}

func DecodeWorldState(payload []byte) ([]NetEntityState, error) {
	r := NewReader(payload)
	n := int(r.U16())
	if r.Err() == nil && r.Remaining() < n*NetEntityStateSize {
		return nil, fmt.Errorf("%w: world state count=%d", ErrShortPayload, n)
	}
	out := make([]NetEntityState, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, ReadNetEntityState(r))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CombatEvent (server -> client) reports one landed hit.
type CombatEvent struct {
	AttackerID uint32
	TargetID   uint32
	Damage     float32
	TargetX    float32
	TargetZ    float32
}

func (m CombatEvent) Encode() []byte {
	w := NewWriter(CombatEventSize)
	w.U32(m.AttackerID)
	w.U32(m.TargetID)
	w.F32(m.Damage)
	w.F32(m.TargetX)
	w.F32(m.TargetZ)
	return Frame(TypeCombatEvent, w.Bytes())
}

func DecodeCombatEvent(payload []byte) (CombatEvent, error) {
	r := NewReader(payload)
	m := CombatEvent{
		AttackerID: r.U32(),
		TargetID:   r.U32(),
		Damage:     r.F32(),
		TargetX:    r.F32(),
		TargetZ:    r.F32(),
	}
	return m, r.Err()
}

// EntityDeath (server -> client)
type EntityDeath struct {
	EntityID uint32
	KillerID uint32
}

func (m EntityDeath) Encode() []byte {
	w := NewWriter(EntityDeathSize)
	w.U32(m.EntityID)
	w.U32(m.KillerID)
	return Frame(TypeEntityDeath, w.Bytes())
}

func DecodeEntityDeath(payload []byte) (EntityDeath, error) {
	r := NewReader(payload)
	m := EntityDeath{EntityID: r.U32(), KillerID: r.U32()}
	return m, r.Err()
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
