package protocol

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestFrame_HeaderLayout(t *testing.T) {
	b := Frame(TypeConnectionAccepted, []byte{1, 2, 3})
	if len(b) != HeaderSize+3 {
		t.Fatalf("frame len=%d", len(b))
	}
	if b[0] != byte(TypeConnectionAccepted) {
		t.Fatalf("type byte=%d", b[0])
	}
	// payload_size is little-endian u32.
	if !bytes.Equal(b[1:5], []byte{3, 0, 0, 0}) {
		t.Fatalf("size bytes=%v", b[1:5])
	}
}

func TestReadFrame_SequentialFrames(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(ClassSelect{Index: 2}.Encode())
	buf.Write(Frame(TypeDisconnect, nil))
	buf.Write(PlayerInput{Flags: InputAttacking, AttackDirX: 1}.Encode())

	typ, payload, err := ReadFrame(&buf, DefaultMaxPayload)
	if err != nil || typ != TypeClassSelect {
		t.Fatalf("first frame: typ=%s err=%v", typ, err)
	}
	cs, err := DecodeClassSelect(payload)
	if err != nil || cs.Index != 2 {
		t.Fatalf("class select: %+v err=%v", cs, err)
	}

	typ, payload, err = ReadFrame(&buf, DefaultMaxPayload)
	if err != nil || typ != TypeDisconnect || len(payload) != 0 {
		t.Fatalf("second frame: typ=%s len=%d err=%v", typ, len(payload), err)
	}

	typ, payload, err = ReadFrame(&buf, DefaultMaxPayload)
	if err != nil || typ != TypePlayerInput {
		t.Fatalf("third frame: typ=%s err=%v", typ, err)
	}
	if len(payload) != PlayerInputSize {
		t.Fatalf("input payload len=%d", len(payload))
	}
	in, err := DecodePlayerInput(payload)
	if err != nil || !in.Attacking() || in.AttackDirX != 1 {
		t.Fatalf("input: %+v err=%v", in, err)
	}
}

func TestReadFrame_RejectsOversizePayload(t *testing.T) {
	hdr := []byte{byte(TypePlayerInput), 0xFF, 0xFF, 0xFF, 0x7F}
	_, _, err := ReadFrame(bytes.NewReader(hdr), 1024)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestReader_FailsClosedOnShortPayload(t *testing.T) {
	cases := []struct {
		name   string
		decode func([]byte) error
		full   int
	}{
		{"input", func(b []byte) error { _, err := DecodePlayerInput(b); return err }, PlayerInputSize},
		{"state", func(b []byte) error { _, err := DecodeEntityState(b); return err }, NetEntityStateSize},
		{"connect", func(b []byte) error { _, err := DecodeConnect(b); return err }, NameLen},
		{"class_select", func(b []byte) error { _, err := DecodeClassSelect(b); return err }, 1},
		{"world_config", func(b []byte) error { _, err := DecodeWorldConfig(b); return err }, WorldConfigSize},
		{"combat", func(b []byte) error { _, err := DecodeCombatEvent(b); return err }, CombatEventSize},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := make([]byte, tc.full)
			if err := tc.decode(b); err != nil {
				t.Fatalf("full payload rejected: %v", err)
			}
			for n := 0; n < tc.full; n++ {
				if err := tc.decode(b[:n]); !errors.Is(err, ErrShortPayload) {
					t.Fatalf("len=%d: expected ErrShortPayload, got %v", n, err)
				}
			}
		})
	}
}

func TestDecodePlayerInput_RejectsNonFinite(t *testing.T) {
	w := NewWriter(PlayerInputSize)
	w.U8(0)
	w.F32(float32(math.NaN()))
	w.F32(0)
	w.F32(0)
	w.F32(0)
	if _, err := DecodePlayerInput(w.Bytes()); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestNetEntityState_FixedSize(t *testing.T) {
	s := NetEntityState{
		ID:        7,
		Type:      EntityNPC,
		X:         1,
		Y:         2,
		Z:         3,
		Health:    50,
		MaxHealth: 100,
		Name:      "a-name-that-is-definitely-longer-than-thirty-two-bytes",
		ModelName: "npc_enemy",
		TargetID:  9,
	}
	frame := EncodeEntityState(TypeEntityEnter, &s)
	if len(frame) != HeaderSize+NetEntityStateSize {
		t.Fatalf("frame len=%d want %d", len(frame), HeaderSize+NetEntityStateSize)
	}
	got, err := DecodeEntityState(frame[HeaderSize:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Name) != NameLen-1 {
		t.Fatalf("name not truncated to %d: %q", NameLen-1, got.Name)
	}
	if got.ID != 7 || got.Type != EntityNPC || got.TargetID != 9 || got.ModelName != "npc_enemy" {
		t.Fatalf("decoded=%+v", got)
	}
}

func TestClassList_CountMismatchRejected(t *testing.T) {
	frame := EncodeClassList([]ClassInfo{{Name: "Warrior"}, {Name: "Mage"}})
	payload := frame[HeaderSize:]
	if len(payload) != 1+2*ClassInfoSize {
		t.Fatalf("payload len=%d", len(payload))
	}
	list, err := DecodeClassList(payload)
	if err != nil || len(list) != 2 || list[1].Name != "Mage" {
		t.Fatalf("list=%+v err=%v", list, err)
	}
	payload[0] = 3
	if _, err := DecodeClassList(payload); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
}

func TestWorldState_CountMismatchRejected(t *testing.T) {
	frame := EncodeWorldState([]NetEntityState{{ID: 1}, {ID: 2}})
	payload := frame[HeaderSize:]
	states, err := DecodeWorldState(payload)
	if err != nil || len(states) != 2 || states[1].ID != 2 {
		t.Fatalf("states=%+v err=%v", states, err)
	}
	payload[0] = 200
	if _, err := DecodeWorldState(payload); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
}
