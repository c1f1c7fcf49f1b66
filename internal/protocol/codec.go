package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer appends little-endian fields to a byte slice.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }

func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

func (w *Writer) U16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *Writer) U32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *Writer) I32(v int32)  { w.U32(uint32(v)) }
func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// FixedString writes s into exactly n bytes, truncating and NUL padding.
// The last byte is always NUL so readers can rely on termination.
func (w *Writer) FixedString(s string, n int) {
	if n <= 0 {
		return
	}
	if len(s) > n-1 {
		s = s[:n-1]
	}
	w.buf = append(w.buf, s...)
	for i := len(s); i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// Reader consumes little-endian fields from a payload. The first out-of-bounds
// read latches ErrShortPayload; later reads return zero values so decoders can
// read a whole record and check Err once.
type Reader struct {
	b   []byte
	off int
	err error
}

func NewReader(b []byte) *Reader { return &Reader{b: b} }

func (r *Reader) Err() error     { return r.err }
func (r *Reader) Remaining() int { return len(r.b) - r.off }
func (r *Reader) Offset() int    { return r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortPayload, n, r.off, r.Remaining())
		return nil
	}
	b := r.b[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool { return r.U8() != 0 }

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) I32() int32 { return int32(r.U32()) }

func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }

// Raw returns the next n bytes without copying.
func (r *Reader) Raw(n int) []byte { return r.take(n) }

// FixedString reads n bytes and trims at the first NUL.
func (r *Reader) FixedString(n int) string {
	b := r.take(n)
	if b == nil {
		return ""
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Header is the decoded 5-byte frame prefix.
type Header struct {
	Type        MessageType
	PayloadSize uint32
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortPayload
	}
	return Header{
		Type:        MessageType(b[0]),
		PayloadSize: binary.LittleEndian.Uint32(b[1:HeaderSize]),
	}, nil
}

// Frame builds a complete frame from a type and payload.
func Frame(t MessageType, payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	out[0] = byte(t)
	binary.LittleEndian.PutUint32(out[1:HeaderSize], uint32(len(payload)))
	copy(out[HeaderSize:], payload)
	return out
}

// ReadFrame reads one header and then exactly PayloadSize bytes. Frames larger
// than maxPayload are rejected before any payload is allocated.
func ReadFrame(r io.Reader, maxPayload uint32) (MessageType, []byte, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	h, _ := DecodeHeader(hdr[:])
	if maxPayload > 0 && h.PayloadSize > maxPayload {
		return h.Type, nil, fmt.Errorf("%w: %s payload_size=%d max=%d", ErrPayloadTooLarge, h.Type, h.PayloadSize, maxPayload)
	}
	if h.PayloadSize == 0 {
		return h.Type, nil, nil
	}
	payload := make([]byte, h.PayloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return h.Type, nil, err
	}
	return h.Type, payload, nil
}
