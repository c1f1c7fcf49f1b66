package protocol

import "errors"

var (
	// ErrShortPayload is returned when a decoder would read past the end of
	// the declared payload.
	ErrShortPayload = errors.New("protocol: short payload")
	// ErrMalformed covers payloads that are long enough but semantically invalid.
	ErrMalformed = errors.New("protocol: malformed payload")
	// ErrPayloadTooLarge is returned by the frame reader when payload_size
	// exceeds the configured bound.
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
)

// ConnectionRejected reasons.
const (
	RejectServerFull   = "E_SERVER_FULL"
	RejectBadRequest   = "E_BAD_REQUEST"
	RejectWorldBusy    = "E_WORLD_BUSY"
	RejectShuttingDown = "E_SHUTTING_DOWN"
	RejectInternal     = "E_INTERNAL"
)

var knownReasons = map[string]struct{}{
	RejectServerFull:   {},
	RejectBadRequest:   {},
	RejectWorldBusy:    {},
	RejectShuttingDown: {},
	RejectInternal:     {},
}

func IsKnownReason(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownReasons[code]
	return ok
}
