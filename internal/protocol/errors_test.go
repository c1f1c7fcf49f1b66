package protocol

import "testing"

func TestIsKnownReason(t *testing.T) {
	cases := []string{
		"",
		RejectServerFull,
		RejectBadRequest,
		RejectWorldBusy,
		RejectShuttingDown,
		RejectInternal,
	}
	for _, c := range cases {
		if !IsKnownReason(c) {
			t.Fatalf("expected known reason: %q", c)
		}
	}
	if IsKnownReason("E_NOT_DEFINED") {
		t.Fatalf("expected unknown reason rejected")
	}
}
