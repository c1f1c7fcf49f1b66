package main

import "testing"

func TestParsePort(t *testing.T) {
	cases := []struct {
		args    []string
		want    uint16
		wantErr bool
	}{
		{nil, 7777, false},
		{[]string{"9000"}, 9000, false},
		{[]string{"0"}, 0, true},
		{[]string{"70000"}, 0, true},
		{[]string{"abc"}, 0, true},
		{[]string{"1", "2"}, 0, true},
	}
	for _, c := range cases {
		got, err := parsePort(c.args)
		if (err != nil) != c.wantErr || got != c.want {
			t.Fatalf("parsePort(%v) = %d, %v", c.args, got, err)
		}
	}
}

func TestStartProfile_RejectsUnknownKind(t *testing.T) {
	if _, err := startProfile("block", t.TempDir()); err == nil {
		t.Fatalf("unknown profile kind accepted")
	}
}
