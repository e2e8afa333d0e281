package protocol

import (
	"testing"

	"hark/pkg/util"
)

func TestParseValid(t *testing.T) {
	cases := []struct {
		name string
		line string
		want Message
	}{
		{
			"no args",
			"HARK:OK:HALT:WHEELLY",
			Message{To: "HARK", Verb: "OK", Noun: "HALT", From: "WHEELLY"},
		},
		{
			"with args",
			"WHEELLY:MOVE:TO:1.5:-2:HARK",
			Message{To: "WHEELLY", Verb: "MOVE", Noun: "TO", Args: []string{"1.5", "-2"}, From: "HARK"},
		},
		{
			"broadcast",
			"ALL:PING:HUB:HARK",
			Message{To: "ALL", Verb: "PING", Noun: "HUB", From: "HARK"},
		},
		{
			"verb upcased",
			"WHEELLY:move:to:0:0:HARK",
			Message{To: "WHEELLY", Verb: "MOVE", Noun: "TO", Args: []string{"0", "0"}, From: "HARK"},
		},
	}

	eq := func(a, b string) bool { return a == b }

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.line)
			if err != nil {
				t.Fatalf("parse %q: %v", tc.line, err)
			}
			if got.To != tc.want.To || got.Verb != tc.want.Verb ||
				got.Noun != tc.want.Noun || got.From != tc.want.From {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
			if !util.EqualSlices(got.Args, tc.want.Args, eq, false) {
				t.Fatalf("args %v, want %v", got.Args, tc.want.Args)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"too few fields", "WHEELLY:MOVE:HARK"},
		{"inner whitespace", "WHEELLY:MOVE TO:1:HARK"},
		{"bad to token", "WHE ELLY:MOVE:TO:HARK"},
		{"bad arg token", "WHEELLY:MOVE:TO:1 5:HARK"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.line); err == nil {
				t.Fatalf("parse %q succeeded, want error", tc.line)
			}
		})
	}
}

func TestMessageStringRoundTrip(t *testing.T) {
	orig := Message{
		To:   "WHEELLY",
		Verb: "MOVE",
		Noun: "TO",
		Args: []string{"1.5", "-2"},
		From: "HARK",
	}

	got, err := Parse(orig.String())
	if err != nil {
		t.Fatalf("parse round trip: %v", err)
	}
	if got.String() != orig.String() {
		t.Fatalf("round trip %q != %q", got.String(), orig.String())
	}
}

func TestMessageOkErr(t *testing.T) {
	m := Message{To: "HARK", From: "WHEELLY"}

	m.Ok("MOVE", "done")
	if m.Verb != "OK" || m.Noun != "MOVE" || len(m.Args) != 1 {
		t.Fatalf("ok message %+v", m)
	}

	m.Error("MOVE", "blocked")
	if m.Verb != "ERR" || m.Noun != "MOVE" || m.Args[0] != "blocked" {
		t.Fatalf("err message %+v", m)
	}
}

func TestForUs(t *testing.T) {
	ptcl := &Protocol{shard: "HARK"}

	if !ptcl.forUs([]byte("HARK:OK:MOVE:WHEELLY")) {
		t.Fatal("message for us was filtered")
	}
	if ptcl.forUs([]byte("WHEELLY:MOVE:TO:1:2:HARK")) {
		t.Fatal("foreign message slipped through")
	}
}
