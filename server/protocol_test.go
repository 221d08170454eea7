package server

import "testing"

func TestPlayerStartRoundTrip(t *testing.T) {
	in := &PlayerStart{EntityID: 1500, X: 256, Y: 256, Range: 500, Seed: 0xdeadbeef}
	for _, st := range []SerializationType{SerJSON, SerBinary} {
		b, err := EncodeMessage(st, MsgPlayerStart, in)
		if err != nil {
			t.Fatalf("encode (mode %d): %v", st, err)
		}
		tag, err := DecodeTag(st, b)
		if err != nil || tag != MsgPlayerStart {
			t.Fatalf("tag (mode %d) = %d, %v", st, tag, err)
		}
		var out PlayerStart
		if err := DecodeMessage(st, MsgPlayerStart, b, &out); err != nil {
			t.Fatalf("decode (mode %d): %v", st, err)
		}
		if out != *in {
			t.Fatalf("round trip (mode %d): got %+v, want %+v", st, out, *in)
		}
	}
}

func TestDecodeRejectsWrongTag(t *testing.T) {
	b, err := EncodeMessage(SerBinary, MsgWhoami, &Whoami{Role: WhoamiClient})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var ps PlayerStart
	if err := DecodeMessage(SerBinary, MsgPlayerStart, b, &ps); err == nil {
		t.Fatalf("decode accepted a whoami frame as player start")
	}
}

func TestDecodeRejectsShortBinary(t *testing.T) {
	var echo ClockEcho
	if err := DecodeMessage(SerBinary, MsgClockEcho, []byte{MsgClockEcho, 1, 2}, &echo); err == nil {
		t.Fatalf("decode accepted a truncated echo")
	}
}

func TestParseSerialization(t *testing.T) {
	if st, err := ParseSerialization("binary"); err != nil || st != SerBinary {
		t.Fatalf("binary: got %d, %v", st, err)
	}
	if st, err := ParseSerialization(""); err != nil || st != SerJSON {
		t.Fatalf("empty: got %d, %v", st, err)
	}
	if _, err := ParseSerialization("msgpack"); err == nil {
		t.Fatalf("unknown mode accepted")
	}
}
