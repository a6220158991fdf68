package wsproto

import (
	"bytes"
	"testing"
)

func TestParseFrame_IncompleteNeverMutates(t *testing.T) {
	full := append(encodeHeader(true, OpBinary, false, 5), []byte("hello")...)

	for n := 0; n < len(full); n++ {
		partial := append([]byte(nil), full[:n]...)
		snapshot := append([]byte(nil), partial...)

		consumed, _, ok, err := ParseFrame(partial)
		if err != nil {
			t.Fatalf("unexpected error at n=%d: %v", n, err)
		}
		if ok {
			t.Fatalf("expected incomplete at n=%d, got ok=true", n)
		}
		if consumed != 0 {
			t.Fatalf("expected consumed=0 at n=%d, got %d", n, consumed)
		}
		if !bytes.Equal(partial, snapshot) {
			t.Fatalf("ParseFrame mutated its input buffer at n=%d", n)
		}
	}
}

func TestParseFrame_UnmaskedBinaryRoundTrip(t *testing.T) {
	payload := []byte("frame-payload")
	header, body := EncodeServerFrame(OpBinary, payload)
	wire := append(append([]byte(nil), header...), body...)

	consumed, frame, ok, err := ParseFrame(wire)
	if err != nil || !ok {
		t.Fatalf("expected successful parse, got ok=%v err=%v", ok, err)
	}
	if consumed != len(wire) {
		t.Fatalf("expected consumed=%d, got %d", len(wire), consumed)
	}
	if frame.Opcode != OpBinary || !frame.Fin {
		t.Fatalf("unexpected frame fields: %+v", frame)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("payload mismatch: got %q want %q", frame.Payload, payload)
	}
	if frame.Masked {
		t.Fatal("expected Masked=false for a server frame")
	}
}

func TestParseFrame_MaskedClientFrame(t *testing.T) {
	payload := []byte("client says hi")
	wire := EncodeClientFrame(OpText, payload)

	consumed, frame, ok, err := ParseFrame(wire)
	if err != nil || !ok {
		t.Fatalf("expected successful parse, got ok=%v err=%v", ok, err)
	}
	if consumed != len(wire) {
		t.Fatalf("expected full consumption, got %d of %d", consumed, len(wire))
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("unmask mismatch: got %q want %q", frame.Payload, payload)
	}
	if !frame.Masked {
		t.Fatal("expected Masked=true for a client frame")
	}
}

func TestParseFrame_RejectsOversizedControlFrame(t *testing.T) {
	header := encodeHeader(true, OpPing, false, 126)
	wire := append(header, make([]byte, 126)...)

	_, _, ok, err := ParseFrame(wire)
	if ok || err != ErrProtocol {
		t.Fatalf("expected ErrProtocol for oversized control frame, got ok=%v err=%v", ok, err)
	}
}

func TestParseFrame_RejectsFragmentedControlFrame(t *testing.T) {
	var b0 byte = byte(OpPing) // Fin bit not set
	wire := []byte{b0, 0x00}

	_, _, ok, err := ParseFrame(wire)
	if ok || err != ErrProtocol {
		t.Fatalf("expected ErrProtocol for fragmented control frame, got ok=%v err=%v", ok, err)
	}
}

func TestParseFrame_16BitLength(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 500)
	header, body := EncodeServerFrame(OpBinary, payload)
	wire := append(append([]byte(nil), header...), body...)

	if header[1] != len16Marker {
		t.Fatalf("expected 16-bit length marker, got %d", header[1])
	}

	consumed, frame, ok, err := ParseFrame(wire)
	if err != nil || !ok || consumed != len(wire) {
		t.Fatalf("parse failed: ok=%v err=%v consumed=%d want=%d", ok, err, consumed, len(wire))
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("payload mismatch for 16-bit length frame")
	}
}

func TestParseFrame_TrailingBytesLeftForNextCall(t *testing.T) {
	header, body := EncodeServerFrame(OpBinary, []byte("abc"))
	wire := append(append([]byte(nil), header...), body...)
	wire = append(wire, []byte("next-frame-start")...)

	consumed, _, ok, err := ParseFrame(wire)
	if err != nil || !ok {
		t.Fatalf("expected ok parse, got ok=%v err=%v", ok, err)
	}
	if consumed != len(header)+len(body) {
		t.Fatalf("expected consumed to stop at frame boundary, got %d", consumed)
	}
}
