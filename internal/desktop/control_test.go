package desktop

import (
	"testing"

	"github.com/remotedeskd/remotedeskd/internal/protocol"
)

type recordingSink struct {
	packets []DriverPacket
}

func (r *recordingSink) Dispatch(pkt DriverPacket) error {
	r.packets = append(r.packets, pkt)
	return nil
}

func TestDispatchMouseClampsCoordinates(t *testing.T) {
	sink := &recordingSink{}
	cp := NewControlPlane(sink, nil, nil, nil)

	// X=1.5,Y=-0.2 clamp to 1.0,0.0, per the wire contract's worked example
	// (DriverPacket x=1.0, y=0.0, buttons=1).
	cp.dispatchMouse(&protocol.MouseEvent{X: 1.5, Y: -0.2, Buttons: 1})

	if len(sink.packets) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(sink.packets))
	}
	got := sink.packets[0]
	if got.X != 1.0 || got.Y != 0.0 {
		t.Fatalf("X,Y = %v,%v, want 1.0,0.0", got.X, got.Y)
	}
	if got.Kind != EventMouseButton {
		t.Fatalf("kind = %v, want EventMouseButton", got.Kind)
	}
	if got.Buttons != 1 {
		t.Fatalf("buttons = %d, want 1", got.Buttons)
	}
}

func TestDispatchMouseWheelSetsWheelKind(t *testing.T) {
	sink := &recordingSink{}
	cp := NewControlPlane(sink, nil, nil, nil)

	cp.dispatchMouse(&protocol.MouseEvent{X: 0.5, Y: 0.5, WheelY: 7})

	got := sink.packets[0]
	if got.Kind != EventMouseWheel {
		t.Fatalf("kind = %v, want EventMouseWheel", got.Kind)
	}
	if got.WheelDelta != 7 {
		t.Fatalf("wheelDelta = %d, want 7", got.WheelDelta)
	}
}

func TestDispatchKeyCollapsesControlChar(t *testing.T) {
	sink := &recordingSink{}
	cp := NewControlPlane(sink, nil, nil, nil)

	cp.dispatchKey(&protocol.KeyEvent{Down: true, Modifiers: modifierControl, KeyUTF32: 'c'})

	got := sink.packets[0]
	if got.Charcode != 'c'-96 {
		t.Fatalf("charcode = %d, want %d (ctrl-c)", got.Charcode, 'c'-96)
	}
	if !got.Pressed || got.Kind != EventKeyDown {
		t.Fatal("expected a key-down packet")
	}
}

func TestDispatchKeyResolvesFromKeyString(t *testing.T) {
	sink := &recordingSink{}
	cp := NewControlPlane(sink, nil, nil, nil)

	cp.dispatchKey(&protocol.KeyEvent{Down: false, KeyString: "Enter"})

	if len(sink.packets) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(sink.packets))
	}
	got := sink.packets[0]
	if got.Kind != EventKeyUp {
		t.Fatalf("kind = %v, want EventKeyUp", got.Kind)
	}
	if got.Scancode != 0x47 || got.Charcode != 0x0a {
		t.Fatalf("scancode,charcode = %#x,%#x, want 0x47,0x0a from the Enter entry", got.Scancode, got.Charcode)
	}
}

func TestDispatchPingUpdatesLastRTT(t *testing.T) {
	governor := NewCongestionGovernor(nil, 2000)
	cp := NewControlPlane(nil, nil, governor, nil)

	cp.Dispatch(protocol.InputEvent{Type: protocol.EventPing, Ping: &protocol.PingEvent{LastRTTMs: 42}}, nil, nil)

	if cp.lastRTTMs != 42 {
		t.Fatalf("lastRTTMs = %d, want 42", cp.lastRTTMs)
	}
}

func TestDispatchPingEchoesRawPayload(t *testing.T) {
	cp := NewControlPlane(nil, nil, nil, nil)
	raw := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	var echoed []byte
	cp.Dispatch(protocol.InputEvent{Type: protocol.EventPing, Ping: &protocol.PingEvent{LastRTTMs: 5}}, raw, func(payload []byte) error {
		echoed = payload
		return nil
	})

	if string(echoed) != string(raw) {
		t.Fatalf("echoed = %x, want %x", echoed, raw)
	}
}

func TestClampFloat(t *testing.T) {
	cases := []struct{ v, lo, hi, want float64 }{
		{1.5, 0, 1, 1},
		{-0.2, 0, 1, 0},
		{0.5, 0, 1, 0.5},
	}
	for _, c := range cases {
		if got := clampFloat(c.v, c.lo, c.hi); got != c.want {
			t.Fatalf("clampFloat(%v,%v,%v) = %v, want %v", c.v, c.lo, c.hi, got, c.want)
		}
	}
}
