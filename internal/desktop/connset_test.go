package desktop

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/remotedeskd/remotedeskd/internal/workerpool"
	"github.com/remotedeskd/remotedeskd/internal/wsproto"
)

func newTestSession(t *testing.T) (*ClientSession, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	s := newClientSession(server)
	s.phase = phaseWebSocket
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

func readFrame(t *testing.T, r *bufio.Reader) wsproto.Frame {
	t.Helper()
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		consumed, frame, ok, perr := wsproto.ParseFrame(buf)
		if perr != nil {
			t.Fatalf("parse frame: %v", perr)
		}
		if ok {
			_ = consumed
			return frame
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
	}
}

func TestClientSessionWriteVideoFrame(t *testing.T) {
	s, client := newTestSession(t)
	reader := bufio.NewReader(client)

	done := make(chan error, 1)
	go func() { done <- s.writeVideoFrame(true, []byte{0xAA, 0xBB, 0xCC}) }()

	frame := readFrame(t, reader)
	if err := <-done; err != nil {
		t.Fatalf("writeVideoFrame: %v", err)
	}

	if frame.Opcode != wsproto.OpBinary {
		t.Fatalf("opcode = %v, want OpBinary", frame.Opcode)
	}
	want := append([]byte{0x01}, 0xAA, 0xBB, 0xCC, 0xDE, 0xAD, 0xBE, 0xEF)
	if string(frame.Payload) != string(want) {
		t.Fatalf("payload = %x, want %x", frame.Payload, want)
	}
}

func TestClientSessionWriteVideoFrame_NonKeyframeMeta(t *testing.T) {
	s, client := newTestSession(t)
	reader := bufio.NewReader(client)

	done := make(chan error, 1)
	go func() { done <- s.writeVideoFrame(false, []byte{0x01}) }()

	frame := readFrame(t, reader)
	if err := <-done; err != nil {
		t.Fatalf("writeVideoFrame: %v", err)
	}
	if frame.Payload[0] != 0x00 {
		t.Fatalf("meta byte = %x, want 0x00 for non-keyframe", frame.Payload[0])
	}
}

func TestClientSessionWriteControlFrame(t *testing.T) {
	s, client := newTestSession(t)
	reader := bufio.NewReader(client)

	done := make(chan error, 1)
	go func() { done <- s.writeControlFrame(wsproto.OpText, []byte(`{"type":"init"}`)) }()

	frame := readFrame(t, reader)
	if err := <-done; err != nil {
		t.Fatalf("writeControlFrame: %v", err)
	}
	if frame.Opcode != wsproto.OpText {
		t.Fatalf("opcode = %v, want OpText", frame.Opcode)
	}
	if string(frame.Payload) != `{"type":"init"}` {
		t.Fatalf("payload = %q", frame.Payload)
	}
}

func TestConnectionSetAddRemoveCount(t *testing.T) {
	pool := workerpool.New(2, 8)
	cs := NewConnectionSet(pool)

	s1, c1 := newTestSession(t)
	s2, c2 := newTestSession(t)
	defer c1.Close()
	defer c2.Close()

	cs.Add(s1)
	cs.Add(s2)
	if cs.Count() != 2 {
		t.Fatalf("count = %d, want 2", cs.Count())
	}

	cs.Remove(s1.ID)
	if cs.Count() != 1 {
		t.Fatalf("count after remove = %d, want 1", cs.Count())
	}

	select {
	case <-s1.closed:
	case <-time.After(time.Second):
		t.Fatal("removed session was not closed")
	}
}

func TestConnectionSetBroadcastReachesAllViewers(t *testing.T) {
	pool := workerpool.New(4, 16)
	cs := NewConnectionSet(pool)

	s1, c1 := newTestSession(t)
	s2, c2 := newTestSession(t)
	defer c1.Close()
	defer c2.Close()
	cs.Add(s1)
	cs.Add(s2)

	r1 := bufio.NewReader(c1)
	r2 := bufio.NewReader(c2)

	cs.Broadcast(true, []byte{0x42})

	f1 := readFrame(t, r1)
	f2 := readFrame(t, r2)
	if f1.Opcode != wsproto.OpBinary || f2.Opcode != wsproto.OpBinary {
		t.Fatal("expected binary frames on both viewers")
	}
}

func TestInitMessageFormatsJSON(t *testing.T) {
	got := string(InitMessage(1280, 720, CodecVP8))
	want := `{"type":"init","width":1280,"height":720,"codec":"vp8"}`
	if got != want {
		t.Fatalf("InitMessage = %s, want %s", got, want)
	}
}
