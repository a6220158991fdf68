package desktop

import (
	"testing"
	"time"

	"github.com/remotedeskd/remotedeskd/internal/protocol"
	"github.com/remotedeskd/remotedeskd/internal/tlsserver"
	"github.com/remotedeskd/remotedeskd/internal/workerpool"
	"github.com/remotedeskd/remotedeskd/internal/wsutil"
)

// TestEndToEndViewerReceivesInitAndVideo drives the server with a real
// RFC-6455 client (gorilla/websocket, via internal/wsutil) rather than the
// server's own wsproto implementation, exercising the TLS handshake, the
// HTTP upgrade, the init JSON welcome frame, and at least one broadcast
// video frame the way a browser viewer actually would.
func TestEndToEndViewerReceivesInitAndVideo(t *testing.T) {
	listener, err := tlsserver.Listen("127.0.0.1:0", "", "")
	if err != nil {
		t.Fatalf("tlsserver.Listen: %v", err)
	}
	defer listener.Close()

	pool := workerpool.New(4, 16)
	conns := NewConnectionSet(pool)
	source := NewPatternSource(32, 32)
	encoder := &VideoEncoder{cfg: DefaultEncoderConfig(), backend: &fakeEncoderBackend{}}
	supervisor := NewSupervisor(source, encoder, conns)
	defer supervisor.Close()

	sink := &recordingSink{}
	control := NewControlPlane(sink, supervisor, nil, nil)
	srv := NewServer(listener, t.TempDir(), conns, supervisor, control, nil)
	go srv.Serve()

	client, err := wsutil.Dial(listener.Addr().String(), "", true)
	if err != nil {
		t.Fatalf("wsutil.Dial: %v", err)
	}
	defer client.Close()

	payload, isText, err := client.ReadInit()
	if err != nil {
		t.Fatalf("ReadInit: %v", err)
	}
	if !isText {
		t.Fatal("expected the first frame to be a text init message")
	}
	if string(payload) == "" {
		t.Fatal("expected a non-empty init message")
	}

	frame, err := client.ReadVideoFrame()
	if err != nil {
		t.Fatalf("ReadVideoFrame: %v", err)
	}
	if len(frame.Packet) == 0 {
		t.Fatal("expected a non-empty encoded packet")
	}

	mouse := protocol.Marshal(nil, protocol.InputEvent{
		Type:  protocol.EventMouse,
		Mouse: &protocol.MouseEvent{X: 0.25, Y: 0.75, Buttons: 1},
	})
	if err := client.SendInput(mouse); err != nil {
		t.Fatalf("SendInput: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for len(sink.packets) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if len(sink.packets) == 0 {
		t.Fatal("expected the mouse event to reach the input sink")
	}
}
