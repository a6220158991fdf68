package desktop

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/remotedeskd/remotedeskd/internal/protocol"
	"github.com/remotedeskd/remotedeskd/internal/workerpool"
	"github.com/remotedeskd/remotedeskd/internal/wsproto"
)

func newTestServer(t *testing.T, webRoot string) (*Server, *ConnectionSet, *Supervisor) {
	t.Helper()
	pool := workerpool.New(2, 8)
	conns := NewConnectionSet(pool)
	source := NewPatternSource(32, 32)
	encoder := &VideoEncoder{cfg: DefaultEncoderConfig(), backend: &fakeEncoderBackend{}}
	supervisor := NewSupervisor(source, encoder, conns)
	sink := &recordingSink{}
	control := NewControlPlane(sink, supervisor, nil, nil)
	srv := NewServer(nil, webRoot, conns, supervisor, control, nil)
	t.Cleanup(supervisor.Close)
	return srv, conns, supervisor
}

func handshakeRequest(key string) string {
	return "GET /ws HTTP/1.1\r\n" +
		"Host: localhost\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + key + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"
}

func TestServerHandleUpgradesWebSocket(t *testing.T) {
	srv, conns, _ := newTestServer(t, t.TempDir())

	server, client := net.Pipe()
	defer client.Close()
	go srv.handle(server)

	const key = "dGhlIHNhbXBsZSBub25jZQ=="
	if _, err := client.Write([]byte(handshakeRequest(key))); err != nil {
		t.Fatalf("write request: %v", err)
	}

	reader := bufio.NewReader(client)
	resp, err := http.ReadResponse(reader, nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d, want 101", resp.StatusCode)
	}

	wantAccept := acceptKeyFor(key)
	if got := resp.Header.Get("Sec-WebSocket-Accept"); got != wantAccept {
		t.Fatalf("accept key = %q, want %q", got, wantAccept)
	}

	deadline := time.Now().Add(time.Second)
	for conns.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if conns.Count() != 1 {
		t.Fatalf("conns.Count() = %d, want 1", conns.Count())
	}

	client.Close()
}

func TestServerReadLoopDispatchesInputEvent(t *testing.T) {
	srv, _, _ := newTestServer(t, t.TempDir())

	server, client := net.Pipe()
	defer client.Close()
	go srv.handle(server)

	const key = "dGhlIHNhbXBsZSBub25jZQ=="
	_, _ = client.Write([]byte(handshakeRequest(key)))
	reader := bufio.NewReader(client)
	if _, err := http.ReadResponse(reader, nil); err != nil {
		t.Fatalf("read response: %v", err)
	}

	payload := protocol.Marshal(nil, protocol.InputEvent{
		Type: protocol.EventMouse,
		Mouse: &protocol.MouseEvent{X: 0.5, Y: 0.5, Buttons: 1},
	})
	frame := wsproto.EncodeClientFrame(wsproto.OpBinary, payload)
	if _, err := client.Write(frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	sink := srv.control.sink.(*recordingSink)
	deadline := time.Now().Add(time.Second)
	for len(sink.packets) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if len(sink.packets) == 0 {
		t.Fatal("expected the mouse event to reach the input sink")
	}
}

func TestServerEchoesPingFrame(t *testing.T) {
	srv, _, _ := newTestServer(t, t.TempDir())

	server, client := net.Pipe()
	defer client.Close()
	go srv.handle(server)

	const key = "dGhlIHNhbXBsZSBub25jZQ=="
	_, _ = client.Write([]byte(handshakeRequest(key)))
	reader := bufio.NewReader(client)
	if _, err := http.ReadResponse(reader, nil); err != nil {
		t.Fatalf("read response: %v", err)
	}

	payload := protocol.Marshal(nil, protocol.InputEvent{
		Type: protocol.EventPing,
		Ping: &protocol.PingEvent{LastRTTMs: 17},
	})
	if _, err := client.Write(wsproto.EncodeClientFrame(wsproto.OpBinary, payload)); err != nil {
		t.Fatalf("write ping frame: %v", err)
	}

	done := make(chan wsproto.Frame, 1)
	go func() {
		// The first viewer's join also sends this session an init text frame
		// and video frames; skip them until the echo arrives.
		for {
			f := readFrame(t, reader)
			if f.Opcode == wsproto.OpBinary && string(f.Payload) == string(payload) {
				done <- f
				return
			}
		}
	}()

	select {
	case echo := <-done:
		if echo.Opcode != wsproto.OpBinary {
			t.Fatalf("opcode = %v, want OpBinary", echo.Opcode)
		}
		if string(echo.Payload) != string(payload) {
			t.Fatalf("echoed payload = %x, want %x", echo.Payload, payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ping echo")
	}
}

func TestServerReadLoopRejectsUnmaskedFrame(t *testing.T) {
	srv, conns, _ := newTestServer(t, t.TempDir())

	server, client := net.Pipe()
	defer client.Close()
	go srv.handle(server)

	const key = "dGhlIHNhbXBsZSBub25jZQ=="
	_, _ = client.Write([]byte(handshakeRequest(key)))
	reader := bufio.NewReader(client)
	if _, err := http.ReadResponse(reader, nil); err != nil {
		t.Fatalf("read response: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for conns.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	payload := protocol.Marshal(nil, protocol.InputEvent{
		Type: protocol.EventPing,
		Ping: &protocol.PingEvent{LastRTTMs: 1},
	})
	header, body := wsproto.EncodeServerFrame(wsproto.OpBinary, payload) // unmasked, as a client frame must never be
	if _, err := client.Write(append(header, body...)); err != nil {
		t.Fatalf("write unmasked frame: %v", err)
	}

	deadline = time.Now().Add(time.Second)
	for conns.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if conns.Count() != 0 {
		t.Fatal("expected the session to be dropped after an unmasked client frame")
	}
}

func TestServerServeStaticReadsFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>hi</html>"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	srv, _, _ := newTestServer(t, root)
	server, client := net.Pipe()
	defer client.Close()
	go srv.handle(server)

	if _, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}

	reader := bufio.NewReader(client)
	resp, err := http.ReadResponse(reader, nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestServerServeStaticRejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	srv, _, _ := newTestServer(t, root)
	server, client := net.Pipe()
	defer client.Close()
	go srv.handle(server)

	if _, err := client.Write([]byte("GET /../../etc/passwd HTTP/1.1\r\nHost: localhost\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}

	reader := bufio.NewReader(client)
	resp, err := http.ReadResponse(reader, nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 403 or 404", resp.StatusCode)
	}
}

func acceptKeyFor(clientKey string) string {
	h := sha1.New()
	h.Write([]byte(clientKey))
	h.Write([]byte("258EAFA5-E914-47DA-95CA-C5AB0DC85B11"))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
