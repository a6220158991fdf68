// Package wsutil is a minimal WebSocket client used by the desktop test
// suite (e2e_test.go) to drive the server end-to-end as a real browser
// viewer would, over gorilla/websocket rather than the server's own
// hand-rolled framing (internal/wsproto). Using a separate, independently
// implemented client for these tests means a round-trip failure points at
// an actual interop bug rather than a shared assumption between the
// server's encoder and decoder.
package wsutil

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// VideoMagic trails every video payload the server broadcasts, letting a
// viewer that loses frame sync resynchronize by scanning for it.
var VideoMagic = [4]byte{0xDE, 0xAD, 0xBE, 0xEF}

// Client is a thin wrapper over a gorilla/websocket connection scoped to
// the remotedeskd wire protocol: one init JSON text frame, then a stream of
// [meta(1)][packet][magic] binary video frames interleaved with further
// text frames (clipboard updates), plus an outbound channel of InputEvent
// binary frames.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to a remotedeskd viewer endpoint. insecureSkipVerify is
// intended for tests against a self-signed certificate only.
func Dial(addr, token string, insecureSkipVerify bool) (*Client, error) {
	u := url.URL{Scheme: "wss", Host: addr, Path: "/ws"}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	dialer := websocket.Dialer{
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: insecureSkipVerify},
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("wsutil: dial %s: %w", u.String(), err)
	}
	return &Client{conn: conn}, nil
}

// ReadInit reads the next frame and returns it only if it is a text frame
// (the init/welcome JSON message or a clipboard update); binary frames
// return ok=false so the caller can fall back to ReadVideoFrame.
func (c *Client) ReadInit() (payload []byte, ok bool, err error) {
	mt, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, false, err
	}
	return data, mt == websocket.TextMessage, nil
}

// VideoFrame is one decoded broadcast frame.
type VideoFrame struct {
	Keyframe bool
	Packet   []byte
}

// ReadVideoFrame reads the next binary frame and splits it into its meta
// byte, encoded packet, and magic trailer, returning an error if the magic
// doesn't match (lost frame sync) or the frame isn't binary.
func (c *Client) ReadVideoFrame() (VideoFrame, error) {
	mt, data, err := c.conn.ReadMessage()
	if err != nil {
		return VideoFrame{}, err
	}
	if mt != websocket.BinaryMessage {
		return VideoFrame{}, fmt.Errorf("wsutil: expected binary frame, got type %d", mt)
	}
	if len(data) < 1+len(VideoMagic) {
		return VideoFrame{}, fmt.Errorf("wsutil: video frame too short (%d bytes)", len(data))
	}

	meta := data[0]
	packet := data[1 : len(data)-len(VideoMagic)]
	trailer := data[len(data)-len(VideoMagic):]
	for i, b := range VideoMagic {
		if trailer[i] != b {
			return VideoFrame{}, fmt.Errorf("wsutil: lost frame sync, bad magic trailer")
		}
	}

	return VideoFrame{Keyframe: meta == 0x01, Packet: packet}, nil
}

// SendInput writes one already-encoded InputEvent as a binary frame.
func (c *Client) SendInput(payload []byte) error {
	return c.conn.WriteMessage(websocket.BinaryMessage, payload)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
