package desktop

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/remotedeskd/remotedeskd/internal/logging"
	"github.com/remotedeskd/remotedeskd/internal/workerpool"
	"github.com/remotedeskd/remotedeskd/internal/wsproto"
)

var log = logging.L("desktop")

// videoMagic trails every broadcast video payload so a viewer that loses
// frame sync can resynchronize by scanning for it.
var videoMagic = [4]byte{0xDE, 0xAD, 0xBE, 0xEF}

const writeDeadline = 5 * time.Second

// sessionPhase tracks where a connection sits in the upgrade sequence. A
// connection starts in the TLS handshake (handled by tls.Listener before
// ClientSession ever sees it), moves through the plaintext-over-TLS HTTP
// request once bytes arrive, and becomes a WebSocket once the upgrade
// response is written.
type sessionPhase int

const (
	phaseHTTPRequest sessionPhase = iota
	phaseWebSocket
)

// ClientSession is one viewer connection: a goroutine reads frames from it
// and pushes decoded InputEvents to a ControlPlane, while CaptureLoop writes
// video frames to it via ConnectionSet.Broadcast. Both directions share the
// same net.Conn, so writes take writeMu.
type ClientSession struct {
	ID         string
	conn       net.Conn
	remoteAddr string

	writeMu sync.Mutex
	phase   sessionPhase

	closeOnce sync.Once
	closed    chan struct{}
}

func newClientSession(conn net.Conn) *ClientSession {
	return &ClientSession{
		ID:         uuid.NewString(),
		conn:       conn,
		remoteAddr: conn.RemoteAddr().String(),
		phase:      phaseHTTPRequest,
		closed:     make(chan struct{}),
	}
}

// writeControlFrame sends a text or control WebSocket frame (JSON init
// message, ping/pong, close).
func (s *ClientSession) writeControlFrame(opcode wsproto.Opcode, payload []byte) error {
	header, body := wsproto.EncodeServerFrame(opcode, payload)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	buffers := net.Buffers{header, body}
	_, err := buffers.WriteTo(s.conn)
	return err
}

// writeVideoFrame assembles the [meta(1B)][frame][0xDEADBEEF] payload and
// writes it as a single unmasked binary WebSocket frame using a scatter/
// gather write, so the (potentially large) encoded frame is never copied
// into an intermediate buffer.
func (s *ClientSession) writeVideoFrame(isKeyframe bool, encoded []byte) error {
	meta := []byte{0x00}
	if isKeyframe {
		meta[0] = 0x01
	}
	payloadLen := len(meta) + len(encoded) + len(videoMagic)
	header := wsproto.ServerFrameHeader(wsproto.OpBinary, payloadLen)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	buffers := net.Buffers{header, meta, encoded, videoMagic[:]}
	_, err := buffers.WriteTo(s.conn)
	return err
}

func (s *ClientSession) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}

// ConnectionSet tracks every live viewer connection and fans out video
// frames to them concurrently through a bounded worker pool, so one slow
// viewer's write cannot stall the capture loop or the other viewers.
type ConnectionSet struct {
	mu       sync.RWMutex
	sessions map[string]*ClientSession
	pool     *workerpool.Pool
}

func NewConnectionSet(pool *workerpool.Pool) *ConnectionSet {
	return &ConnectionSet{
		sessions: make(map[string]*ClientSession),
		pool:     pool,
	}
}

func (cs *ConnectionSet) Add(s *ClientSession) {
	cs.mu.Lock()
	cs.sessions[s.ID] = s
	cs.mu.Unlock()
	log.Info("viewer connected", "session", s.ID, "remote", s.remoteAddr)
}

func (cs *ConnectionSet) Remove(id string) {
	cs.mu.Lock()
	s, ok := cs.sessions[id]
	delete(cs.sessions, id)
	cs.mu.Unlock()
	if ok {
		s.close()
		log.Info("viewer disconnected", "session", id)
	}
}

func (cs *ConnectionSet) Count() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.sessions)
}

// Broadcast fans out one encoded video frame to every connected viewer. A
// write failure drops that viewer (the failed write's pool task removes it
// from the set, closing its connection) rather than blocking the others.
func (cs *ConnectionSet) Broadcast(isKeyframe bool, encoded []byte) {
	cs.mu.RLock()
	targets := make([]*ClientSession, 0, len(cs.sessions))
	for _, s := range cs.sessions {
		targets = append(targets, s)
	}
	cs.mu.RUnlock()

	for _, s := range targets {
		s := s
		submitted := cs.pool.Submit(func() {
			if err := s.writeVideoFrame(isKeyframe, encoded); err != nil {
				log.Warn("viewer write failed, dropping", "session", s.ID, "error", err)
				cs.Remove(s.ID)
			}
		})
		if !submitted {
			log.Warn("broadcast pool saturated, dropping frame for viewer", "session", s.ID)
		}
	}
}

// BroadcastText sends a text WebSocket frame (the init JSON message) to
// every connected viewer.
func (cs *ConnectionSet) BroadcastText(payload []byte) {
	cs.mu.RLock()
	targets := make([]*ClientSession, 0, len(cs.sessions))
	for _, s := range cs.sessions {
		targets = append(targets, s)
	}
	cs.mu.RUnlock()

	for _, s := range targets {
		if err := s.writeControlFrame(wsproto.OpText, payload); err != nil {
			log.Warn("viewer text write failed, dropping", "session", s.ID, "error", err)
			cs.Remove(s.ID)
		}
	}
}

// BroadcastBinary sends a binary WebSocket frame (a clipboard update
// encoded as an InputEvent, or any other control-plane traffic that isn't a
// video frame) to every connected viewer.
func (cs *ConnectionSet) BroadcastBinary(payload []byte) {
	cs.mu.RLock()
	targets := make([]*ClientSession, 0, len(cs.sessions))
	for _, s := range cs.sessions {
		targets = append(targets, s)
	}
	cs.mu.RUnlock()

	for _, s := range targets {
		if err := s.writeControlFrame(wsproto.OpBinary, payload); err != nil {
			log.Warn("viewer binary write failed, dropping", "session", s.ID, "error", err)
			cs.Remove(s.ID)
		}
	}
}

// InitMessage returns the JSON welcome message re-sent on every (re)start of
// capture, including codec/resolution changes.
func InitMessage(width, height int, codec Codec) []byte {
	return fmt.Appendf(nil, `{"type":"init","width":%d,"height":%d,"codec":%q}`, width, height, string(codec))
}
