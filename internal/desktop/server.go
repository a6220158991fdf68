package desktop

import (
	"bufio"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/remotedeskd/remotedeskd/internal/protocol"
	"github.com/remotedeskd/remotedeskd/internal/tlsserver"
	"github.com/remotedeskd/remotedeskd/internal/wsproto"
)

const readDeadline = 60 * time.Second

// Server accepts TLS connections, serves the static viewer bundle over
// plain HTTP GET, upgrades WebSocket requests to ClientSessions, and wires
// decoded input events into a ControlPlane.
type Server struct {
	listener   net.Listener
	webRoot    string
	conns      *ConnectionSet
	supervisor *Supervisor
	control    *ControlPlane
	tokens     *tlsserver.TokenChecker
}

func NewServer(listener net.Listener, webRoot string, conns *ConnectionSet, supervisor *Supervisor, control *ControlPlane, tokens *tlsserver.TokenChecker) *Server {
	return &Server{
		listener:   listener,
		webRoot:    webRoot,
		conns:      conns,
		supervisor: supervisor,
		control:    control,
		tokens:     tokens,
	}
}

// Serve accepts connections until the listener is closed.
func (srv *Server) Serve() error {
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			return err
		}
		go srv.handle(conn)
	}
}

func (srv *Server) handle(conn net.Conn) {
	session := newClientSession(conn)
	reader := bufio.NewReader(conn)

	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	req, err := http.ReadRequest(reader)
	if err != nil {
		log.Debug("failed to read http request", "remote", session.remoteAddr, "error", err)
		_ = conn.Close()
		return
	}

	key, err := wsproto.ValidateUpgrade(req.Header)
	if err != nil {
		srv.serveStatic(conn, req)
		return
	}

	if srv.tokens != nil && !srv.tokens.Check(req.URL.Query().Get("token")) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		_, _ = io.WriteString(conn, "HTTP/1.1 401 Unauthorized\r\nConnection: close\r\n\r\n")
		_ = conn.Close()
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if _, err := conn.Write(wsproto.SwitchingProtocolsResponse(key)); err != nil {
		_ = conn.Close()
		return
	}

	session.phase = phaseWebSocket
	srv.conns.Add(session)
	srv.supervisor.ClientsConnected()
	if srv.supervisor.State() == StateStreaming {
		if loop := srv.supervisor.activeLoop(); loop != nil {
			loop.RequestKeyframe()
		}
		if init, ok := srv.supervisor.CurrentInit(); ok {
			if err := session.writeControlFrame(wsproto.OpText, init); err != nil {
				log.Warn("failed to send init to joining viewer", "session", session.ID, "error", err)
			}
		}
	}

	srv.readLoop(session, reader)

	srv.conns.Remove(session.ID)
	if srv.conns.Count() == 0 {
		srv.supervisor.NoClients()
	}
}

// readLoop consumes WebSocket frames from an upgraded connection until it
// closes or sends a Close frame, decoding each binary frame as one
// InputEvent and handing it to the control plane.
func (srv *Server) readLoop(session *ClientSession, reader *bufio.Reader) {
	var buf []byte
	chunk := make([]byte, 32*1024)

	reply := func(payload []byte) error {
		return session.writeControlFrame(wsproto.OpBinary, payload)
	}

	for {
		_ = session.conn.SetReadDeadline(time.Now().Add(readDeadline))
		n, err := reader.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			return
		}

		for {
			consumed, frame, ok, perr := wsproto.ParseFrame(buf)
			if perr != nil {
				log.Warn("websocket protocol error", "session", session.ID, "error", perr)
				return
			}
			if !ok {
				break
			}
			buf = buf[consumed:]

			if !frame.Masked {
				log.Warn("rejecting unmasked client frame", "session", session.ID, "opcode", frame.Opcode)
				return
			}

			if frame.IsControl() {
				if frame.Opcode == wsproto.OpClose {
					return
				}
				continue
			}
			if frame.Opcode != wsproto.OpBinary {
				continue
			}

			ev, err := protocol.Unmarshal(frame.Payload)
			if err != nil {
				log.Warn("bad input event", "session", session.ID, "error", err)
				continue
			}
			srv.control.Dispatch(ev, frame.Payload, reply)
		}
	}
}

func (srv *Server) serveStatic(conn net.Conn, req *http.Request) {
	defer conn.Close()

	clean := path.Clean("/" + req.URL.Path)
	if clean == "/" {
		clean = "/index.html"
	}
	full := filepath.Join(srv.webRoot, filepath.FromSlash(clean))
	if !strings.HasPrefix(full, filepath.Clean(srv.webRoot)+string(filepath.Separator)) {
		_, _ = io.WriteString(conn, "HTTP/1.1 403 Forbidden\r\nConnection: close\r\n\r\n")
		return
	}

	data, err := os.ReadFile(full)
	if err != nil {
		_, _ = io.WriteString(conn, "HTTP/1.1 404 Not Found\r\nConnection: close\r\n\r\n")
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(full))
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	headers := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: " + ctype + "\r\n" +
		"Content-Length: " + strconv.Itoa(len(data)) + "\r\n" +
		"Cache-Control: no-cache\r\n" +
		"Connection: close\r\n\r\n"
	_, _ = io.WriteString(conn, headers)
	_, _ = conn.Write(data)
}
