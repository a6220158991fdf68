package desktop

import (
	"sync/atomic"

	"github.com/remotedeskd/remotedeskd/internal/clipboard"
	"github.com/remotedeskd/remotedeskd/internal/protocol"
)

// ControlPlane dispatches a decoded InputEvent to the collaborator that
// owns its effect: mouse/key events go to the InputSink, ping updates the
// CongestionGovernor and echoes the event back, resolution/codec/fps
// changes go to the Supervisor (which serializes them against the capture
// loop), and clipboard text goes to the clipboard sync.
type ControlPlane struct {
	sink       InputSink
	supervisor *Supervisor
	governor   *CongestionGovernor
	clipboard  *clipboard.Sync

	lastRTTMs int32

	unknownEvents atomic.Uint64
}

func NewControlPlane(sink InputSink, supervisor *Supervisor, governor *CongestionGovernor, clip *clipboard.Sync) *ControlPlane {
	if sink == nil {
		sink = NullSink{}
	}
	return &ControlPlane{
		sink:       sink,
		supervisor: supervisor,
		governor:   governor,
		clipboard:  clip,
	}
}

// ReplyFunc sends a binary WebSocket frame back to the session an InputEvent
// arrived on. Dispatch uses it to echo PING events; nil means there is
// nowhere to echo to (tests that don't care about the echo).
type ReplyFunc func(payload []byte) error

// Dispatch routes one decoded wire event. raw is the event's original wire
// encoding, echoed back verbatim for a PING. It never blocks on the
// network beyond that single echo write. Resolution, codec and fps changes
// are queued on the Supervisor's event channel; mouse/key packets and
// clipboard text are handed to the InputSink and the clipboard sync
// synchronously, so Dispatch returns only after those calls do.
func (cp *ControlPlane) Dispatch(ev protocol.InputEvent, raw []byte, reply ReplyFunc) {
	switch ev.Type {
	case protocol.EventMouse:
		if ev.Mouse == nil {
			cp.logMalformed(ev.Type)
			return
		}
		cp.dispatchMouse(ev.Mouse)
	case protocol.EventKey:
		if ev.Key == nil {
			cp.logMalformed(ev.Type)
			return
		}
		cp.dispatchKey(ev.Key)
	case protocol.EventPing:
		if ev.Ping == nil {
			cp.logMalformed(ev.Type)
			return
		}
		cp.lastRTTMs = ev.Ping.LastRTTMs
		if cp.governor != nil {
			cp.governor.ReportRTT(ev.Ping.LastRTTMs)
		}
		if reply != nil {
			if err := reply(raw); err != nil {
				log.Warn("ping echo failed", "error", err)
			}
		}
	case protocol.EventResolution:
		if ev.Resolution == nil {
			cp.logMalformed(ev.Type)
			return
		}
		if cp.supervisor != nil {
			cp.supervisor.ChangeResolution(int(ev.Resolution.Width), int(ev.Resolution.Height))
		}
	case protocol.EventCodec:
		if ev.Codec == nil {
			cp.logMalformed(ev.Type)
			return
		}
		if cp.supervisor != nil {
			cp.supervisor.ChangeCodec(Codec(ev.Codec.Codec))
		}
	case protocol.EventClipboard:
		if ev.Clipboard == nil {
			cp.logMalformed(ev.Type)
			return
		}
		if cp.clipboard != nil {
			_ = cp.clipboard.ApplyRemote(ev.Clipboard.Text)
		}
	case protocol.EventFPS:
		if ev.FPS == nil {
			cp.logMalformed(ev.Type)
			return
		}
		if cp.supervisor != nil {
			cp.supervisor.ChangeFPS(int(ev.FPS.FPS))
		}
	default:
		cp.logMalformed(ev.Type)
	}
}

// logMalformed records an InputEvent whose Type tag didn't match a
// populated payload field, or that carried a Type outside the known enum,
// matching PacketHandlerFactory's unrecognized-type default case: counted
// rather than silently dropped, logged at debug rather than warn since a
// single malformed frame from a viewer is not operationally significant.
func (cp *ControlPlane) logMalformed(t protocol.EventType) {
	cp.unknownEvents.Add(1)
	log.Debug("control plane received unknown or malformed event", "type", t)
}

// UnknownEventCount reports how many InputEvents of an unrecognized or
// incompletely-populated type Dispatch has seen, for diagnostics.
func (cp *ControlPlane) UnknownEventCount() uint64 {
	return cp.unknownEvents.Load()
}

// dispatchMouse clamps normalized [0,1] coordinates and carries them, along
// with the full button bitmask, straight onto the DriverPacket. Scaling to
// device pixels and picking a single button out of the mask is the
// InputSink's job, not the control plane's.
func (cp *ControlPlane) dispatchMouse(m *protocol.MouseEvent) {
	x := clampFloat(m.X, 0.0, 1.0)
	y := clampFloat(m.Y, 0.0, 1.0)

	pkt := DriverPacket{
		Kind:       EventMouseMove,
		X:          x,
		Y:          y,
		Buttons:    m.Buttons,
		WheelDelta: m.WheelY,
	}
	if m.Buttons != 0 {
		pkt.Kind = EventMouseButton
		pkt.Pressed = true
	}
	if m.WheelX != 0 || m.WheelY != 0 {
		pkt.Kind = EventMouseWheel
	}

	if err := cp.sink.Dispatch(pkt); err != nil {
		log.Warn("mouse dispatch failed", "error", err)
	}
}

func (cp *ControlPlane) dispatchKey(k *protocol.KeyEvent) {
	scancode := k.KeyCode
	charcode := k.KeyUTF32
	if info, ok := KeyCodeFor(k.KeyString); ok {
		if scancode == 0 {
			scancode = info.Scancode
		}
		if charcode == 0 {
			charcode = info.Charcode
		}
	}
	if k.Modifiers&modifierControl != 0 {
		charcode = CollapseControlChar(charcode)
	}

	kind := EventKeyUp
	if k.Down {
		kind = EventKeyDown
	}

	pkt := DriverPacket{
		Kind:     kind,
		Pressed:  k.Down,
		Scancode: scancode,
		Charcode: charcode,
	}
	if err := cp.sink.Dispatch(pkt); err != nil {
		log.Warn("key dispatch failed", "error", err)
	}
}

// Modifier bitmask values carried in KeyEvent.Modifiers, matching the
// wire convention documented alongside the keyboard event.
const (
	modifierShift = 1 << 0
	modifierControl = 1 << 1
	modifierAlt     = 1 << 2
	modifierMeta    = 1 << 3
)

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
