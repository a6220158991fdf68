// Package protocol hand-encodes the InputEvent wire schema using
// protowire, the low-level varint/tag primitives underneath generated
// protobuf code. There is no .proto file or generated package here: the
// schema is small and fixed, so the wire format is written directly
// against the same library real protobuf code would use.
package protocol

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

func float64bits(v float64) uint64 { return math.Float64bits(v) }
func bitsFloat64(v uint64) float64 { return math.Float64frombits(v) }

// EventType is the InputEvent.type discriminator.
type EventType uint32

const (
	EventMouse      EventType = 1
	EventKey        EventType = 2
	EventPing       EventType = 3
	EventResolution EventType = 4
	EventCodec      EventType = 5
	EventClipboard  EventType = 6
	EventFPS        EventType = 7
)

// Field numbers for InputEvent and its sub-messages.
const (
	fieldEventType       = 1
	fieldEventMouse      = 2
	fieldEventKey        = 3
	fieldEventPing       = 4
	fieldEventResolution = 5
	fieldEventCodec      = 6
	fieldEventClipboard  = 7
	fieldEventFPS        = 8

	fieldMouseX       = 1
	fieldMouseY       = 2
	fieldMouseButtons = 3
	fieldMouseWheelX  = 4
	fieldMouseWheelY  = 5

	fieldKeyDown      = 1
	fieldKeyModifiers = 2
	fieldKeyCode      = 3
	fieldKeyUTF32     = 4
	fieldKeyString    = 5

	fieldPingLastRTTMs = 1

	fieldResolutionWidth  = 1
	fieldResolutionHeight = 2

	fieldCodecName = 1

	fieldClipboardText = 1

	fieldFPSValue = 1
)

type MouseEvent struct {
	X, Y           float64
	Buttons        uint32
	WheelX, WheelY int32
}

type KeyEvent struct {
	Down      bool
	Modifiers uint32
	KeyCode   uint32
	KeyUTF32  uint32
	KeyString string
}

type PingEvent struct {
	LastRTTMs int32
}

type ResolutionEvent struct {
	Width, Height uint32
}

type CodecChangeEvent struct {
	Codec string
}

type ClipboardEvent struct {
	Text string
}

type FPSChangeEvent struct {
	FPS int32
}

// InputEvent is the decoded tagged union. Exactly one of the pointer
// fields matching Type is expected to be set.
type InputEvent struct {
	Type       EventType
	Mouse      *MouseEvent
	Key        *KeyEvent
	Ping       *PingEvent
	Resolution *ResolutionEvent
	Codec      *CodecChangeEvent
	Clipboard  *ClipboardEvent
	FPS        *FPSChangeEvent
}

// Marshal appends the wire encoding of ev to dst and returns the result.
func Marshal(dst []byte, ev InputEvent) []byte {
	dst = protowire.AppendTag(dst, fieldEventType, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(ev.Type))

	switch {
	case ev.Mouse != nil:
		dst = appendSubmessage(dst, fieldEventMouse, marshalMouse(ev.Mouse))
	case ev.Key != nil:
		dst = appendSubmessage(dst, fieldEventKey, marshalKey(ev.Key))
	case ev.Ping != nil:
		dst = appendSubmessage(dst, fieldEventPing, marshalPing(ev.Ping))
	case ev.Resolution != nil:
		dst = appendSubmessage(dst, fieldEventResolution, marshalResolution(ev.Resolution))
	case ev.Codec != nil:
		dst = appendSubmessage(dst, fieldEventCodec, marshalCodec(ev.Codec))
	case ev.Clipboard != nil:
		dst = appendSubmessage(dst, fieldEventClipboard, marshalClipboard(ev.Clipboard))
	case ev.FPS != nil:
		dst = appendSubmessage(dst, fieldEventFPS, marshalFPS(ev.FPS))
	}
	return dst
}

func appendSubmessage(dst []byte, field protowire.Number, body []byte) []byte {
	dst = protowire.AppendTag(dst, field, protowire.BytesType)
	return protowire.AppendBytes(dst, body)
}

func marshalMouse(m *MouseEvent) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldMouseX, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, float64bits(m.X))
	b = protowire.AppendTag(b, fieldMouseY, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, float64bits(m.Y))
	b = protowire.AppendTag(b, fieldMouseButtons, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Buttons))
	b = protowire.AppendTag(b, fieldMouseWheelX, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(m.WheelX)))
	b = protowire.AppendTag(b, fieldMouseWheelY, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(m.WheelY)))
	return b
}

func marshalKey(k *KeyEvent) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldKeyDown, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(k.Down))
	b = protowire.AppendTag(b, fieldKeyModifiers, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(k.Modifiers))
	b = protowire.AppendTag(b, fieldKeyCode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(k.KeyCode))
	b = protowire.AppendTag(b, fieldKeyUTF32, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(k.KeyUTF32))
	if k.KeyString != "" {
		b = protowire.AppendTag(b, fieldKeyString, protowire.BytesType)
		b = protowire.AppendString(b, k.KeyString)
	}
	return b
}

func marshalPing(p *PingEvent) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldPingLastRTTMs, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(p.LastRTTMs)))
	return b
}

func marshalResolution(r *ResolutionEvent) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldResolutionWidth, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Width))
	b = protowire.AppendTag(b, fieldResolutionHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Height))
	return b
}

func marshalCodec(c *CodecChangeEvent) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldCodecName, protowire.BytesType)
	b = protowire.AppendString(b, c.Codec)
	return b
}

func marshalClipboard(c *ClipboardEvent) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldClipboardText, protowire.BytesType)
	b = protowire.AppendString(b, c.Text)
	return b
}

func marshalFPS(f *FPSChangeEvent) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldFPSValue, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(f.FPS)))
	return b
}

// Unmarshal decodes one InputEvent from buf. Unknown fields are skipped so
// the parser tolerates future additions.
func Unmarshal(buf []byte) (InputEvent, error) {
	var ev InputEvent
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return InputEvent{}, fmt.Errorf("protocol: bad tag: %w", protowire.ParseError(n))
		}
		buf = buf[n:]

		switch num {
		case fieldEventType:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return InputEvent{}, fmt.Errorf("protocol: bad type varint")
			}
			ev.Type = EventType(v)
			buf = buf[n:]
		case fieldEventMouse, fieldEventKey, fieldEventPing, fieldEventResolution,
			fieldEventCodec, fieldEventClipboard, fieldEventFPS:
			body, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return InputEvent{}, fmt.Errorf("protocol: bad submessage")
			}
			buf = buf[n:]
			if err := ev.decodeSub(num, body); err != nil {
				return InputEvent{}, err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return InputEvent{}, fmt.Errorf("protocol: bad unknown field")
			}
			buf = buf[n:]
		}
	}
	return ev, nil
}

func (ev *InputEvent) decodeSub(field protowire.Number, body []byte) error {
	switch field {
	case fieldEventMouse:
		m, err := unmarshalMouse(body)
		if err != nil {
			return err
		}
		ev.Mouse = m
	case fieldEventKey:
		k, err := unmarshalKey(body)
		if err != nil {
			return err
		}
		ev.Key = k
	case fieldEventPing:
		p, err := unmarshalPing(body)
		if err != nil {
			return err
		}
		ev.Ping = p
	case fieldEventResolution:
		r, err := unmarshalResolution(body)
		if err != nil {
			return err
		}
		ev.Resolution = r
	case fieldEventCodec:
		c, err := unmarshalCodec(body)
		if err != nil {
			return err
		}
		ev.Codec = c
	case fieldEventClipboard:
		c, err := unmarshalClipboard(body)
		if err != nil {
			return err
		}
		ev.Clipboard = c
	case fieldEventFPS:
		f, err := unmarshalFPS(body)
		if err != nil {
			return err
		}
		ev.FPS = f
	}
	return nil
}

func unmarshalMouse(buf []byte) (*MouseEvent, error) {
	m := &MouseEvent{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad mouse tag")
		}
		buf = buf[n:]
		switch num {
		case fieldMouseX:
			v, n := protowire.ConsumeFixed64(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad mouse.x")
			}
			m.X = bitsFloat64(v)
			buf = buf[n:]
		case fieldMouseY:
			v, n := protowire.ConsumeFixed64(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad mouse.y")
			}
			m.Y = bitsFloat64(v)
			buf = buf[n:]
		case fieldMouseButtons:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad mouse.buttons")
			}
			m.Buttons = uint32(v)
			buf = buf[n:]
		case fieldMouseWheelX:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad mouse.wheel_x")
			}
			m.WheelX = int32(protowire.DecodeZigZag(v))
			buf = buf[n:]
		case fieldMouseWheelY:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad mouse.wheel_y")
			}
			m.WheelY = int32(protowire.DecodeZigZag(v))
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad mouse unknown field")
			}
			buf = buf[n:]
		}
	}
	return m, nil
}

func unmarshalKey(buf []byte) (*KeyEvent, error) {
	k := &KeyEvent{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad key tag")
		}
		buf = buf[n:]
		switch num {
		case fieldKeyDown:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad key.down")
			}
			k.Down = v != 0
			buf = buf[n:]
		case fieldKeyModifiers:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad key.modifiers")
			}
			k.Modifiers = uint32(v)
			buf = buf[n:]
		case fieldKeyCode:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad key.key_code")
			}
			k.KeyCode = uint32(v)
			buf = buf[n:]
		case fieldKeyUTF32:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad key.key_utf32")
			}
			k.KeyUTF32 = uint32(v)
			buf = buf[n:]
		case fieldKeyString:
			v, n := protowire.ConsumeString(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad key.key_string")
			}
			k.KeyString = v
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad key unknown field")
			}
			buf = buf[n:]
		}
	}
	return k, nil
}

func unmarshalPing(buf []byte) (*PingEvent, error) {
	p := &PingEvent{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad ping tag")
		}
		buf = buf[n:]
		if num == fieldPingLastRTTMs {
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad ping.last_rtt_ms")
			}
			p.LastRTTMs = int32(protowire.DecodeZigZag(v))
			buf = buf[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, buf)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad ping unknown field")
		}
		buf = buf[n:]
	}
	return p, nil
}

func unmarshalResolution(buf []byte) (*ResolutionEvent, error) {
	r := &ResolutionEvent{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad resolution tag")
		}
		buf = buf[n:]
		switch num {
		case fieldResolutionWidth:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad resolution.width")
			}
			r.Width = uint32(v)
			buf = buf[n:]
		case fieldResolutionHeight:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad resolution.height")
			}
			r.Height = uint32(v)
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad resolution unknown field")
			}
			buf = buf[n:]
		}
	}
	return r, nil
}

func unmarshalCodec(buf []byte) (*CodecChangeEvent, error) {
	c := &CodecChangeEvent{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad codec tag")
		}
		buf = buf[n:]
		if num == fieldCodecName {
			v, n := protowire.ConsumeString(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad codec.codec")
			}
			c.Codec = v
			buf = buf[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, buf)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad codec unknown field")
		}
		buf = buf[n:]
	}
	return c, nil
}

func unmarshalClipboard(buf []byte) (*ClipboardEvent, error) {
	c := &ClipboardEvent{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad clipboard tag")
		}
		buf = buf[n:]
		if num == fieldClipboardText {
			v, n := protowire.ConsumeString(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad clipboard.text")
			}
			c.Text = v
			buf = buf[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, buf)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad clipboard unknown field")
		}
		buf = buf[n:]
	}
	return c, nil
}

func unmarshalFPS(buf []byte) (*FPSChangeEvent, error) {
	f := &FPSChangeEvent{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad fps tag")
		}
		buf = buf[n:]
		if num == fieldFPSValue {
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("protocol: bad fps.fps")
			}
			f.FPS = int32(protowire.DecodeZigZag(v))
			buf = buf[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, buf)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad fps unknown field")
		}
		buf = buf[n:]
	}
	return f, nil
}

func boolVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
