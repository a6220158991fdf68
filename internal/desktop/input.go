package desktop

// EventKind identifies the variant carried by a DriverPacket.
type EventKind uint8

const (
	EventMouseMove EventKind = iota
	EventMouseButton
	EventMouseWheel
	EventKeyDown
	EventKeyUp
)

// DriverPacket is the decoded, platform-neutral form of a single input
// message from a viewer. Mouse coordinates are normalized [0,1], the same
// representation the wire MouseEvent carries; converting to device pixels
// and decomposing Buttons into a single button index is left to the
// InputSink implementation (see input_linux.go), since only it knows the
// target display's geometry and button-injection API. Scancode identifies
// the physical key and Charcode the character it produces: each is taken
// from the wire KeyEvent when set and otherwise resolved via KeyCodeFor,
// and Charcode is collapsed to a C0 control code when Control is held (see
// ControlPlane.dispatchKey).
type DriverPacket struct {
	Kind       EventKind
	X, Y       float64
	Buttons    uint32 // bitmask: bit0=left, bit1=right, bit2=middle
	Pressed    bool
	WheelDelta int32
	Scancode   uint32
	Charcode   uint32
}

// InputSink delivers DriverPackets to the host OS. A platform implementation
// injecting real keyboard/mouse events is an external collaborator outside
// this module's scope (see input_linux.go for one concrete example); the
// control plane only needs this interface to route decoded events.
type InputSink interface {
	Dispatch(pkt DriverPacket) error
}

// NullSink discards every packet. It is the default InputSink so the
// server runs without a platform-specific injector wired in.
type NullSink struct{}

func (NullSink) Dispatch(DriverPacket) error { return nil }
