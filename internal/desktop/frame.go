package desktop

import "fmt"

// PixelFormat identifies the byte layout of a captured frame's pixel data.
// BGRX is the only format FrameSource implementations are required to
// produce; it matches the layout most platform capture APis (GDI, X11
// SHM, CoreGraphics) hand back without an extra conversion pass.
type PixelFormat int

const (
	PixelFormatBGRX PixelFormat = iota
)

// Frame is one captured desktop image. Bits is the raw BGRX buffer; Stride
// is the byte distance between rows and may exceed Width*4 when the source
// pads rows to an alignment boundary. PTS is a monotonic capture timestamp
// in nanoseconds, independent of wall-clock time.
type Frame struct {
	Width  int
	Height int
	Stride int
	Bits   []byte
	Format PixelFormat
	PTS    int64
}

// FrameSource produces BGRX desktop frames on demand. Implementations are
// expected to be cheap to poll at up to 60Hz; callers own the pacing.
//
// A real implementation backed by platform capture APIs (X11/XShm, GDI,
// CoreGraphics) is an external collaborator: this module only defines the
// contract and ships a deterministic reference source for development and
// tests. See source_native.go for the placeholder platform stub.
type FrameSource interface {
	// Init prepares the source to capture at the given display index.
	Init(displayIndex int) error
	// IsConnected reports whether the source can currently produce frames.
	IsConnected() bool
	// Bits captures one frame. The returned Frame's Bits slice is only
	// valid until the next call to Bits.
	Bits() (Frame, error)
	// Bounds returns the current capture dimensions.
	Bounds() (width, height int)
	// Close releases resources held by the source.
	Close() error
}

// ErrNotSupported is returned by FrameSource implementations that have no
// capture backend available on the running platform.
var ErrNotSupported = fmt.Errorf("screen capture not supported on this platform")

// ErrNotConnected is returned by Bits when the source has not been
// initialized, or the display it was bound to has gone away.
var ErrNotConnected = fmt.Errorf("frame source not connected")
