//go:build linux

package desktop

import (
	"os/exec"
	"strconv"
)

// XdotoolSink injects input on Linux by shelling out to xdotool, much as
// clipboard_linux.go shells out to xclip/xsel for the X11 clipboard. It owns the normalized-to-pixel conversion and the
// button-bitmask decomposition xdotool's single-button API needs, since
// DriverPacket carries neither (see input.go).
type XdotoolSink struct {
	bounds func() (int, int)
}

// NewXdotoolSink builds a sink that scales normalized mouse coordinates
// using bounds, the current display's (width, height).
func NewXdotoolSink(bounds func() (int, int)) *XdotoolSink {
	return &XdotoolSink{bounds: bounds}
}

func (s *XdotoolSink) Dispatch(pkt DriverPacket) error {
	switch pkt.Kind {
	case EventMouseMove:
		x, y := s.pixelCoords(pkt.X, pkt.Y)
		return exec.Command("xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y)).Run()
	case EventMouseButton:
		btn := xdotoolButton(pkt.Buttons)
		if pkt.Pressed {
			return exec.Command("xdotool", "mousedown", btn).Run()
		}
		return exec.Command("xdotool", "mouseup", btn).Run()
	case EventMouseWheel:
		direction := "4"
		delta := pkt.WheelDelta
		if delta < 0 {
			direction = "5"
			delta = -delta
		}
		for i := int32(0); i < delta; i++ {
			if err := exec.Command("xdotool", "click", direction).Run(); err != nil {
				return err
			}
		}
		return nil
	case EventKeyDown:
		return exec.Command("xdotool", "keydown", "--clearmodifiers", strconv.Itoa(int(pkt.Scancode))).Run()
	case EventKeyUp:
		return exec.Command("xdotool", "keyup", "--clearmodifiers", strconv.Itoa(int(pkt.Scancode))).Run()
	default:
		return nil
	}
}

func (s *XdotoolSink) pixelCoords(x, y float64) (int, int) {
	width, height := 0, 0
	if s.bounds != nil {
		width, height = s.bounds()
	}
	return int(x * float64(width)), int(y * float64(height))
}

// xdotoolButton picks one button out of the wire bitmask (bit0=left,
// bit1=right, bit2=middle) to pass to xdotool's single-button mousedown/
// mouseup, preferring right then middle then left when more than one bit
// is set.
func xdotoolButton(mask uint32) string {
	switch {
	case mask&0x2 != 0:
		return "3" // right
	case mask&0x4 != 0:
		return "2" // middle
	default:
		return "1" // left
	}
}
