package desktop

// KeyInfo is the scancode/charcode pair a viewer's key-string code resolves
// to when the wire event carries no explicit key_code.
type KeyInfo struct {
	Scancode uint32
	Charcode uint32
}

// keyMap maps a viewer KeyboardEvent.code string (the DOM "code" value, e.g.
// "KeyA", "ArrowUp", "ControlLeft") to its scancode/charcode pair.
var keyMap = map[string]KeyInfo{
	// F-Keys
	"F1": {0x02, 0}, "F2": {0x03, 0}, "F3": {0x04, 0}, "F4": {0x05, 0},
	"F5": {0x06, 0}, "F6": {0x07, 0}, "F7": {0x08, 0}, "F8": {0x09, 0},
	"F9": {0x0A, 0}, "F10": {0x0B, 0}, "F11": {0x0C, 0}, "F12": {0x0D, 0},

	// Modifiers
	"ShiftLeft": {0x4B, 0}, "ShiftRight": {0x56, 0},
	"ControlLeft": {0x5C, 0}, "ControlRight": {0x60, 0},
	"AltLeft": {0x5D, 0}, "AltRight": {0x5F, 0},
	"MetaLeft": {0x66, 0}, "MetaRight": {0x67, 0},

	// Numbers row
	"Backquote": {0x11, '`'},
	"Digit1":    {0x12, '1'}, "Digit2": {0x13, '2'}, "Digit3": {0x14, '3'},
	"Digit4": {0x15, '4'}, "Digit5": {0x16, '5'}, "Digit6": {0x17, '6'},
	"Digit7": {0x18, '7'}, "Digit8": {0x19, '8'}, "Digit9": {0x1a, '9'},
	"Digit0": {0x1b, '0'},
	"Minus":  {0x1c, '-'}, "Equal": {0x1d, '='}, "Backspace": {0x1e, 0x08},

	// QWERTY row 1
	"Tab": {0x26, 0x09},
	"KeyQ": {0x27, 'q'}, "KeyW": {0x28, 'w'}, "KeyE": {0x29, 'e'}, "KeyR": {0x2a, 'r'},
	"KeyT": {0x2b, 't'}, "KeyY": {0x2c, 'y'}, "KeyU": {0x2d, 'u'}, "KeyI": {0x2e, 'i'},
	"KeyO": {0x2f, 'o'}, "KeyP": {0x30, 'p'},
	"BracketLeft": {0x31, '['}, "BracketRight": {0x32, ']'}, "Backslash": {0x33, '\\'},

	// QWERTY row 2
	"CapsLock": {0x3b, 0},
	"KeyA": {0x3c, 'a'}, "KeyS": {0x3d, 's'}, "KeyD": {0x3e, 'd'}, "KeyF": {0x3f, 'f'},
	"KeyG": {0x40, 'g'}, "KeyH": {0x41, 'h'}, "KeyJ": {0x42, 'j'}, "KeyK": {0x43, 'k'},
	"KeyL": {0x44, 'l'},
	"Semicolon": {0x45, ';'}, "Quote": {0x46, '\''}, "Enter": {0x47, 0x0a},

	// QWERTY row 3
	"KeyZ": {0x4c, 'z'}, "KeyX": {0x4d, 'x'}, "KeyC": {0x4e, 'c'}, "KeyV": {0x4f, 'v'},
	"KeyB": {0x50, 'b'}, "KeyN": {0x51, 'n'}, "KeyM": {0x52, 'm'},
	"Comma": {0x53, ','}, "Period": {0x54, '.'}, "Slash": {0x55, '/'},

	// Bottom row
	"Space": {0x5e, 0x20},

	// Arrows
	"ArrowLeft": {0x61, 0x1c}, "ArrowDown": {0x62, 0x1f},
	"ArrowRight": {0x63, 0x1d}, "ArrowUp": {0x57, 0x1e},

	// Navigation cluster
	"Insert": {0x1F, 0x05}, "Delete": {0x34, 0x7f},
	"Home": {0x20, 0x01}, "End": {0x35, 0x04},
	"PageUp": {0x21, 0x0b}, "PageDown": {0x36, 0x0c},
}

// KeyCodeFor resolves a viewer key-string code to its scancode/charcode
// pair. ok is false for codes the map has no entry for.
func KeyCodeFor(code string) (info KeyInfo, ok bool) {
	info, ok = keyMap[code]
	return info, ok
}

// CollapseControlChar maps a Ctrl-modified letter charcode to the ASCII
// C0 control code it produces (Ctrl+A -> 0x01, Ctrl+z -> 0x1a, and so on),
// matching standard terminal/keyboard-driver behavior. It returns the
// charcode unchanged for inputs outside A-Z/a-z.
func CollapseControlChar(charcode uint32) uint32 {
	switch {
	case charcode >= 'a' && charcode <= 'z':
		return charcode - 96
	case charcode >= 'A' && charcode <= 'Z':
		return charcode - 64
	default:
		return charcode
	}
}
