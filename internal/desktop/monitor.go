package desktop

// DisplayMode is one resolution the capture source can be switched to.
type DisplayMode struct {
	Width  int
	Height int
}

// SelectClosestMode picks the mode whose width+height differs least in
// absolute terms from the requested resolution, so a viewer's raw
// resolution-change request lands on the nearest mode the capture backend
// actually supports. Returns false if modes is empty.
func SelectClosestMode(modes []DisplayMode, wantWidth, wantHeight int) (DisplayMode, bool) {
	if len(modes) == 0 {
		return DisplayMode{}, false
	}

	best := modes[0]
	bestDelta := modeDelta(best, wantWidth, wantHeight)
	for _, m := range modes[1:] {
		if d := modeDelta(m, wantWidth, wantHeight); d < bestDelta {
			best = m
			bestDelta = d
		}
	}
	return best, true
}

func modeDelta(m DisplayMode, w, h int) int {
	return abs(m.Width-w) + abs(m.Height-h)
}
