package desktop

import "sync"

const (
	minBitrateKbps = 500
	maxBitrateKbps = 8000
)

// BitrateSetter is the subset of VideoEncoder the congestion governor
// drives. Encoder takes the interface rather than a concrete type so tests
// can substitute a recorder.
type BitrateSetter interface {
	SetBitrate(kbps int) error
}

// CongestionGovernor adjusts the encoder's target bitrate from the most
// recent RTT sample reported by a viewer's ping. It deliberately reacts to
// a single sample rather than a smoothed average: above 150ms it backs off
// 20%, below 50ms it ramps up 5%, and it leaves the bitrate alone in
// between. The encoder is only notified when the resulting change exceeds
// 50kbps, so a steady-state connection does not reconfigure the encoder on
// every ping.
type CongestionGovernor struct {
	mu      sync.Mutex
	encoder BitrateSetter
	bitrate int
}

func NewCongestionGovernor(encoder BitrateSetter, initialKbps int) *CongestionGovernor {
	if initialKbps <= 0 {
		initialKbps = maxBitrateKbps
	}
	return &CongestionGovernor{
		encoder: encoder,
		bitrate: clampInt(initialKbps, minBitrateKbps, maxBitrateKbps),
	}
}

// Bitrate returns the current target bitrate in kbps.
func (g *CongestionGovernor) Bitrate() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bitrate
}

// ReportRTT feeds one RTT sample (from a viewer PING) and applies the
// threshold policy. rtt is in milliseconds; negative values are ignored.
func (g *CongestionGovernor) ReportRTT(rttMillis int32) {
	if rttMillis < 0 {
		return
	}

	g.mu.Lock()
	oldBitrate := g.bitrate
	newBitrate := oldBitrate

	switch {
	case rttMillis > 150:
		newBitrate = int(float64(oldBitrate) * 0.8)
		if newBitrate < minBitrateKbps {
			newBitrate = minBitrateKbps
		}
	case rttMillis < 50:
		newBitrate = int(float64(oldBitrate) * 1.05)
		if newBitrate > maxBitrateKbps {
			newBitrate = maxBitrateKbps
		}
	}

	g.bitrate = newBitrate
	encoder := g.encoder
	g.mu.Unlock()

	if abs(newBitrate-oldBitrate) > 50 && encoder != nil {
		encoder.SetBitrate(newBitrate)
	}
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
