package desktop

import (
	"sync"
	"time"
)

// PatternSource is a self-contained FrameSource that renders a moving
// gradient bar over a fixed background. It needs no platform capture API,
// so it is the source wired by default and used by the test suite; a real
// deployment replaces it with a FrameSource backed by the host's capture
// API (see source_native.go).
type PatternSource struct {
	mu        sync.Mutex
	connected bool
	width     int
	height    int
	buf       []byte
	start     time.Time
}

func NewPatternSource(width, height int) *PatternSource {
	return &PatternSource{width: width, height: height}
}

func (p *PatternSource) Init(displayIndex int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.width <= 0 {
		p.width = 1280
	}
	if p.height <= 0 {
		p.height = 720
	}
	p.buf = make([]byte, p.width*p.height*4)
	p.start = time.Now()
	p.connected = true
	return nil
}

func (p *PatternSource) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *PatternSource) Bounds() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

func (p *PatternSource) Bits() (Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return Frame{}, ErrNotConnected
	}

	stride := p.width * 4
	barX := int(time.Since(p.start).Seconds()*200) % p.width

	for y := 0; y < p.height; y++ {
		row := p.buf[y*stride : (y+1)*stride]
		for x := 0; x < p.width; x++ {
			pi := x * 4
			if abs(x-barX) < 20 {
				row[pi+0], row[pi+1], row[pi+2], row[pi+3] = 0x20, 0xd0, 0xe0, 0xff
			} else {
				shade := byte(32 + (y*96)/max1(p.height))
				row[pi+0], row[pi+1], row[pi+2], row[pi+3] = shade, shade/2, shade/3, 0xff
			}
		}
	}

	return Frame{
		Width:  p.width,
		Height: p.height,
		Stride: stride,
		Bits:   p.buf,
		Format: PixelFormatBGRX,
		PTS:    time.Since(p.start).Nanoseconds(),
	}, nil
}

func (p *PatternSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
