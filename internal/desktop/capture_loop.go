package desktop

import (
	"context"
	"sync/atomic"
	"time"
)

const keyframeInterval = 60 * time.Second

// lateResetThreshold is how far behind schedule a tick can fall before the
// loop gives up catching up and resets its clock instead of burst-encoding
// a backlog of missed frames after a stall (a paused debugger, a suspended
// VM).
const lateResetThreshold = 100 * time.Millisecond

// CaptureLoop drives the capture->encode->broadcast pipeline on its own
// goroutine at a fixed cadence. It owns the only two things that must not
// be touched concurrently from elsewhere: the FrameSource and the
// VideoEncoder. Bitrate/codec/fps changes from the control plane are
// applied by calling the encoder setters directly; they're safe to call
// from another goroutine because VideoEncoder itself is mutex-guarded, but
// resolution and fps changes to the *loop's own cadence* go through the
// atomics below so Run's scheduling picks them up without a restart.
type CaptureLoop struct {
	source  FrameSource
	encoder *VideoEncoder
	conns   *ConnectionSet
	metrics *StreamMetrics

	fpsTarget     atomic.Int64
	forceKeyframe atomic.Bool

	stop chan struct{}
}

func NewCaptureLoop(source FrameSource, encoder *VideoEncoder, conns *ConnectionSet, fps int) *CaptureLoop {
	c := &CaptureLoop{
		source:  source,
		encoder: encoder,
		conns:   conns,
		metrics: newStreamMetrics(),
		stop:    make(chan struct{}),
	}
	c.fpsTarget.Store(int64(fps))
	return c
}

// RequestKeyframe forces the next encoded frame to be a keyframe, used when
// a new viewer joins mid-stream and needs a decodable starting point.
func (c *CaptureLoop) RequestKeyframe() {
	c.forceKeyframe.Store(true)
}

// SetFPS changes the capture cadence without restarting the loop.
func (c *CaptureLoop) SetFPS(fps int) {
	if fps > 0 {
		c.fpsTarget.Store(int64(fps))
	}
}

func (c *CaptureLoop) Metrics() *StreamMetrics { return c.metrics }

// Stop requests the loop to exit; it does not wait for Run to return.
func (c *CaptureLoop) Stop() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

// Run executes the fixed-cadence capture/encode/broadcast cycle until ctx
// is canceled or Stop is called. nextFrameTime is tracked independently of
// how long each tick actually took: a slow encode does not compound into
// permanently-behind scheduling as long as the loop is less than
// lateResetThreshold behind, matching the absolute-time scheduling of the
// original capture loop.
func (c *CaptureLoop) Run(ctx context.Context) {
	log.Info("capture loop started")
	defer log.Info("capture loop stopped")

	nextFrameTime := time.Now()
	lastKeyframeTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		default:
		}

		now := time.Now()
		wait := nextFrameTime.Sub(now)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			case <-c.stop:
				timer.Stop()
				return
			}
		} else if -wait > lateResetThreshold {
			nextFrameTime = time.Now()
		}

		fps := c.fpsTarget.Load()
		if fps <= 0 {
			fps = 30
		}
		nextFrameTime = nextFrameTime.Add(time.Second / time.Duration(fps))

		forceKey := c.forceKeyframe.CompareAndSwap(true, false)
		if time.Since(lastKeyframeTime) > keyframeInterval {
			forceKey = true
		}
		if forceKey {
			lastKeyframeTime = time.Now()
		}

		c.tick(forceKey)
	}
}

func (c *CaptureLoop) tick(forceKeyframe bool) {
	captureStart := time.Now()
	frame, err := c.source.Bits()
	if err != nil {
		c.metrics.RecordSkip()
		return
	}
	c.metrics.RecordCapture(time.Since(captureStart))

	scaleStart := time.Now()
	planes := bgrxToI420(frame.Bits, frame.Width, frame.Height, frame.Stride)
	c.metrics.RecordScale(time.Since(scaleStart))

	encodeStart := time.Now()
	encoded, err := c.encoder.Encode(planes, forceKeyframe)
	putI420Buffer(planes.Y)
	if err != nil {
		log.Warn("encode failed", "error", err)
		c.metrics.RecordDrop()
		return
	}
	c.metrics.RecordEncode(time.Since(encodeStart), len(encoded))

	if len(encoded) == 0 {
		// Encoder buffered the frame internally (common at startup); nothing
		// to broadcast yet.
		return
	}

	c.conns.Broadcast(forceKeyframe, encoded)
	c.metrics.RecordSend(len(encoded))
}
