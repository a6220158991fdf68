package desktop

import (
	"context"
	"sync"
)

// SupervisorState is the top-level session state: IDLE while no viewer is
// connected (the capture loop is not running, so there is nothing
// encoding or consuming CPU), STREAMING once at least one viewer has
// joined.
type SupervisorState int

const (
	StateIdle SupervisorState = iota
	StateStreaming
)

func (s SupervisorState) String() string {
	if s == StateStreaming {
		return "streaming"
	}
	return "idle"
}

// Supervisor owns the FrameSource/Encoder/CaptureLoop lifecycle and
// serializes reconfiguration events (resolution, codec, fps change, client
// join/leave, bitrate changes posted through UpdateBitrate) through a
// single event loop goroutine, so the capture loop never has two
// concurrent resize/reconfigure requests in flight. The CongestionGovernor
// does not go through it: it calls VideoEncoder.SetBitrate directly.
type Supervisor struct {
	mu    sync.Mutex
	state SupervisorState

	source  FrameSource
	encoder *VideoEncoder
	conns   *ConnectionSet
	loop    *CaptureLoop

	loopCancel context.CancelFunc
	loopDone   chan struct{}

	events chan supervisorEvent
	quit   chan struct{}
}

type supervisorEventKind int

const (
	evClientsConnected supervisorEventKind = iota
	evNoClients
	evChangeResolution
	evChangeCodec
	evChangeFPS
	evUpdateBitrate
	evQuitRequested
)

type supervisorEvent struct {
	kind   supervisorEventKind
	width  int
	height int
	codec  Codec
	fps    int
	kbps   int
}

func NewSupervisor(source FrameSource, encoder *VideoEncoder, conns *ConnectionSet) *Supervisor {
	s := &Supervisor{
		source:  source,
		encoder: encoder,
		conns:   conns,
		events:  make(chan supervisorEvent, 16),
		quit:    make(chan struct{}),
	}
	go s.run()
	return s
}

// State reports the current top-level state.
func (s *Supervisor) State() SupervisorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// activeLoop returns the running CaptureLoop, or nil while idle. Used by
// the server's accept path to nudge a keyframe for a newly joined viewer
// without waiting on the event loop's goroutine.
func (s *Supervisor) activeLoop() *CaptureLoop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// CurrentInit returns the init message describing the stream already in
// progress, or ok=false while idle. Used by the server's accept path so a
// viewer joining after the first one still gets a welcome frame, instead of
// relying on the BroadcastText a 0→1 transition sends.
func (s *Supervisor) CurrentInit() (msg []byte, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStreaming {
		return nil, false
	}
	width, height := s.source.Bounds()
	return InitMessage(width, height, s.encoderCodec()), true
}

func (s *Supervisor) ClientsConnected() { s.send(supervisorEvent{kind: evClientsConnected}) }
func (s *Supervisor) NoClients()        { s.send(supervisorEvent{kind: evNoClients}) }

func (s *Supervisor) ChangeResolution(width, height int) {
	s.send(supervisorEvent{kind: evChangeResolution, width: width, height: height})
}

func (s *Supervisor) ChangeCodec(codec Codec) {
	s.send(supervisorEvent{kind: evChangeCodec, codec: codec})
}

func (s *Supervisor) ChangeFPS(fps int) {
	s.send(supervisorEvent{kind: evChangeFPS, fps: fps})
}

func (s *Supervisor) UpdateBitrate(kbps int) {
	s.send(supervisorEvent{kind: evUpdateBitrate, kbps: kbps})
}

// Close queues a quit event: the event loop stops the capture loop and
// exits once it has handled the events queued before it. Close does not
// wait for that shutdown to finish.
func (s *Supervisor) Close() {
	select {
	case <-s.quit:
		return
	default:
	}
	s.events <- supervisorEvent{kind: evQuitRequested}
	close(s.quit)
}

func (s *Supervisor) send(ev supervisorEvent) {
	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

func (s *Supervisor) run() {
	for ev := range s.events {
		switch ev.kind {
		case evClientsConnected:
			s.startStreaming()
		case evNoClients:
			if s.conns.Count() == 0 {
				s.stopStreaming()
			}
		case evChangeResolution:
			s.reconfigureResolution(ev.width, ev.height)
		case evChangeCodec:
			s.reconfigureCodec(ev.codec)
		case evChangeFPS:
			s.reconfigureFPS(ev.fps)
		case evUpdateBitrate:
			s.reconfigureBitrate(ev.kbps)
		case evQuitRequested:
			s.stopStreaming()
			return
		}
	}
}

func (s *Supervisor) startStreaming() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStreaming {
		return
	}

	if err := s.source.Init(0); err != nil {
		log.Error("frame source init failed", "error", err)
		return
	}

	width, height := s.source.Bounds()
	if err := s.encoder.SetDimensions(width, height); err != nil {
		log.Error("encoder dimension setup failed", "error", err)
		return
	}

	s.conns.BroadcastText(InitMessage(width, height, s.encoderCodec()))

	ctx, cancel := context.WithCancel(context.Background())
	s.loop = NewCaptureLoop(s.source, s.encoder, s.conns, 30)
	s.loopCancel = cancel
	s.loopDone = make(chan struct{})

	go func() {
		defer close(s.loopDone)
		s.loop.Run(ctx)
	}()

	s.state = StateStreaming
	log.Info("capture started", "width", width, "height", height)
}

func (s *Supervisor) stopStreaming() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return
	}

	if s.loopCancel != nil {
		s.loopCancel()
		<-s.loopDone
	}
	_ = s.source.Close()
	s.loop = nil
	s.state = StateIdle
	log.Info("capture stopped")
}

func (s *Supervisor) reconfigureResolution(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.SetDimensions(width, height); err != nil {
		log.Warn("resolution change failed", "error", err)
		return
	}
	if s.state == StateStreaming && s.loop != nil {
		s.loop.RequestKeyframe()
	}
	s.conns.BroadcastText(InitMessage(width, height, s.encoderCodec()))
}

func (s *Supervisor) reconfigureCodec(codec Codec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.SetCodec(codec); err != nil {
		log.Warn("codec change failed", "error", err, "codec", codec)
		return
	}
	if s.state == StateStreaming && s.loop != nil {
		s.loop.RequestKeyframe()
	}
	width, height := s.source.Bounds()
	s.conns.BroadcastText(InitMessage(width, height, codec))
}

func (s *Supervisor) reconfigureFPS(fps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.SetFPS(fps); err != nil {
		log.Warn("fps change failed", "error", err)
		return
	}
	if s.loop != nil {
		s.loop.SetFPS(fps)
	}
}

func (s *Supervisor) reconfigureBitrate(kbps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.SetBitrate(kbps); err != nil {
		log.Warn("bitrate change failed", "error", err)
	}
}

func (s *Supervisor) encoderCodec() Codec {
	return s.encoder.CurrentCodec()
}
