package desktop

import (
	"testing"
	"time"

	"github.com/remotedeskd/remotedeskd/internal/workerpool"
)

func newTestSupervisor() *Supervisor {
	source := NewPatternSource(32, 32)
	encoder := &VideoEncoder{cfg: DefaultEncoderConfig(), backend: &fakeEncoderBackend{}}
	pool := workerpool.New(2, 8)
	conns := NewConnectionSet(pool)
	return NewSupervisor(source, encoder, conns)
}

func waitForState(t *testing.T, s *Supervisor, want SupervisorState) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", s.State(), want)
}

func TestSupervisorStartsStreamingOnFirstClient(t *testing.T) {
	s := newTestSupervisor()
	defer s.Close()

	if s.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", s.State())
	}

	s.ClientsConnected()
	waitForState(t, s, StateStreaming)

	if s.activeLoop() == nil {
		t.Fatal("expected an active capture loop once streaming")
	}
}

func TestSupervisorStopsStreamingWhenNoClients(t *testing.T) {
	s := newTestSupervisor()
	defer s.Close()

	s.ClientsConnected()
	waitForState(t, s, StateStreaming)

	s.NoClients()
	waitForState(t, s, StateIdle)

	if s.activeLoop() != nil {
		t.Fatal("expected no active capture loop once idle")
	}
}

func TestSupervisorChangeResolutionRequestsKeyframe(t *testing.T) {
	s := newTestSupervisor()
	defer s.Close()

	s.ClientsConnected()
	waitForState(t, s, StateStreaming)

	// The loop starts at 30 fps and clears the keyframe flag on its next
	// tick; slow it to 1 fps first so no tick runs before the check below.
	s.ChangeFPS(1)
	time.Sleep(100 * time.Millisecond)

	s.ChangeResolution(64, 48)
	time.Sleep(20 * time.Millisecond)

	loop := s.activeLoop()
	if loop == nil {
		t.Fatal("expected active loop")
	}
	if !loop.forceKeyframe.Load() {
		t.Fatal("expected resolution change to force a keyframe")
	}
}

func TestSupervisorStateString(t *testing.T) {
	if StateIdle.String() != "idle" {
		t.Fatalf("StateIdle.String() = %q", StateIdle.String())
	}
	if StateStreaming.String() != "streaming" {
		t.Fatalf("StateStreaming.String() = %q", StateStreaming.String())
	}
}
