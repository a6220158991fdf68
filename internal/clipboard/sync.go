package clipboard

import (
	"sync"
	"time"
)

// pollInterval is a fixed polling cadence rather than an OS
// notification-driven design, trading a bounded propagation delay for
// portability across the supported clipboard providers.
const pollInterval = 1 * time.Second

// BroadcastFunc sends clipboard text to every connected viewer.
type BroadcastFunc func(text string)

// Sync polls a platform Provider and broadcasts text changes to viewers, and
// applies incoming viewer clipboard text to the host.
type Sync struct {
	provider  Provider
	broadcast BroadcastFunc
	stop      chan struct{}
	stopOnce  sync.Once

	mu         sync.Mutex
	lastText   string
	hasLast    bool
	lastSentAt time.Time
}

func NewSync(provider Provider, broadcast BroadcastFunc) *Sync {
	return &Sync{
		provider:  provider,
		broadcast: broadcast,
		stop:      make(chan struct{}),
	}
}

// Watch polls the provider on pollInterval until Stop is called.
func (s *Sync) Watch() {
	if s.provider == nil {
		return
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.poll()
		case <-s.stop:
			return
		}
	}
}

func (s *Sync) poll() {
	content, err := s.provider.GetContent()
	if err != nil || content.Type != ContentTypeText {
		return
	}

	s.mu.Lock()
	changed := !s.hasLast || content.Text != s.lastText
	if changed {
		s.lastText = content.Text
		s.hasLast = true
		s.lastSentAt = time.Now()
	}
	s.mu.Unlock()

	if changed && s.broadcast != nil {
		s.broadcast(content.Text)
	}
}

// ApplyRemote writes viewer-supplied clipboard text to the host, and records
// it as the last-known value so the next poll does not re-broadcast it.
func (s *Sync) ApplyRemote(text string) error {
	s.mu.Lock()
	s.lastText = text
	s.hasLast = true
	s.mu.Unlock()

	if s.provider == nil {
		return nil
	}
	return s.provider.SetContent(Content{Type: ContentTypeText, Text: text})
}

func (s *Sync) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
