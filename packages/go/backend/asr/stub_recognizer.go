package asr

import (
	"context"
	"sync"
	"time"
)

// StubRecognizerConfig configures the stub recognizer behavior.
type StubRecognizerConfig struct {
	// ProcessingDelay simulates the time before the first partial result.
	ProcessingDelay time.Duration
	// Partials are emitted as interim results right after start.
	Partials []string
	// Final is delivered when the session is stopped (not aborted).
	Final string
	// ErrorCode, if set, ends the session with an error after the partials.
	ErrorCode ErrorCode
	// EndNaturally ends the session on its own after the partials, delivering
	// Final without waiting for Stop.
	EndNaturally bool
	// StartErr makes Start fail.
	StartErr error
}

// DefaultStubRecognizerConfig returns sensible defaults for testing.
func DefaultStubRecognizerConfig() *StubRecognizerConfig {
	return &StubRecognizerConfig{
		ProcessingDelay: 10 * time.Millisecond,
		Partials:        []string{"こんに"},
		Final:           "こんにちは",
	}
}

// StubRecognizer is a test implementation that replays a scripted session.
type StubRecognizer struct {
	config *StubRecognizerConfig

	mu      sync.Mutex
	locales []string
}

// NewStubRecognizer creates a new stub recognizer with the given config.
func NewStubRecognizer(config *StubRecognizerConfig) *StubRecognizer {
	if config == nil {
		config = DefaultStubRecognizerConfig()
	}
	return &StubRecognizer{config: config}
}

// Start opens a scripted session.
func (s *StubRecognizer) Start(ctx context.Context, locale string) (Session, error) {
	if s.config.StartErr != nil {
		return nil, s.config.StartErr
	}

	s.mu.Lock()
	s.locales = append(s.locales, locale)
	s.mu.Unlock()

	sess := &stubSession{
		events: make(chan Event, len(s.config.Partials)+4),
		stop:   make(chan bool, 1),
	}
	go sess.run(ctx, *s.config)
	return sess, nil
}

// Starts returns the locale of every session started so far.
func (s *StubRecognizer) Starts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.locales...)
}

// Health returns the health status of the stub recognizer.
func (s *StubRecognizer) Health() HealthStatus {
	return HealthStatus{
		Healthy: true,
		Message: "stub recognizer ready",
	}
}

type stubSession struct {
	events chan Event
	stop   chan bool
	once   sync.Once
}

func (s *stubSession) Events() <-chan Event {
	return s.events
}

func (s *stubSession) Stop() error {
	s.signal(true)
	return nil
}

func (s *stubSession) Abort() error {
	s.signal(false)
	return nil
}

func (s *stubSession) signal(graceful bool) {
	s.once.Do(func() { s.stop <- graceful })
}

func (s *stubSession) run(ctx context.Context, config StubRecognizerConfig) {
	defer close(s.events)

	if !s.emit(ctx, Event{Kind: EventStarted}) {
		return
	}

	if config.ProcessingDelay > 0 {
		select {
		case <-time.After(config.ProcessingDelay):
		case <-ctx.Done():
			return
		}
	}

	for _, partial := range config.Partials {
		if !s.emit(ctx, Event{Kind: EventResult, Results: []Result{{Transcript: partial}}}) {
			return
		}
	}

	if config.ErrorCode != "" {
		if s.emit(ctx, Event{Kind: EventError, Code: config.ErrorCode}) {
			s.emit(ctx, Event{Kind: EventEnded})
		}
		return
	}

	graceful := config.EndNaturally
	if !config.EndNaturally {
		select {
		case graceful = <-s.stop:
		case <-ctx.Done():
			return
		}
	}

	if graceful && config.Final != "" {
		if !s.emit(ctx, Event{Kind: EventResult, Results: []Result{{Transcript: config.Final, Final: true}}}) {
			return
		}
	}
	s.emit(ctx, Event{Kind: EventEnded})
}

func (s *stubSession) emit(ctx context.Context, event Event) bool {
	select {
	case s.events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
