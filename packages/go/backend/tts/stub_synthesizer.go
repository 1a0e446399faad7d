package tts

import (
	"context"
	"sync"
	"time"
)

// StubSynthesizerConfig configures the stub synthesizer behavior.
type StubSynthesizerConfig struct {
	// ProcessingDelay simulates how long an utterance plays.
	ProcessingDelay time.Duration
	// FailWith, if set, ends every playback with this error text.
	FailWith string
	// AvailableVoices are the voices to report as available.
	AvailableVoices []Voice
}

// DefaultStubSynthesizerConfig returns sensible defaults for testing.
func DefaultStubSynthesizerConfig() *StubSynthesizerConfig {
	return &StubSynthesizerConfig{
		ProcessingDelay: 20 * time.Millisecond,
		AvailableVoices: []Voice{
			{Name: "Kyoko", Locale: "ja-JP"},
			{Name: "Samantha", Locale: "en-US", Default: true},
			{Name: "Daniel", Locale: "en-GB"},
		},
	}
}

// StubSynthesizer is a test implementation that plays utterances in memory.
type StubSynthesizer struct {
	config *StubSynthesizerConfig

	mu      sync.Mutex
	spoken  []Utterance
	cancels int
	active  chan struct{}
}

// NewStubSynthesizer creates a new stub synthesizer with the given config.
func NewStubSynthesizer(config *StubSynthesizerConfig) *StubSynthesizer {
	if config == nil {
		config = DefaultStubSynthesizerConfig()
	}
	return &StubSynthesizer{config: config}
}

// Speak plays the utterance for ProcessingDelay.
func (s *StubSynthesizer) Speak(ctx context.Context, u Utterance) (<-chan PlaybackEvent, error) {
	interrupt := make(chan struct{})

	s.mu.Lock()
	s.spoken = append(s.spoken, u)
	s.active = interrupt
	s.mu.Unlock()

	out := make(chan PlaybackEvent, 2)
	go func() {
		defer close(out)
		out <- PlaybackEvent{Kind: PlaybackStarted, UtteranceID: u.ID}

		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-interrupt:
			out <- PlaybackEvent{Kind: PlaybackError, UtteranceID: u.ID, Error: "interrupted"}
			return
		case <-ctx.Done():
			out <- PlaybackEvent{Kind: PlaybackError, UtteranceID: u.ID, Error: "canceled"}
			return
		}

		if s.config.FailWith != "" {
			out <- PlaybackEvent{Kind: PlaybackError, UtteranceID: u.ID, Error: s.config.FailWith}
			return
		}
		out <- PlaybackEvent{Kind: PlaybackEnded, UtteranceID: u.ID}
	}()

	return out, nil
}

// Cancel interrupts the playback in progress, if any.
func (s *StubSynthesizer) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancels++
	if s.active != nil {
		close(s.active)
		s.active = nil
	}
	return nil
}

// Spoken returns every utterance queued so far.
func (s *StubSynthesizer) Spoken() []Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Utterance(nil), s.spoken...)
}

// Cancels reports how many times Cancel was called.
func (s *StubSynthesizer) Cancels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

// Voices returns the configured voices.
func (s *StubSynthesizer) Voices() []Voice {
	return append([]Voice(nil), s.config.AvailableVoices...)
}

// Health returns the health status of the stub synthesizer.
func (s *StubSynthesizer) Health() HealthStatus {
	return HealthStatus{
		Healthy: true,
		Message: "stub synthesizer ready",
	}
}
