package asr

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable is returned by Start when no recognition engine is reachable.
var ErrUnavailable = errors.New("speech recognition unavailable")

// EventKind identifies a recognition session event.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventResult  EventKind = "result"
	EventError   EventKind = "error"
	EventEnded   EventKind = "ended"
)

// ErrorCode is the engine's error vocabulary.
type ErrorCode string

const (
	CodeNoSpeech     ErrorCode = "no-speech"
	CodeAudioCapture ErrorCode = "audio-capture"
	CodeNotAllowed   ErrorCode = "not-allowed"
	CodeNetwork      ErrorCode = "network"
)

// Message returns the user-facing text for an error code.
func (c ErrorCode) Message() string {
	switch c {
	case CodeNoSpeech:
		return "Error: No speech detected. Please try again."
	case CodeAudioCapture:
		return "Error: Microphone not found or permission denied."
	case CodeNotAllowed:
		return "Error: Microphone permission denied. Please allow microphone access."
	case CodeNetwork:
		return "Error: Network error. Check your connection."
	default:
		return "Error: " + string(c)
	}
}

// Result is one recognized segment as reported by the engine.
type Result struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
}

// Event is a single notification from a recognition session.
type Event struct {
	Kind    EventKind `json:"kind"`
	Results []Result  `json:"results,omitempty"`
	Code    ErrorCode `json:"code,omitempty"`
}

// Transcripts joins the interim and final segments of a result batch.
func (e Event) Transcripts() (interim, final string) {
	var interimBuf, finalBuf strings.Builder
	for _, r := range e.Results {
		if r.Final {
			finalBuf.WriteString(r.Transcript)
		} else {
			interimBuf.WriteString(r.Transcript)
		}
	}
	return interimBuf.String(), finalBuf.String()
}

// HealthStatus represents the health of a component.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Session is one push-to-talk recognition run.
type Session interface {
	// Events yields started, result, error and ended events. The channel is
	// closed after the ended event.
	Events() <-chan Event

	// Stop ends capture but still delivers a pending final result.
	Stop() error

	// Abort ends capture and discards any pending result.
	Abort() error
}

// Recognizer converts speech to text.
type Recognizer interface {
	// Start opens a recognition session for the given BCP 47 locale.
	Start(ctx context.Context, locale string) (Session, error)

	// Health returns the current health status of the recognizer.
	Health() HealthStatus
}
