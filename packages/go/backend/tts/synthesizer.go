package tts

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Prosody applied to every utterance.
const (
	DefaultRate   = 0.9
	DefaultPitch  = 1.0
	DefaultVolume = 1.0
)

// ErrUnavailable is returned by Speak when no synthesis engine is reachable.
var ErrUnavailable = errors.New("speech synthesis unavailable")

// Voice is a voice offered by the synthesis engine.
type Voice struct {
	Name    string `json:"name"`
	Locale  string `json:"locale"`
	Default bool   `json:"default,omitempty"`
}

// Utterance is one request to speak text aloud.
type Utterance struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Locale string  `json:"locale"`
	Voice  *Voice  `json:"voice,omitempty"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// NewUtterance builds an utterance with default prosody and a fresh ID. A nil
// voice leaves the choice to the engine.
func NewUtterance(text, locale string, voice *Voice) Utterance {
	return Utterance{
		ID:     uuid.NewString(),
		Text:   text,
		Locale: locale,
		Voice:  voice,
		Rate:   DefaultRate,
		Pitch:  DefaultPitch,
		Volume: DefaultVolume,
	}
}

// SelectVoice returns the first voice whose locale starts with lang, or nil.
func SelectVoice(voices []Voice, lang string) *Voice {
	lang = strings.ToLower(lang)
	for i := range voices {
		if strings.HasPrefix(strings.ToLower(voices[i].Locale), lang) {
			v := voices[i]
			return &v
		}
	}
	return nil
}

// PlaybackKind identifies a playback lifecycle event.
type PlaybackKind string

const (
	PlaybackStarted PlaybackKind = "started"
	PlaybackEnded   PlaybackKind = "ended"
	PlaybackError   PlaybackKind = "error"
)

// PlaybackEvent reports progress of one utterance.
type PlaybackEvent struct {
	Kind        PlaybackKind `json:"kind"`
	UtteranceID string       `json:"utteranceId"`
	Error       string       `json:"error,omitempty"`
}

// HealthStatus represents the health of a component.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Synthesizer speaks text aloud.
type Synthesizer interface {
	// Speak queues an utterance. The returned channel yields started followed
	// by ended or error, then closes.
	Speak(ctx context.Context, u Utterance) (<-chan PlaybackEvent, error)

	// Cancel stops any utterance in progress. Interrupted playbacks end with
	// an error event.
	Cancel() error

	// Voices lists the voices currently known to the engine.
	Voices() []Voice

	// Health returns the current health status of the synthesizer.
	Health() HealthStatus
}
