package translation

import (
	"context"
	"strings"
	"sync"
	"time"
)

// StubTranslatorConfig configures the stub translator behavior.
type StubTranslatorConfig struct {
	// ProcessingDelay simulates translation processing time.
	ProcessingDelay time.Duration
	// Dictionary maps source text to translated text.
	// If nil or missing, returns "[LANG] " prefix + original text.
	Dictionary map[string]map[string]string // [targetLang][sourceText]translatedText
	// Err, if set, is returned by every Translate call.
	Err error
	// Unhealthy makes Probe report the service as unreachable.
	Unhealthy bool
}

// DefaultStubTranslatorConfig returns sensible defaults for testing.
func DefaultStubTranslatorConfig() *StubTranslatorConfig {
	return &StubTranslatorConfig{
		ProcessingDelay: 20 * time.Millisecond,
		Dictionary: map[string]map[string]string{
			"en": {
				"こんにちは":     "Hello",
				"ありがとう":     "Thank you",
				"おはようございます": "Good morning",
				"駅はどこですか":   "Where is the station?",
			},
			"ja": {
				"hello":                 "こんにちは",
				"thank you":             "ありがとう",
				"good morning":          "おはようございます",
				"where is the station?": "駅はどこですか",
			},
		},
	}
}

// StubTranslator is a test implementation that returns deterministic translations.
type StubTranslator struct {
	config *StubTranslatorConfig

	mu    sync.Mutex
	calls []Request
}

// NewStubTranslator creates a new stub translator with the given config.
func NewStubTranslator(config *StubTranslatorConfig) *StubTranslator {
	if config == nil {
		config = DefaultStubTranslatorConfig()
	}
	return &StubTranslator{config: config}
}

// Name identifies the provider.
func (s *StubTranslator) Name() string {
	return "stub"
}

// Translate converts a single text segment.
func (s *StubTranslator) Translate(ctx context.Context, text string, sourceLang, targetLang string) (Translation, error) {
	if strings.TrimSpace(text) == "" {
		return Translation{}, ErrEmptyText
	}

	s.mu.Lock()
	s.calls = append(s.calls, Request{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
	s.mu.Unlock()

	// Simulate processing delay
	if s.config.ProcessingDelay > 0 {
		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-ctx.Done():
			return Translation{}, ctx.Err()
		}
	}

	if s.config.Err != nil {
		return Translation{}, s.config.Err
	}

	return Translation{
		SourceText:     text,
		TranslatedText: s.lookupTranslation(text, targetLang),
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Provider:       s.Name(),
	}, nil
}

// Calls returns every request received so far.
func (s *StubTranslator) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.calls...)
}

// lookupTranslation finds a translation in the dictionary or generates a default.
func (s *StubTranslator) lookupTranslation(text, targetLang string) string {
	if langDict, ok := s.config.Dictionary[targetLang]; ok {
		if translated, ok := langDict[strings.ToLower(strings.TrimSpace(text))]; ok {
			return translated
		}
		if translated, ok := langDict[strings.TrimSpace(text)]; ok {
			return translated
		}
	}
	// Default: prefix with language code
	return "[" + targetLang + "] " + text
}

// Probe returns the configured health of the stub translator.
func (s *StubTranslator) Probe(ctx context.Context) HealthStatus {
	if s.config.Unhealthy {
		return HealthStatus{Message: "stub translator offline"}
	}
	return HealthStatus{
		Healthy: true,
		Message: "stub translator ready",
	}
}
