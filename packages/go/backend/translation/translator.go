package translation

import (
	"context"
)

// Translation represents a translated segment.
type Translation struct {
	// SourceText is the original text that was translated.
	SourceText string `json:"sourceText"`
	// TranslatedText is the translated result.
	TranslatedText string `json:"translatedText"`
	// SourceLang is the source language (ISO 639-1 code).
	SourceLang string `json:"sourceLang"`
	// TargetLang is the target language (ISO 639-1 code).
	TargetLang string `json:"targetLang"`
	// Provider names the service that produced the translation.
	Provider string `json:"provider"`
}

// HealthStatus represents the health of a component.
type HealthStatus struct {
	Healthy    bool   `json:"healthy"`
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Translator converts text between languages.
type Translator interface {
	// Translate converts a single text segment to the target language. It
	// issues exactly one request and never retries.
	Translate(ctx context.Context, text string, sourceLang, targetLang string) (Translation, error)

	// Probe checks whether the service is reachable.
	Probe(ctx context.Context) HealthStatus

	// Name identifies the provider.
	Name() string
}
