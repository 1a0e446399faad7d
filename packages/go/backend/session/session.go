package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedLanguage is returned when a language code is not in the table.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrSameLanguage is returned when both sides of a pair use the same language.
	ErrSameLanguage = errors.New("language pair requires two different languages")
)

// Language describes one side of the translation pair.
type Language struct {
	// Code is the ISO 639-1 code sent to the translation service.
	Code string `json:"code"`
	// Label is the human-readable name shown next to the direction toggle.
	Label string `json:"label"`
	// RecognitionLocale is the BCP 47 tag handed to the speech recognizer.
	RecognitionLocale string `json:"recognitionLocale"`
	// SynthesisLocale is the BCP 47 tag handed to the speech synthesizer.
	SynthesisLocale string `json:"synthesisLocale"`
}

var languages = map[string]Language{
	"ja": {Code: "ja", Label: "🇯🇵 Japanese", RecognitionLocale: "ja-JP", SynthesisLocale: "ja-JP"},
	"en": {Code: "en", Label: "🇬🇧 English", RecognitionLocale: "en-US", SynthesisLocale: "en-US"},
}

// LookupLanguage returns the table entry for a language code.
func LookupLanguage(code string) (Language, bool) {
	lang, ok := languages[strings.ToLower(strings.TrimSpace(code))]
	return lang, ok
}

// SupportedLanguages returns every language in the table ordered by code.
func SupportedLanguages() []Language {
	out := make([]Language, 0, len(languages))
	for _, lang := range languages {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Pair is the fixed language pair a session toggles between.
type Pair struct {
	A Language `json:"a"`
	B Language `json:"b"`
}

// NewPair resolves two language codes into a Pair.
func NewPair(a, b string) (Pair, error) {
	langA, ok := LookupLanguage(a)
	if !ok {
		return Pair{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, a)
	}
	langB, ok := LookupLanguage(b)
	if !ok {
		return Pair{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, b)
	}
	if langA.Code == langB.Code {
		return Pair{}, fmt.Errorf("%w: %q", ErrSameLanguage, langA.Code)
	}
	return Pair{A: langA, B: langB}, nil
}

// DefaultPair is Japanese and English.
func DefaultPair() Pair {
	return Pair{A: languages["ja"], B: languages["en"]}
}

// Forward returns the A→B direction, which is where every session starts.
func (p Pair) Forward() Direction {
	return Direction{Source: p.A, Target: p.B}
}

// Direction is the active ordering of a Pair.
type Direction struct {
	Source Language `json:"source"`
	Target Language `json:"target"`
}

// Toggle swaps source and target.
func (d Direction) Toggle() Direction {
	return Direction{Source: d.Target, Target: d.Source}
}

// String renders the direction as "src-tgt", e.g. "ja-en".
func (d Direction) String() string {
	return d.Source.Code + "-" + d.Target.Code
}

// RecordingState is the push-to-talk state of a session.
type RecordingState int

const (
	Idle RecordingState = iota
	Recording
)

func (s RecordingState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	default:
		return fmt.Sprintf("RecordingState(%d)", int(s))
	}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}
