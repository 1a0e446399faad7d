package pipeline

import (
	"voxbridge/packages/go/backend/translation"
)

// Status lines shown to the user.
const (
	MsgReady                  = "Ready to translate"
	MsgListening              = "Listening... Speak now!"
	MsgStartFailed            = "Failed to start recording. Please try again."
	MsgNoSpeech               = "No speech detected. Try again."
	MsgNoText                 = "No text to translate"
	MsgTranslating            = "Translating..."
	MsgTranslationComplete    = "Translation complete!"
	MsgTranslationFailed      = "Translation failed. Please try again."
	MsgQuotaExceeded          = "Translation limit reached for today. Please try again later."
	MsgRateLimited            = "Too many translation requests. Please wait a moment."
	MsgPlaying                = "Playing translation..."
	MsgPlaybackFailed         = "Audio playback failed"
	MsgDirectionChanged       = "Language direction changed. Ready to translate."
	MsgRecognitionUnsupported = "Speech recognition not supported in this browser"
	MsgSynthesisUnsupported   = "Text-to-speech not supported in this browser"
)

// Service notices.
const (
	NoticeReady       = "✓ Translation service ready"
	NoticeSlow        = "⚠️ Translation service may be slow"
	NoticeCheckFailed = "⚠️ Translation service check failed"
	NoticeUnavailable = "⚠️ Translation service temporarily unavailable"
)

func statusForTranslationError(err error) string {
	switch translation.Classify(err) {
	case translation.FailureQuota:
		return MsgQuotaExceeded
	case translation.FailureRateLimit:
		return MsgRateLimited
	case translation.FailureInput:
		return MsgNoText
	default:
		return MsgTranslationFailed
	}
}

func noticeForProbe(health translation.HealthStatus) string {
	switch {
	case health.Healthy:
		return NoticeReady
	case health.StatusCode != 0:
		return NoticeSlow
	default:
		return NoticeCheckFailed
	}
}
