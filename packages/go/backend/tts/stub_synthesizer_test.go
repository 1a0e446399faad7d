package tts

import (
	"context"
	"testing"
	"time"
)

func drain(t *testing.T, events <-chan PlaybackEvent) []PlaybackEvent {
	t.Helper()

	var out []PlaybackEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("playback did not finish, got %d events", len(out))
		}
	}
}

func TestStubSynthesizer_Speak(t *testing.T) {
	t.Parallel()

	synthesizer := NewStubSynthesizer(nil)
	u := NewUtterance("Hello", "en-US", nil)

	events, err := synthesizer.Speak(context.Background(), u)
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	got := drain(t, events)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %+v", got)
	}
	if got[0].Kind != PlaybackStarted || got[1].Kind != PlaybackEnded {
		t.Errorf("unexpected sequence: %+v", got)
	}
	for _, ev := range got {
		if ev.UtteranceID != u.ID {
			t.Errorf("expected utterance %s, got %s", u.ID, ev.UtteranceID)
		}
	}

	spoken := synthesizer.Spoken()
	if len(spoken) != 1 || spoken[0].Text != "Hello" {
		t.Errorf("unexpected spoken list: %+v", spoken)
	}
}

func TestStubSynthesizer_CancelInterrupts(t *testing.T) {
	t.Parallel()

	synthesizer := NewStubSynthesizer(&StubSynthesizerConfig{ProcessingDelay: time.Second})

	events, err := synthesizer.Speak(context.Background(), NewUtterance("Hello", "en-US", nil))
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if err := synthesizer.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	got := drain(t, events)
	if len(got) != 2 || got[1].Kind != PlaybackError || got[1].Error != "interrupted" {
		t.Fatalf("expected interrupted playback, got %+v", got)
	}
	if synthesizer.Cancels() != 1 {
		t.Errorf("expected 1 cancel, got %d", synthesizer.Cancels())
	}
}

func TestStubSynthesizer_FailWith(t *testing.T) {
	t.Parallel()

	synthesizer := NewStubSynthesizer(&StubSynthesizerConfig{FailWith: "synthesis-failed"})

	events, err := synthesizer.Speak(context.Background(), NewUtterance("Hello", "en-US", nil))
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	got := drain(t, events)
	if got[len(got)-1].Kind != PlaybackError || got[len(got)-1].Error != "synthesis-failed" {
		t.Fatalf("expected error event, got %+v", got)
	}
}

func TestNewUtterance_DefaultProsody(t *testing.T) {
	t.Parallel()

	u := NewUtterance("こんにちは", "ja-JP", nil)
	if u.Rate != 0.9 || u.Pitch != 1 || u.Volume != 1 {
		t.Errorf("unexpected prosody: rate=%v pitch=%v volume=%v", u.Rate, u.Pitch, u.Volume)
	}
	if u.ID == "" {
		t.Error("expected utterance id")
	}
	if other := NewUtterance("こんにちは", "ja-JP", nil); other.ID == u.ID {
		t.Error("expected unique utterance ids")
	}
}

func TestSelectVoice(t *testing.T) {
	t.Parallel()

	voices := DefaultStubSynthesizerConfig().AvailableVoices

	tests := []struct {
		lang string
		want string
	}{
		{lang: "en", want: "Samantha"},
		{lang: "ja", want: "Kyoko"},
		{lang: "fr", want: ""},
	}

	for _, tt := range tests {
		voice := SelectVoice(voices, tt.lang)
		switch {
		case tt.want == "" && voice != nil:
			t.Errorf("%s: expected no voice, got %+v", tt.lang, voice)
		case tt.want != "" && (voice == nil || voice.Name != tt.want):
			t.Errorf("%s: expected %s, got %+v", tt.lang, tt.want, voice)
		}
	}
}

func TestStubSynthesizer_Health(t *testing.T) {
	t.Parallel()

	if status := NewStubSynthesizer(nil).Health(); !status.Healthy {
		t.Error("expected healthy status")
	}
}
