package translation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStubTranslator_Translate(t *testing.T) {
	t.Parallel()

	translator := NewStubTranslator(nil)
	ctx := context.Background()

	// Test known translation
	result, err := translator.Translate(ctx, "こんにちは", "ja", "en")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if result.TranslatedText != "Hello" {
		t.Errorf("expected 'Hello', got %q", result.TranslatedText)
	}
	if result.SourceLang != "ja" {
		t.Errorf("expected source lang 'ja', got %q", result.SourceLang)
	}
	if result.TargetLang != "en" {
		t.Errorf("expected target lang 'en', got %q", result.TargetLang)
	}
	if result.Provider != "stub" {
		t.Errorf("expected provider 'stub', got %q", result.Provider)
	}
}

func TestStubTranslator_TranslateUnknown(t *testing.T) {
	t.Parallel()

	translator := NewStubTranslator(nil)

	result, err := translator.Translate(context.Background(), "Unknown text.", "en", "ja")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	expected := "[ja] Unknown text."
	if result.TranslatedText != expected {
		t.Errorf("expected %q, got %q", expected, result.TranslatedText)
	}
}

func TestStubTranslator_RejectsBlankInput(t *testing.T) {
	t.Parallel()

	translator := NewStubTranslator(nil)

	if _, err := translator.Translate(context.Background(), "  \n", "en", "ja"); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if calls := translator.Calls(); len(calls) != 0 {
		t.Fatalf("blank input must not be recorded as a call, got %d", len(calls))
	}
}

func TestStubTranslator_ConfiguredError(t *testing.T) {
	t.Parallel()

	translator := NewStubTranslator(&StubTranslatorConfig{Err: ErrQuotaExceeded})

	_, err := translator.Translate(context.Background(), "hello", "en", "ja")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if len(translator.Calls()) != 1 {
		t.Fatal("expected the failed call to be recorded")
	}
}

func TestStubTranslator_Probe(t *testing.T) {
	t.Parallel()

	if status := NewStubTranslator(nil).Probe(context.Background()); !status.Healthy {
		t.Error("expected healthy status")
	}
	if status := NewStubTranslator(&StubTranslatorConfig{Unhealthy: true}).Probe(context.Background()); status.Healthy {
		t.Error("expected unhealthy status")
	}
}

func TestStubTranslator_ContextCancellation(t *testing.T) {
	t.Parallel()

	config := &StubTranslatorConfig{
		ProcessingDelay: 200 * time.Millisecond,
	}
	translator := NewStubTranslator(config)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := translator.Translate(ctx, "Hello", "en", "ja")
	if err != context.Canceled {
		t.Errorf("expected context.Canceled error, got %v", err)
	}
}
