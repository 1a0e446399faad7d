package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voxbridge/packages/go/backend/translation"
)

func TestRunStubTranslation(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-provider", "stub", "-text", "こんにちは", "-from", "ja", "-to", "en"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != "Hello" {
		t.Fatalf("expected Hello, got %q", got)
	}
}

func TestRunLibreTranslateJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translatedText":"ありがとう"}`))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	args := []string{"-provider", "libretranslate", "-endpoint", srv.URL + "/translate", "-text", "Thank you", "-from", "en", "-to", "ja", "-json"}
	if code := run(context.Background(), args, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr.String())
	}

	var result translation.Translation
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if result.TranslatedText != "ありがとう" || result.TargetLang != "ja" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		code int
		err  string
	}{
		{name: "empty text", args: []string{"-provider", "stub"}, code: 2, err: "-text"},
		{name: "bad pair", args: []string{"-provider", "stub", "-text", "hi", "-from", "en", "-to", "en"}, code: 2, err: "different languages"},
		{name: "unknown provider", args: []string{"-provider", "deepl", "-text", "hi"}, code: 1, err: "unknown translation provider"},
		{name: "bad flag", args: []string{"-nope"}, code: 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != tt.code {
				t.Fatalf("expected exit %d, got %d (stderr %q)", tt.code, code, stderr.String())
			}
			if tt.err != "" && !strings.Contains(stderr.String(), tt.err) {
				t.Fatalf("expected stderr containing %q, got %q", tt.err, stderr.String())
			}
		})
	}
}

func TestRunProbe(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-provider", "stub", "-probe"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "healthy=true") {
		t.Fatalf("unexpected probe output %q", stdout.String())
	}
}
