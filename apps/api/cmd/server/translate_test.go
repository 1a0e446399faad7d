package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"voxbridge/packages/go/backend/translation"
)

func TestTranslateHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		config     *translation.StubTranslatorConfig
		body       string
		wantStatus int
		wantText   string
		wantError  string
	}{
		{
			name:       "translates",
			body:       `{"text":"こんにちは","source":"ja","target":"en"}`,
			wantStatus: http.StatusOK,
			wantText:   "Hello",
		},
		{
			name:       "reverse direction",
			body:       `{"text":"Thank you","source":"en","target":"ja"}`,
			wantStatus: http.StatusOK,
			wantText:   "ありがとう",
		},
		{
			name:       "blank text",
			body:       `{"text":"   ","source":"ja","target":"en"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid payload",
		},
		{
			name:       "unknown field",
			body:       `{"text":"hi","source":"en","target":"ja","voice":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "unknown field",
		},
		{
			name:       "unsupported language",
			body:       `{"text":"bonjour","source":"fr","target":"en"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "unsupported language",
		},
		{
			name:       "same language",
			body:       `{"text":"hi","source":"en","target":"en"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "two different languages",
		},
		{
			name:       "quota",
			config:     &translation.StubTranslatorConfig{Err: translation.ErrQuotaExceeded},
			body:       `{"text":"hi","source":"en","target":"ja"}`,
			wantStatus: http.StatusTooManyRequests,
			wantError:  "quota",
		},
		{
			name:       "upstream failure",
			config:     &translation.StubTranslatorConfig{Err: &translation.HTTPError{StatusCode: 500}},
			body:       `{"text":"hi","source":"en","target":"ja"}`,
			wantStatus: http.StatusBadGateway,
			wantError:  "500",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := tt.config
			if cfg == nil {
				cfg = &translation.StubTranslatorConfig{Dictionary: translation.DefaultStubTranslatorConfig().Dictionary}
			}
			srv := newTestServer(t, translation.NewStubTranslator(cfg), nil)

			resp, err := http.Post(srv.URL+"/v1/translate", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if tt.wantError != "" {
				var body map[string]string
				if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if !strings.Contains(body["error"], tt.wantError) {
					t.Fatalf("expected error containing %q, got %q", tt.wantError, body["error"])
				}
				return
			}

			var result translation.Translation
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if result.TranslatedText != tt.wantText {
				t.Fatalf("expected %q, got %q", tt.wantText, result.TranslatedText)
			}
		})
	}
}

func TestStatusForFailure(t *testing.T) {
	t.Parallel()

	cases := map[translation.Failure]int{
		translation.FailureInput:     http.StatusBadRequest,
		translation.FailureQuota:     http.StatusTooManyRequests,
		translation.FailureRateLimit: http.StatusTooManyRequests,
		translation.FailureMalformed: http.StatusBadGateway,
		translation.FailureTransport: http.StatusBadGateway,
	}
	for failure, want := range cases {
		if got := statusForFailure(failure); got != want {
			t.Fatalf("%s: expected %d, got %d", failure, want, got)
		}
	}
}
