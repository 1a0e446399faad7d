package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"voxbridge/packages/go/backend/config"
	"voxbridge/packages/go/backend/di"
	"voxbridge/packages/go/backend/translation"
)

func newTestServer(t *testing.T, translator translation.Translator, subscriber statusSubscriber) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.Default().Server
	cfg.HandshakeTimeout = time.Second
	container := di.NewContainer(
		di.WithTranslator(translator),
		di.WithAutoPlayDelay(20*time.Millisecond),
	)
	srv := httptest.NewServer(newRouter(newServer(ctx, cfg, container, subscriber, zap.NewNop().Sugar())))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	healthHandler(zap.NewNop().Sugar()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}
	if body := rr.Body.String(); body != "{\"status\":\"ok\"}" {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, translation.NewStubTranslator(nil), nil)
	resp, err := http.Post(srv.URL+"/healthz", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestRouterCORS(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, translation.NewStubTranslator(nil), nil)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Origin", "https://page.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard CORS header, got %q", got)
	}
}

func TestLanguagesHandler(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, translation.NewStubTranslator(nil), nil)
	resp, err := http.Get(srv.URL + "/v1/languages")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body languagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Source != "ja" || body.Target != "en" || len(body.Languages) != 2 {
		t.Fatalf("unexpected languages response: %+v", body)
	}
}

func TestTranslatorHealthHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		unhealthy bool
		want      int
	}{
		{name: "healthy", want: http.StatusOK},
		{name: "unhealthy", unhealthy: true, want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			translator := translation.NewStubTranslator(&translation.StubTranslatorConfig{Unhealthy: tt.unhealthy})
			srv := newTestServer(t, translator, nil)

			resp, err := http.Get(srv.URL + "/v1/translator/health")
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
			var body translatorHealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Provider != "stub" || body.Healthy == tt.unhealthy {
				t.Fatalf("unexpected body: %+v", body)
			}
		})
	}
}
