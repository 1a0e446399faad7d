package translation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// Request is the provider-neutral input of one translation call.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Result is the typed outcome of parsing a provider response: either Text is
// set or Err is.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the response carried a translation.
func (r Result) OK() bool {
	return r.Err == nil
}

// Provider isolates everything specific to one translation service. Swapping
// services means swapping the Provider; the client and pipeline stay the same.
type Provider interface {
	Name() string
	BuildRequest(ctx context.Context, req Request) (*http.Request, error)
	ParseResponse(statusCode int, body []byte) Result
	ProbeRequest(ctx context.Context) (*http.Request, error)
}

// HTTPTranslator sends requests built by a Provider over HTTP.
type HTTPTranslator struct {
	provider Provider
	client   *http.Client
	logger   *zap.SugaredLogger
}

// NewHTTPTranslator creates a translator for the given provider. A nil client
// gets a default one with the given timeout.
func NewHTTPTranslator(provider Provider, client *http.Client, timeout time.Duration, logger *zap.SugaredLogger) *HTTPTranslator {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &HTTPTranslator{provider: provider, client: client, logger: logger}
}

// Name identifies the provider.
func (t *HTTPTranslator) Name() string {
	return t.provider.Name()
}

// Translate issues exactly one request to the provider.
func (t *HTTPTranslator) Translate(ctx context.Context, text string, sourceLang, targetLang string) (Translation, error) {
	if strings.TrimSpace(text) == "" {
		return Translation{}, ErrEmptyText
	}

	req, err := t.provider.BuildRequest(ctx, Request{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
	if err != nil {
		return Translation{}, fmt.Errorf("build %s request: %w", t.provider.Name(), err)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return Translation{}, fmt.Errorf("%s request: %w", t.provider.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Translation{}, fmt.Errorf("read %s response: %w", t.provider.Name(), err)
	}

	result := t.provider.ParseResponse(resp.StatusCode, body)
	t.logger.Debugw("translation response",
		"provider", t.provider.Name(),
		"statusCode", resp.StatusCode,
		"sourceLang", sourceLang,
		"targetLang", targetLang,
		"ok", result.OK(),
		"duration", time.Since(start),
	)
	if !result.OK() {
		return Translation{}, result.Err
	}

	return Translation{
		SourceText:     text,
		TranslatedText: result.Text,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Provider:       t.provider.Name(),
	}, nil
}

// Probe performs the provider's lightweight availability check.
func (t *HTTPTranslator) Probe(ctx context.Context) HealthStatus {
	req, err := t.provider.ProbeRequest(ctx)
	if err != nil {
		return HealthStatus{Message: err.Error()}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warnw("translation probe failed", "provider", t.provider.Name(), "error", err)
		return HealthStatus{Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return HealthStatus{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return HealthStatus{Healthy: true, StatusCode: resp.StatusCode, Message: t.provider.Name() + " reachable"}
}

func truncate(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode <= 299
}
