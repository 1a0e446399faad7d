package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// DefaultLibreTranslateEndpoint is the public LibreTranslate instance.
const DefaultLibreTranslateEndpoint = "https://libretranslate.com/translate"

// LibreTranslate speaks the LibreTranslate JSON API.
type LibreTranslate struct {
	endpoint  string
	languages string
	apiKey    string
}

// NewLibreTranslate creates a provider posting to endpoint. The probe URL is
// the sibling /languages path.
func NewLibreTranslate(endpoint, apiKey string) (*LibreTranslate, error) {
	if endpoint == "" {
		endpoint = DefaultLibreTranslateEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse libretranslate endpoint: %w", err)
	}
	probe := *u
	probe.Path = path.Join(path.Dir(strings.TrimSuffix(u.Path, "/")), "languages")
	probe.RawQuery = ""

	return &LibreTranslate{endpoint: u.String(), languages: probe.String(), apiKey: apiKey}, nil
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

func (p *LibreTranslate) Name() string {
	return "libretranslate"
}

func (p *LibreTranslate) BuildRequest(ctx context.Context, req Request) (*http.Request, error) {
	payload, err := json.Marshal(libreRequest{
		Q:      req.Text,
		Source: req.SourceLang,
		Target: req.TargetLang,
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal libretranslate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

func (p *LibreTranslate) ParseResponse(statusCode int, body []byte) Result {
	var parsed libreResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if !isSuccess(statusCode) {
		httpErr := &HTTPError{StatusCode: statusCode, Body: truncate(body)}
		if decodeErr == nil && parsed.Error != "" {
			httpErr.Body = parsed.Error
		}
		if statusCode == http.StatusTooManyRequests {
			return Result{Err: fmt.Errorf("%w: %w", ErrRateLimited, httpErr)}
		}
		return Result{Err: httpErr}
	}

	if decodeErr != nil {
		return Result{Err: fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)}
	}
	if parsed.Error != "" {
		return Result{Err: &ProviderError{Provider: p.Name(), Message: parsed.Error}}
	}
	if strings.TrimSpace(parsed.TranslatedText) == "" {
		return Result{Err: fmt.Errorf("%w: missing translatedText", ErrMalformedResponse)}
	}
	return Result{Text: parsed.TranslatedText}
}

func (p *LibreTranslate) ProbeRequest(ctx context.Context) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, p.languages, nil)
}
