package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultMyMemoryEndpoint is the public MyMemory GET endpoint.
const DefaultMyMemoryEndpoint = "https://api.mymemory.translated.net/get"

// MyMemory speaks the MyMemory query-string API. Failures are reported in a
// top-level responseStatus field, often with HTTP 200.
type MyMemory struct {
	endpoint string
	email    string
	apiKey   string
}

// NewMyMemory creates a provider for endpoint. The email raises the anonymous
// daily quota; the key is used by paid accounts.
func NewMyMemory(endpoint, email, apiKey string) (*MyMemory, error) {
	if endpoint == "" {
		endpoint = DefaultMyMemoryEndpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("parse mymemory endpoint: %w", err)
	}
	return &MyMemory{endpoint: endpoint, email: email, apiKey: apiKey}, nil
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
}

func (p *MyMemory) Name() string {
	return "mymemory"
}

func (p *MyMemory) BuildRequest(ctx context.Context, req Request) (*http.Request, error) {
	return p.get(ctx, req.Text, req.SourceLang, req.TargetLang)
}

func (p *MyMemory) ProbeRequest(ctx context.Context) (*http.Request, error) {
	return p.get(ctx, "hello", "en", "ja")
}

func (p *MyMemory) get(ctx context.Context, text, source, target string) (*http.Request, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", text)
	q.Set("langpair", source+"|"+target)
	if p.email != "" {
		q.Set("de", p.email)
	}
	if p.apiKey != "" {
		q.Set("key", p.apiKey)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

func (p *MyMemory) ParseResponse(statusCode int, body []byte) Result {
	if !isSuccess(statusCode) {
		httpErr := &HTTPError{StatusCode: statusCode, Body: truncate(body)}
		if statusCode == http.StatusTooManyRequests {
			return Result{Err: fmt.Errorf("%w: %w", ErrRateLimited, httpErr)}
		}
		return Result{Err: httpErr}
	}

	var parsed myMemoryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}

	code, err := parseResponseStatus(parsed.ResponseStatus)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}

	switch code {
	case http.StatusOK:
	case http.StatusForbidden:
		return Result{Err: fmt.Errorf("%w: %s", ErrQuotaExceeded, parsed.ResponseDetails)}
	case http.StatusTooManyRequests:
		return Result{Err: fmt.Errorf("%w: %s", ErrRateLimited, parsed.ResponseDetails)}
	default:
		return Result{Err: &ProviderError{Provider: p.Name(), Code: code, Message: parsed.ResponseDetails}}
	}

	if strings.TrimSpace(parsed.ResponseData.TranslatedText) == "" {
		return Result{Err: fmt.Errorf("%w: missing responseData.translatedText", ErrMalformedResponse)}
	}
	return Result{Text: parsed.ResponseData.TranslatedText}
}

// parseResponseStatus accepts both 200 and "200"; MyMemory sends either.
func parseResponseStatus(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("missing responseStatus")
	}
	text := strings.Trim(string(raw), `"`)
	code, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("responseStatus %s: %w", raw, err)
	}
	return code, nil
}
