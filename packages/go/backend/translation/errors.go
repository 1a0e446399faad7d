package translation

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is returned before any request when the input is blank.
	ErrEmptyText = errors.New("no text to translate")
	// ErrMalformedResponse covers undecodable bodies and missing translated text.
	ErrMalformedResponse = errors.New("malformed translation response")
	// ErrQuotaExceeded is reported by providers that meter usage.
	ErrQuotaExceeded = errors.New("translation quota exceeded")
	// ErrRateLimited is reported when the provider throttles requests.
	ErrRateLimited = errors.New("translation rate limited")
	// ErrUnknownProvider is returned by New for an unregistered provider name.
	ErrUnknownProvider = errors.New("unknown translation provider")
)

// HTTPError is a non-2xx answer the provider did not explain further.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("translation api error: %d", e.StatusCode)
	}
	return fmt.Sprintf("translation api error: %d: %s", e.StatusCode, e.Body)
}

// ProviderError is an error the provider reported inside its response body.
type ProviderError struct {
	Provider string
	Code     int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error %d: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// Failure classifies a Translate error for status reporting.
type Failure string

const (
	FailureNone      Failure = ""
	FailureInput     Failure = "input"
	FailureTransport Failure = "transport"
	FailureHTTP      Failure = "http"
	FailureMalformed Failure = "malformed"
	FailureQuota     Failure = "quota"
	FailureRateLimit Failure = "rate_limit"
	FailureProvider  Failure = "provider"
)

// Classify maps an error returned by Translate to its Failure category.
func Classify(err error) Failure {
	if err == nil {
		return FailureNone
	}

	var httpErr *HTTPError
	var providerErr *ProviderError
	switch {
	case errors.Is(err, ErrEmptyText):
		return FailureInput
	case errors.Is(err, ErrQuotaExceeded):
		return FailureQuota
	case errors.Is(err, ErrRateLimited):
		return FailureRateLimit
	case errors.Is(err, ErrMalformedResponse):
		return FailureMalformed
	case errors.As(err, &providerErr):
		return FailureProvider
	case errors.As(err, &httpErr):
		return FailureHTTP
	default:
		return FailureTransport
	}
}
