package ultradns

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tfullert/ultra-cli/pkg/errkind"
	"github.com/tfullert/ultra-cli/pkg/retry"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	// Code is the service's errorCode, when the body carried one.
	Code int
	// Message is the service's errorMessage or OAuth error_description.
	Message string
	// Retry is the Retry-After hint of a 429 or 503 response.
	Retry time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	if e.Code != 0 {
		return fmt.Sprintf("API request failed with status %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

// RetryClass implements retry.Classifier.
func (e *APIError) RetryClass() retry.Class {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return retry.Throttled
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode >= 500:
		return retry.Transient
	default:
		return retry.Permanent
	}
}

// Is marks throttled responses as errkind.RateLimited, so the mark survives
// in the FetchFailed or AuthenticationFailed error that ends a retry loop.
func (e *APIError) Is(target error) bool {
	k, ok := target.(errkind.Kind)
	return ok && k == errkind.RateLimited && e.StatusCode == http.StatusTooManyRequests
}

// RetryAfter implements retry.RetryAfterer.
func (e *APIError) RetryAfter() time.Duration {
	return e.Retry
}

// Unauthorized reports whether the server rejected the bearer token.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// errorBody covers the three shapes the service uses for errors: a list of
// {errorCode, errorMessage}, a single such object, and the OAuth
// {error, error_description} form of the token endpoint.
type errorBody struct {
	ErrorCode        int    `json:"errorCode"`
	ErrorMessage     string `json:"errorMessage"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func newAPIError(resp *http.Response, body []byte, now time.Time) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Retry:      parseRetryAfter(resp.Header.Get("Retry-After"), now),
	}

	var eb errorBody
	trimmed := strings.TrimSpace(string(body))
	switch {
	case strings.HasPrefix(trimmed, "["):
		var list []errorBody
		if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
			eb = list[0]
		}
	case strings.HasPrefix(trimmed, "{"):
		_ = json.Unmarshal(body, &eb)
	}

	apiErr.Code = eb.ErrorCode
	switch {
	case eb.ErrorMessage != "":
		apiErr.Message = eb.ErrorMessage
	case eb.ErrorDescription != "":
		apiErr.Message = eb.ErrorDescription
	case eb.Error != "":
		apiErr.Message = eb.Error
	case trimmed != "" && !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "["):
		apiErr.Message = truncate(trimmed, 200)
	}
	return apiErr
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
