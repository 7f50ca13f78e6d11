package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	domainErrors "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
)

// ResumableThresholdBytes is the file size at which dispatch clients
// switch from single-shot uploads to the platform's resumable protocol.
const ResumableThresholdBytes int64 = 25 * 1024 * 1024

// maxErrorBodyBytes bounds how much of an error response body is read.
const maxErrorBodyBytes = 64 * 1024

// DoJSON performs an HTTP request with an optional JSON body and bearer
// token, decoding a 2xx response into out. Non-2xx responses become a
// PlatformError with the platform's own error description when present.
func DoJSON(ctx context.Context, client *http.Client, method, rawURL, bearer string, body, out interface{}, platformName, operation string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", operation, err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ReadPlatformError(resp, platformName, operation)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", operation, err)
		}
	}
	return nil
}

// PostForm posts application/x-www-form-urlencoded values, decoding a
// 2xx JSON response into out.
func PostForm(ctx context.Context, client *http.Client, rawURL string, values url.Values, headers map[string]string, out interface{}, platformName, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ReadPlatformError(resp, platformName, operation)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", operation, err)
		}
	}
	return nil
}

// errorEnvelope covers the error shapes the supported platforms return.
type errorEnvelope struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Message          string          `json:"message"`
	ErrorCode        json.Number     `json:"code"`
}

type nestedError struct {
	Message string      `json:"message"`
	Code    json.Number `json:"code"`
	Type    string      `json:"type"`
}

// ReadPlatformError decodes a non-2xx response into a PlatformError,
// surfacing the platform's own error description when present and a
// generic fallback otherwise.
func ReadPlatformError(resp *http.Response, platformName, operation string) *domainErrors.PlatformError {
	pe := &domainErrors.PlatformError{
		Platform:   platformName,
		Operation:  operation,
		StatusCode: resp.StatusCode,
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return pe
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// Not JSON at all; keep a bounded slice of the body as message.
		pe.Message = strings.TrimSpace(string(raw[:min(len(raw), 256)]))
		return pe
	}

	switch {
	case envelope.ErrorDescription != "":
		pe.Message = envelope.ErrorDescription
	case envelope.Message != "":
		pe.Message = envelope.Message
		pe.Code = envelope.ErrorCode.String()
	}
	if len(envelope.Error) > 0 {
		var nested nestedError
		if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
			pe.Message = nested.Message
			pe.Code = nested.Code.String()
		} else {
			// Some platforms put a plain string under "error".
			var s string
			if err := json.Unmarshal(envelope.Error, &s); err == nil && s != "" && pe.Message == "" {
				pe.Message = s
			}
		}
	}
	if pe.Code == "0" {
		pe.Code = ""
	}
	return pe
}

// IsRetryableStatus reports whether an HTTP status signals a transient
// condition worth re-attempting.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsAuthorizationError reports whether an error is a platform response
// carrying a 401, 403 or 404. Secondary resource fetches treat those as
// an empty result rather than a hard failure.
func IsAuthorizationError(err error) bool {
	var pe *domainErrors.PlatformError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// ClassifyPublishError turns a platform error into the retryable or
// terminal publication error kind; non-platform errors pass through as
// terminal.
func ClassifyPublishError(err error) error {
	if err == nil {
		return nil
	}
	var pe *domainErrors.PlatformError
	if errors.As(err, &pe) {
		if IsRetryableStatus(pe.StatusCode) {
			return domainErrors.NewRetryablePublicationError(pe, pe)
		}
		return domainErrors.NewTerminalPublicationError(pe, pe)
	}
	return err
}

// ProbeContentLength issues a HEAD request for the media URL and returns
// the reported size. A missing or invalid Content-Length yields -1 so
// callers fall back to the standard upload path.
func ProbeContentLength(ctx context.Context, client *http.Client, mediaURL string) int64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, mediaURL, nil)
	if err != nil {
		return -1
	}
	resp, err := client.Do(req)
	if err != nil {
		return -1
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || resp.ContentLength <= 0 {
		return -1
	}
	return resp.ContentLength
}
