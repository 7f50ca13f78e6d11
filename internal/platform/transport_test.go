package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

func errResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestReadPlatformError_EnvelopeShapes(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		wantMsg  string
		wantCode string
	}{
		{
			name:     "graph style nested error",
			body:     `{"error":{"message":"Invalid OAuth access token.","code":190,"type":"OAuthException"}}`,
			wantMsg:  "Invalid OAuth access token.",
			wantCode: "190",
		},
		{
			name:    "oauth error description",
			body:    `{"error":"invalid_grant","error_description":"Code was already redeemed."}`,
			wantMsg: "Code was already redeemed.",
		},
		{
			name:     "flat message with code",
			body:     `{"message":"Not enough permissions","code":100}`,
			wantMsg:  "Not enough permissions",
			wantCode: "100",
		},
		{
			name:    "plain string error",
			body:    `{"error":"something broke"}`,
			wantMsg: "something broke",
		},
		{
			name:    "non json body",
			body:    "<html>Bad Gateway</html>",
			wantMsg: "<html>Bad Gateway</html>",
		},
		{
			name: "empty body",
			body: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pe := ReadPlatformError(errResponse(http.StatusBadRequest, tc.body), "testplatform", "test_op")
			assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
			assert.Equal(t, tc.wantMsg, pe.Message)
			assert.Equal(t, tc.wantCode, pe.Code)
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsRetryableStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 409, 422} {
		assert.False(t, IsRetryableStatus(code), "status %d", code)
	}
}

func TestClassifyPublishError(t *testing.T) {
	retryable := ClassifyPublishError(&domainErrors.PlatformError{StatusCode: 429})
	assert.True(t, domainErrors.IsRetryablePublication(retryable))

	terminal := ClassifyPublishError(&domainErrors.PlatformError{StatusCode: 400})
	assert.False(t, domainErrors.IsRetryablePublication(terminal))

	wrapped := ClassifyPublishError(fmt.Errorf("upload: %w", &domainErrors.PlatformError{StatusCode: 503}))
	assert.True(t, domainErrors.IsRetryablePublication(wrapped))

	plain := errors.New("connection refused")
	assert.Equal(t, plain, ClassifyPublishError(plain))
	assert.Nil(t, ClassifyPublishError(nil))
}

func TestIsAuthorizationError(t *testing.T) {
	for _, code := range []int{401, 403, 404} {
		err := fmt.Errorf("lookup: %w", &domainErrors.PlatformError{StatusCode: code})
		assert.True(t, IsAuthorizationError(err), "status %d", code)
	}
	assert.False(t, IsAuthorizationError(&domainErrors.PlatformError{StatusCode: 500}))
	assert.False(t, IsAuthorizationError(errors.New("plain")))
}

func TestProbeContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Length", "1048576")
	}))
	defer server.Close()

	assert.Equal(t, int64(1048576), ProbeContentLength(context.Background(), server.Client(), server.URL))
	assert.Equal(t, int64(-1), ProbeContentLength(context.Background(), server.Client(), "http://127.0.0.1:1/nope"))
}

func TestMediaItemKindDetection(t *testing.T) {
	assert.True(t, IsImageItem(models.MediaItem{MimeType: "image/jpeg"}))
	assert.False(t, IsImageItem(models.MediaItem{MimeType: "video/mp4", URL: "https://cdn.example.com/a.jpg"}),
		"an explicit MIME type wins over the extension")
	assert.True(t, IsImageItem(models.MediaItem{URL: "https://cdn.example.com/photo.PNG?sig=abc"}))
	assert.False(t, IsImageItem(models.MediaItem{URL: "https://cdn.example.com/clip.mp4"}))

	assert.True(t, IsVideoItem(models.MediaItem{MimeType: "video/quicktime"}))
	assert.True(t, IsVideoItem(models.MediaItem{URL: "https://cdn.example.com/clip.mov?token=1"}))
	assert.False(t, IsVideoItem(models.MediaItem{URL: "https://cdn.example.com/a.jpeg"}))
	assert.False(t, IsVideoItem(models.MediaItem{}))
}

func TestCleanRedirectURI(t *testing.T) {
	c := Credentials{RedirectURI: "https://api.example.com/callback?platform=facebook"}
	assert.Equal(t, "https://api.example.com/callback", c.CleanRedirectURI())

	c = Credentials{RedirectURI: "https://api.example.com/callback"}
	assert.Equal(t, "https://api.example.com/callback", c.CleanRedirectURI())
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Client(models.PlatformFacebook)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrPlatformUnsupported))
}
