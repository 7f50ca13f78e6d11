package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

// IsImageItem reports whether a media item is an image, by MIME type when
// present and by URL extension otherwise.
func IsImageItem(item models.MediaItem) bool {
	if item.MimeType != "" {
		return strings.HasPrefix(item.MimeType, "image/")
	}
	return hasAnySuffix(item.URL, ".jpg", ".jpeg", ".png", ".gif", ".webp")
}

// IsVideoItem reports whether a media item is a video.
func IsVideoItem(item models.MediaItem) bool {
	if item.MimeType != "" {
		return strings.HasPrefix(item.MimeType, "video/")
	}
	return hasAnySuffix(item.URL, ".mp4", ".mov", ".m4v", ".webm")
}

func hasAnySuffix(s string, suffixes ...string) bool {
	lower := strings.ToLower(s)
	if i := strings.IndexByte(lower, '?'); i >= 0 {
		lower = lower[:i]
	}
	for _, suf := range suffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}

// DownloadMedia opens a streaming GET for a resolved media URL. The
// caller owns the returned body.
func DownloadMedia(ctx context.Context, client *http.Client, mediaURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create media download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("media download failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("media download returned http %d", resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

// UploadMultipartFile posts a multipart form with the given fields and
// one file part. Storage endpoints that hand out signed forms expect the
// fields before the file part.
func UploadMultipartFile(ctx context.Context, client *http.Client, uploadURL string, fields map[string]string, fileField string, file io.Reader, headers map[string]string, platformName, operation string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to build %s upload form: %w", operation, err)
		}
	}
	part, err := writer.CreateFormFile(fileField, "media.bin")
	if err != nil {
		return fmt.Errorf("failed to build %s upload form: %w", operation, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read media for %s upload: %w", operation, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish %s upload form: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return fmt.Errorf("failed to create %s upload request: %w", operation, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s upload failed: %w", operation, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ReadPlatformError(resp, platformName, operation)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// UploadBytes PUTs a byte stream to an upload URL with optional headers.
func UploadBytes(ctx context.Context, client *http.Client, uploadURL string, body io.Reader, contentLength int64, headers map[string]string, platformName, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return fmt.Errorf("failed to create %s upload request: %w", operation, err)
	}
	if contentLength > 0 {
		req.ContentLength = contentLength
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s upload failed: %w", operation, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ReadPlatformError(resp, platformName, operation)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
