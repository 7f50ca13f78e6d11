package media

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

// HTTPResolver maps media ids onto the media storage service and probes
// the object so dispatch gets a MIME type alongside the URL.
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPResolver(baseURL string, logger *zap.Logger) *HTTPResolver {
	return &HTTPResolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Named("media_resolver"),
	}
}

// Resolve builds the object URL for the item's media id and verifies the
// object exists. The storage-reported Content-Type wins over whatever
// the caller sent.
func (r *HTTPResolver) Resolve(ctx context.Context, item models.MediaItem) (models.MediaItem, error) {
	objectURL := r.baseURL + "/" + url.PathEscape(item.MediaID)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, objectURL, nil)
	if err != nil {
		return models.MediaItem{}, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("media lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.MediaItem{}, fmt.Errorf("media lookup returned http %d", resp.StatusCode)
	}

	resolved := item
	resolved.URL = objectURL
	if ct := resp.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		resolved.MimeType = ct
	}
	r.logger.Debug("Media resolved",
		zap.String("media_id", item.MediaID),
		zap.String("mime_type", resolved.MimeType))
	return resolved, nil
}
