package tiktok

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

const (
	uploadChunkBytes = 10 * 1024 * 1024

	statusPollAttempts = 20
	statusPollInterval = 3 * time.Second
)

// Publish dispatches video and photo content through the TikTok content
// posting API, then polls the publish status until TikTok confirms the
// post exists.
func (c *Client) Publish(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload) (*models.PublishResult, error) {
	token := account.AccessToken

	var publishID string
	var err error
	switch payload.ContentType {
	case models.ContentTypeVideo:
		publishID, err = c.publishVideo(ctx, token, payload)
	case models.ContentTypePhoto, models.ContentTypeCarousel:
		publishID, err = c.publishPhotos(ctx, token, payload)
	default:
		return nil, domain.NewTerminalPublicationError(fmt.Errorf("tiktok does not support content type %s", payload.ContentType), nil)
	}
	if err != nil {
		return nil, platform.ClassifyPublishError(err)
	}

	if err := c.waitForPublish(ctx, token, publishID); err != nil {
		return nil, err
	}
	// TikTok exposes no stable permalink through the posting API.
	return &models.PublishResult{PostID: publishID}, nil
}

func (c *Client) publishVideo(ctx context.Context, token string, payload models.PublicationPayload) (string, error) {
	if len(payload.Items) == 0 || payload.Items[0].URL == "" {
		return "", fmt.Errorf("%w: payload carries no media", domain.ErrNoValidItems)
	}
	mediaURL := payload.Items[0].URL

	size := platform.ProbeContentLength(ctx, c.httpClient, mediaURL)
	if size >= platform.ResumableThresholdBytes {
		id, err := c.publishVideoFileUpload(ctx, token, payload.Title, mediaURL, size)
		if err == nil {
			return id, nil
		}
		c.logger.Warn("Chunked video upload failed, falling back to pull from URL",
			zap.Int64("size_bytes", size), zap.Error(err))
	}
	return c.publishVideoPull(ctx, token, payload.Title, mediaURL)
}

type initResponse struct {
	Data struct {
		PublishID string `json:"publish_id"`
		UploadURL string `json:"upload_url"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) checkAPIError(out *initResponse, operation string) error {
	if out.Error.Code != "" && out.Error.Code != "ok" {
		return &domain.PlatformError{
			Platform:  string(models.PlatformTikTok),
			Operation: operation,
			Code:      out.Error.Code,
			Message:   out.Error.Message,
		}
	}
	return nil
}

func (c *Client) publishVideoPull(ctx context.Context, token, title, mediaURL string) (string, error) {
	body := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":           title,
			"privacy_level":   "PUBLIC_TO_EVERYONE",
			"disable_comment": false,
		},
		"source_info": map[string]interface{}{
			"source":    "PULL_FROM_URL",
			"video_url": mediaURL,
		},
	}
	var out initResponse
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodPost, c.APIURL+"/v2/post/publish/video/init/", token, body, &out, "tiktok", "video_init"); err != nil {
		return "", err
	}
	if err := c.checkAPIError(&out, "video_init"); err != nil {
		return "", err
	}
	return out.Data.PublishID, nil
}

func (c *Client) publishVideoFileUpload(ctx context.Context, token, title, mediaURL string, size int64) (string, error) {
	chunkCount := size / uploadChunkBytes
	if chunkCount == 0 {
		chunkCount = 1
	}
	body := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":         title,
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]interface{}{
			"source":            "FILE_UPLOAD",
			"video_size":        size,
			"chunk_size":        uploadChunkBytes,
			"total_chunk_count": chunkCount,
		},
	}
	var out initResponse
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodPost, c.APIURL+"/v2/post/publish/video/init/", token, body, &out, "tiktok", "video_upload_init"); err != nil {
		return "", err
	}
	if err := c.checkAPIError(&out, "video_upload_init"); err != nil {
		return "", err
	}
	if out.Data.UploadURL == "" {
		return "", fmt.Errorf("tiktok upload init returned no upload_url")
	}

	if err := c.uploadChunks(ctx, out.Data.UploadURL, mediaURL, size, chunkCount); err != nil {
		return "", err
	}
	return out.Data.PublishID, nil
}

func (c *Client) uploadChunks(ctx context.Context, uploadURL, mediaURL string, size, chunkCount int64) error {
	body, _, err := platform.DownloadMedia(ctx, c.httpClient, mediaURL)
	if err != nil {
		return err
	}
	defer body.Close()

	var offset int64
	for chunk := int64(0); chunk < chunkCount; chunk++ {
		chunkSize := int64(uploadChunkBytes)
		// The final chunk absorbs the remainder.
		if chunk == chunkCount-1 {
			chunkSize = size - offset
		}
		rangeHeader := fmt.Sprintf("bytes %d-%d/%d", offset, offset+chunkSize-1, size)
		headers := map[string]string{
			"Content-Range": rangeHeader,
			"Content-Type":  "video/mp4",
		}
		if err := platform.UploadBytes(ctx, c.httpClient, uploadURL, io.LimitReader(body, chunkSize), chunkSize, headers, "tiktok", "video_chunk_upload"); err != nil {
			return err
		}
		offset += chunkSize
	}
	return nil
}

// publishPhotos posts one or more images in photo mode. Non-image items
// are skipped; a post with nothing left fails.
func (c *Client) publishPhotos(ctx context.Context, token string, payload models.PublicationPayload) (string, error) {
	var imageURLs []string
	for _, item := range payload.Items {
		if !platform.IsImageItem(item) {
			c.logger.Warn("Skipping unsupported photo mode item",
				zap.String("media_id", item.MediaID),
				zap.String("mime_type", item.MimeType))
			continue
		}
		imageURLs = append(imageURLs, item.URL)
	}
	if len(imageURLs) == 0 {
		return "", domain.ErrNoValidItems
	}

	body := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":         payload.Title,
			"description":   payload.Message,
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]interface{}{
			"source":            "PULL_FROM_URL",
			"photo_images":      imageURLs,
			"photo_cover_index": 0,
		},
		"post_mode":  "DIRECT_POST",
		"media_type": "PHOTO",
	}
	var out initResponse
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodPost, c.APIURL+"/v2/post/publish/content/init/", token, body, &out, "tiktok", "photo_init"); err != nil {
		return "", err
	}
	if err := c.checkAPIError(&out, "photo_init"); err != nil {
		return "", err
	}
	return out.Data.PublishID, nil
}

// waitForPublish polls the status endpoint until TikTok reports the
// post as published. A failed status is terminal; exhausting the poll
// budget while still processing is retryable.
func (c *Client) waitForPublish(ctx context.Context, token, publishID string) error {
	body := map[string]interface{}{"publish_id": publishID}

	for attempt := 0; attempt < statusPollAttempts; attempt++ {
		var out struct {
			Data struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		if err := platform.DoJSON(ctx, c.httpClient, http.MethodPost, c.APIURL+"/v2/post/publish/status/fetch/", token, body, &out, "tiktok", "status_fetch"); err != nil {
			return platform.ClassifyPublishError(err)
		}
		switch out.Data.Status {
		case "PUBLISH_COMPLETE":
			return nil
		case "FAILED":
			c.logger.Error("Publish verification reported failure", zap.String("publish_id", publishID))
			return domain.NewTerminalPublicationError(fmt.Errorf("%w: publish %s reported FAILED", domain.ErrVerificationFailed, publishID), nil)
		}
		select {
		case <-ctx.Done():
			return domain.NewRetryablePublicationError(ctx.Err(), nil)
		case <-time.After(statusPollInterval):
		}
	}
	return domain.NewRetryablePublicationError(fmt.Errorf("tiktok publish %s still processing after %d checks", publishID, statusPollAttempts), nil)
}
