package pinterest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

const (
	mediaPollAttempts = 20
	mediaPollInterval = 3 * time.Second
)

// Publish creates a pin on the account's default board. Every Pinterest
// content kind is a pin; links become the pin's click-through URL.
func (c *Client) Publish(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload) (*models.PublishResult, error) {
	boardID, err := c.boardID(account)
	if err != nil {
		return nil, domain.NewTerminalPublicationError(err, nil)
	}
	token := account.AccessToken

	pin := map[string]interface{}{
		"board_id":    boardID,
		"description": payload.Message,
	}
	if payload.Title != "" {
		pin["title"] = payload.Title
	}
	if payload.LinkURL != "" {
		pin["link"] = payload.LinkURL
	}

	switch payload.ContentType {
	case models.ContentTypePhoto, models.ContentTypeLink:
		source, err := c.singleImageSource(payload)
		if err != nil {
			return nil, platform.ClassifyPublishError(err)
		}
		pin["media_source"] = source
	case models.ContentTypeCarousel:
		source, err := c.multiImageSource(payload)
		if err != nil {
			return nil, platform.ClassifyPublishError(err)
		}
		pin["media_source"] = source
	case models.ContentTypeVideo:
		source, err := c.videoSource(ctx, token, payload)
		if err != nil {
			return nil, platform.ClassifyPublishError(err)
		}
		pin["media_source"] = source
	default:
		return nil, domain.NewTerminalPublicationError(fmt.Errorf("pinterest does not support content type %s", payload.ContentType), nil)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodPost, c.APIURL+"/v5/pins", token, pin, &out, "pinterest", "create_pin"); err != nil {
		return nil, platform.ClassifyPublishError(err)
	}

	permalink, err := c.verifyPin(ctx, token, out.ID)
	if err != nil {
		return nil, err
	}
	return &models.PublishResult{PostID: out.ID, Permalink: permalink}, nil
}

func (c *Client) singleImageSource(payload models.PublicationPayload) (map[string]interface{}, error) {
	if len(payload.Items) == 0 || payload.Items[0].URL == "" {
		return nil, fmt.Errorf("%w: payload carries no media", domain.ErrNoValidItems)
	}
	return map[string]interface{}{
		"source_type": "image_url",
		"url":         payload.Items[0].URL,
	}, nil
}

func (c *Client) multiImageSource(payload models.PublicationPayload) (map[string]interface{}, error) {
	var items []map[string]interface{}
	for _, item := range payload.Items {
		if !platform.IsImageItem(item) {
			c.logger.Warn("Skipping unsupported carousel item",
				zap.String("media_id", item.MediaID),
				zap.String("mime_type", item.MimeType))
			continue
		}
		items = append(items, map[string]interface{}{"url": item.URL})
	}
	if len(items) == 0 {
		return nil, domain.ErrNoValidItems
	}
	return map[string]interface{}{
		"source_type": "multiple_image_urls",
		"items":       items,
	}, nil
}

// videoSource registers a media upload, streams the video to Pinterest
// storage and waits for processing before the pin can reference it.
func (c *Client) videoSource(ctx context.Context, token string, payload models.PublicationPayload) (map[string]interface{}, error) {
	if len(payload.Items) == 0 || payload.Items[0].URL == "" {
		return nil, fmt.Errorf("%w: payload carries no media", domain.ErrNoValidItems)
	}
	item := payload.Items[0]

	var reg struct {
		MediaID          string            `json:"media_id"`
		UploadURL        string            `json:"upload_url"`
		UploadParameters map[string]string `json:"upload_parameters"`
	}
	regBody := map[string]interface{}{"media_type": "video"}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodPost, c.APIURL+"/v5/media", token, regBody, &reg, "pinterest", "register_media"); err != nil {
		return nil, err
	}

	if err := c.uploadVideo(ctx, reg.UploadURL, reg.UploadParameters, item.URL); err != nil {
		return nil, err
	}

	if err := c.waitForMedia(ctx, token, reg.MediaID); err != nil {
		return nil, err
	}

	source := map[string]interface{}{
		"source_type": "video_id",
		"media_id":    reg.MediaID,
	}
	// A cover image is mandatory for video pins; reuse the first image
	// item when one travels with the payload.
	for _, other := range payload.Items[1:] {
		if platform.IsImageItem(other) {
			source["cover_image_url"] = other.URL
			break
		}
	}
	return source, nil
}

// uploadVideo posts the media as the multipart form the registration
// handed back, parameters first and the file as the final part.
func (c *Client) uploadVideo(ctx context.Context, uploadURL string, params map[string]string, mediaURL string) error {
	body, _, err := platform.DownloadMedia(ctx, c.httpClient, mediaURL)
	if err != nil {
		return err
	}
	defer body.Close()
	return platform.UploadMultipartFile(ctx, c.httpClient, uploadURL, params, "file", body, nil, "pinterest", "media_upload")
}

func (c *Client) waitForMedia(ctx context.Context, token, mediaID string) error {
	for attempt := 0; attempt < mediaPollAttempts; attempt++ {
		var out struct {
			Status string `json:"status"`
		}
		u := c.APIURL + "/v5/media/" + url.PathEscape(mediaID)
		if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, token, nil, &out, "pinterest", "media_status"); err != nil {
			return err
		}
		switch out.Status {
		case "succeeded":
			return nil
		case "failed":
			return domain.NewTerminalPublicationError(fmt.Errorf("pinterest media %s processing failed", mediaID), nil)
		}
		select {
		case <-ctx.Done():
			return domain.NewRetryablePublicationError(ctx.Err(), nil)
		case <-time.After(mediaPollInterval):
		}
	}
	return domain.NewRetryablePublicationError(fmt.Errorf("pinterest media %s still processing after %d checks", mediaID, mediaPollAttempts), nil)
}

func (c *Client) verifyPin(ctx context.Context, token, pinID string) (string, error) {
	var out struct {
		ID   string `json:"id"`
		Link string `json:"link"`
	}
	u := c.APIURL + "/v5/pins/" + url.PathEscape(pinID)
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, token, nil, &out, "pinterest", "verify_pin"); err != nil {
		c.logger.Error("Pin verification failed", zap.String("pin_id", pinID), zap.Error(err))
		return "", domain.NewTerminalPublicationError(fmt.Errorf("%w: pin %s: %v", domain.ErrVerificationFailed, pinID, err), nil)
	}
	if out.ID == "" {
		return "", domain.NewTerminalPublicationError(fmt.Errorf("%w: pin %s missing from lookup", domain.ErrVerificationFailed, pinID), nil)
	}
	return "https://www.pinterest.com/pin/" + out.ID + "/", nil
}
