package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

const (
	containerPollAttempts = 20
	containerPollInterval = 3 * time.Second
)

// Publish runs the Instagram container flow: create a media container,
// wait for processing, then publish it. Stories and reels use the same
// flow with a different media_type.
func (c *Client) Publish(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload) (*models.PublishResult, error) {
	igID := c.igUserID(account)
	token := account.AccessToken

	var containerID string
	var err error
	switch payload.ContentType {
	case models.ContentTypePhoto:
		containerID, err = c.createSingleContainer(ctx, igID, token, payload, false)
	case models.ContentTypeVideo:
		containerID, err = c.createSingleContainer(ctx, igID, token, payload, false)
	case models.ContentTypeStory:
		containerID, err = c.createSingleContainer(ctx, igID, token, payload, true)
	case models.ContentTypeCarousel:
		containerID, err = c.createCarouselContainer(ctx, igID, token, payload)
	case models.ContentTypeLink:
		return nil, domain.NewTerminalPublicationError(fmt.Errorf("instagram does not support link posts"), nil)
	default:
		return nil, domain.NewTerminalPublicationError(fmt.Errorf("instagram does not support content type %s", payload.ContentType), nil)
	}
	if err != nil {
		return nil, platform.ClassifyPublishError(err)
	}

	if err := c.waitForContainer(ctx, containerID, token); err != nil {
		return nil, err
	}

	mediaID, err := c.publishContainer(ctx, igID, token, containerID)
	if err != nil {
		return nil, platform.ClassifyPublishError(err)
	}

	permalink, err := c.verifyMedia(ctx, mediaID, token, payload.ContentType)
	if err != nil {
		return nil, err
	}
	return &models.PublishResult{PostID: mediaID, Permalink: permalink}, nil
}

func (c *Client) createSingleContainer(ctx context.Context, igID, token string, payload models.PublicationPayload, story bool) (string, error) {
	if len(payload.Items) == 0 || payload.Items[0].URL == "" {
		return "", fmt.Errorf("%w: payload carries no media", domain.ErrNoValidItems)
	}
	item := payload.Items[0]

	form := url.Values{"access_token": {token}}
	if payload.Message != "" {
		form.Set("caption", payload.Message)
	}
	switch {
	case platform.IsVideoItem(item) && story:
		form.Set("media_type", "STORIES")
		form.Set("video_url", item.URL)
	case platform.IsVideoItem(item):
		form.Set("media_type", "REELS")
		form.Set("video_url", item.URL)
	case story:
		form.Set("media_type", "STORIES")
		form.Set("image_url", item.URL)
	default:
		form.Set("image_url", item.URL)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+igID+"/media", form, nil, &out, "instagram", "create_container"); err != nil {
		return "", err
	}
	return out.ID, nil
}

// createCarouselContainer builds one child container per usable item and
// aggregates the survivors. Unsupported items are skipped; everything
// dropping out fails the publication.
func (c *Client) createCarouselContainer(ctx context.Context, igID, token string, payload models.PublicationPayload) (string, error) {
	var children []string
	for _, item := range payload.Items {
		form := url.Values{
			"is_carousel_item": {"true"},
			"access_token":     {token},
		}
		switch {
		case platform.IsImageItem(item):
			form.Set("image_url", item.URL)
		case platform.IsVideoItem(item):
			form.Set("media_type", "VIDEO")
			form.Set("video_url", item.URL)
		default:
			c.logger.Warn("Skipping unsupported carousel item",
				zap.String("media_id", item.MediaID),
				zap.String("mime_type", item.MimeType))
			continue
		}
		var out struct {
			ID string `json:"id"`
		}
		if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+igID+"/media", form, nil, &out, "instagram", "create_carousel_child"); err != nil {
			c.logger.Warn("Carousel child container failed, skipping item",
				zap.String("media_id", item.MediaID), zap.Error(err))
			continue
		}
		children = append(children, out.ID)
	}
	if len(children) == 0 {
		return "", domain.ErrNoValidItems
	}

	form := url.Values{
		"media_type":   {"CAROUSEL"},
		"children":     {strings.Join(children, ",")},
		"access_token": {token},
	}
	if payload.Message != "" {
		form.Set("caption", payload.Message)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+igID+"/media", form, nil, &out, "instagram", "create_carousel"); err != nil {
		return "", err
	}
	return out.ID, nil
}

// waitForContainer polls the container until processing finishes. A
// container still in progress after the poll budget is a retryable
// condition; an error status is terminal.
func (c *Client) waitForContainer(ctx context.Context, containerID, token string) error {
	for attempt := 0; attempt < containerPollAttempts; attempt++ {
		u := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", c.GraphURL, containerID, url.QueryEscape(token))
		var out struct {
			StatusCode string `json:"status_code"`
		}
		if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, "", nil, &out, "instagram", "container_status"); err != nil {
			return platform.ClassifyPublishError(err)
		}
		switch out.StatusCode {
		case "FINISHED", "":
			return nil
		case "ERROR", "EXPIRED":
			return domain.NewTerminalPublicationError(fmt.Errorf("instagram container %s ended in status %s", containerID, out.StatusCode), nil)
		}
		select {
		case <-ctx.Done():
			return domain.NewRetryablePublicationError(ctx.Err(), nil)
		case <-time.After(containerPollInterval):
		}
	}
	return domain.NewRetryablePublicationError(fmt.Errorf("instagram container %s still processing after %d checks", containerID, containerPollAttempts), nil)
}

func (c *Client) publishContainer(ctx context.Context, igID, token, containerID string) (string, error) {
	form := url.Values{
		"creation_id":  {containerID},
		"access_token": {token},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+igID+"/media_publish", form, nil, &out, "instagram", "publish_container"); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) verifyMedia(ctx context.Context, mediaID, token string, contentType models.ContentType) (string, error) {
	u := fmt.Sprintf("%s/%s?fields=id,permalink&access_token=%s", c.GraphURL, mediaID, url.QueryEscape(token))
	var out struct {
		ID        string `json:"id"`
		Permalink string `json:"permalink"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, "", nil, &out, "instagram", "verify_media"); err != nil {
		c.logger.Error("Media verification failed", zap.String("media_id", mediaID), zap.Error(err))
		return "", domain.NewTerminalPublicationError(fmt.Errorf("%w: media %s: %v", domain.ErrVerificationFailed, mediaID, err), nil)
	}
	if out.ID == "" {
		return "", domain.NewTerminalPublicationError(fmt.Errorf("%w: media %s missing from lookup", domain.ErrVerificationFailed, mediaID), nil)
	}
	// Stories expose no permalink.
	if contentType == models.ContentTypeStory {
		return "", nil
	}
	return out.Permalink, nil
}
