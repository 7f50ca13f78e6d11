package x

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

const (
	chunkBytes = 5 * 1024 * 1024

	processingPollAttempts = 20
)

func (c *Client) Publish(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload) (*models.PublishResult, error) {
	token := account.AccessToken

	var mediaIDs []string
	switch payload.ContentType {
	case models.ContentTypeLink:
		// Links travel inline in the tweet text.
	case models.ContentTypePhoto, models.ContentTypeVideo, models.ContentTypeCarousel:
		ids, err := c.uploadMedia(ctx, token, payload)
		if err != nil {
			return nil, platform.ClassifyPublishError(err)
		}
		mediaIDs = ids
	case models.ContentTypeStory:
		return nil, domain.NewTerminalPublicationError(fmt.Errorf("x does not support stories"), nil)
	default:
		return nil, domain.NewTerminalPublicationError(fmt.Errorf("x does not support content type %s", payload.ContentType), nil)
	}

	text := payload.Message
	if payload.ContentType == models.ContentTypeLink && payload.LinkURL != "" {
		if text != "" {
			text += " "
		}
		text += payload.LinkURL
	}

	tweetID, err := c.createTweet(ctx, token, text, mediaIDs)
	if err != nil {
		return nil, platform.ClassifyPublishError(err)
	}

	if err := c.verifyTweet(ctx, token, tweetID); err != nil {
		return nil, err
	}

	permalink := "https://x.com/i/status/" + tweetID
	if username := c.username(account); username != "" {
		permalink = "https://x.com/" + url.PathEscape(username) + "/status/" + tweetID
	}
	return &models.PublishResult{PostID: tweetID, Permalink: permalink}, nil
}

// uploadMedia pushes each item through the chunked upload endpoint.
// Unsupported carousel items are skipped; single-item posts fail on an
// unusable item.
func (c *Client) uploadMedia(ctx context.Context, token string, payload models.PublicationPayload) ([]string, error) {
	if len(payload.Items) == 0 {
		return nil, fmt.Errorf("%w: payload carries no media", domain.ErrNoValidItems)
	}

	var mediaIDs []string
	for _, item := range payload.Items {
		if !platform.IsImageItem(item) && !platform.IsVideoItem(item) {
			c.logger.Warn("Skipping unsupported media item",
				zap.String("media_id", item.MediaID),
				zap.String("mime_type", item.MimeType))
			continue
		}
		id, err := c.uploadOne(ctx, token, item)
		if err != nil {
			if payload.ContentType == models.ContentTypeCarousel {
				c.logger.Warn("Media upload failed, skipping carousel item",
					zap.String("media_id", item.MediaID), zap.Error(err))
				continue
			}
			return nil, err
		}
		mediaIDs = append(mediaIDs, id)
	}
	if len(mediaIDs) == 0 {
		return nil, domain.ErrNoValidItems
	}
	return mediaIDs, nil
}

func mediaCategory(item models.MediaItem) string {
	if platform.IsVideoItem(item) {
		return "tweet_video"
	}
	if strings.Contains(strings.ToLower(item.MimeType), "gif") {
		return "tweet_gif"
	}
	return "tweet_image"
}

// uploadOne runs the INIT, APPEND, FINALIZE sequence and waits out any
// asynchronous processing before the media id is usable.
func (c *Client) uploadOne(ctx context.Context, token string, item models.MediaItem) (string, error) {
	body, size, err := platform.DownloadMedia(ctx, c.httpClient, item.URL)
	if err != nil {
		return "", err
	}
	defer body.Close()
	if size <= 0 {
		return "", fmt.Errorf("media %s has unknown size, cannot chunk upload", item.MediaID)
	}

	uploadEndpoint := c.UploadURL + "/1.1/media/upload.json"

	mimeType := item.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	initForm := url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.FormatInt(size, 10)},
		"media_type":     {mimeType},
		"media_category": {mediaCategory(item)},
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	var initOut struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := platform.PostForm(ctx, c.httpClient, uploadEndpoint, initForm, headers, &initOut, "x", "media_init"); err != nil {
		return "", err
	}
	mediaID := initOut.MediaIDString

	segment := 0
	buf := make([]byte, chunkBytes)
	for {
		n, readErr := io.ReadFull(body, buf)
		if n > 0 {
			if err := c.appendChunk(ctx, token, uploadEndpoint, mediaID, segment, buf[:n]); err != nil {
				return "", err
			}
			segment++
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("media chunk read failed: %w", readErr)
		}
	}

	finalizeForm := url.Values{
		"command":  {"FINALIZE"},
		"media_id": {mediaID},
	}
	var finalizeOut struct {
		ProcessingInfo *struct {
			State          string `json:"state"`
			CheckAfterSecs int    `json:"check_after_secs"`
		} `json:"processing_info"`
	}
	if err := platform.PostForm(ctx, c.httpClient, uploadEndpoint, finalizeForm, headers, &finalizeOut, "x", "media_finalize"); err != nil {
		return "", err
	}

	if finalizeOut.ProcessingInfo != nil {
		if err := c.waitForProcessing(ctx, token, uploadEndpoint, mediaID); err != nil {
			return "", err
		}
	}
	return mediaID, nil
}

func (c *Client) appendChunk(ctx context.Context, token, uploadEndpoint, mediaID string, segment int, chunk []byte) error {
	fields := map[string]string{
		"command":       "APPEND",
		"media_id":      mediaID,
		"segment_index": strconv.Itoa(segment),
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	return platform.UploadMultipartFile(ctx, c.httpClient, uploadEndpoint, fields, "media", bytes.NewReader(chunk), headers, "x", "media_append")
}

func (c *Client) waitForProcessing(ctx context.Context, token, uploadEndpoint, mediaID string) error {
	for attempt := 0; attempt < processingPollAttempts; attempt++ {
		u := uploadEndpoint + "?command=STATUS&media_id=" + url.QueryEscape(mediaID)
		var out struct {
			ProcessingInfo *struct {
				State          string `json:"state"`
				CheckAfterSecs int    `json:"check_after_secs"`
			} `json:"processing_info"`
		}
		if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, token, nil, &out, "x", "media_status"); err != nil {
			return err
		}
		if out.ProcessingInfo == nil || out.ProcessingInfo.State == "succeeded" {
			return nil
		}
		if out.ProcessingInfo.State == "failed" {
			return domain.NewTerminalPublicationError(fmt.Errorf("x media %s processing failed", mediaID), nil)
		}
		wait := time.Duration(out.ProcessingInfo.CheckAfterSecs) * time.Second
		if wait <= 0 {
			wait = 2 * time.Second
		}
		select {
		case <-ctx.Done():
			return domain.NewRetryablePublicationError(ctx.Err(), nil)
		case <-time.After(wait):
		}
	}
	return domain.NewRetryablePublicationError(fmt.Errorf("x media %s still processing after %d checks", mediaID, processingPollAttempts), nil)
}

func (c *Client) createTweet(ctx context.Context, token, text string, mediaIDs []string) (string, error) {
	body := map[string]interface{}{}
	if text != "" {
		body["text"] = text
	}
	if len(mediaIDs) > 0 {
		body["media"] = map[string]interface{}{"media_ids": mediaIDs}
	}
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodPost, c.APIURL+"/2/tweets", token, body, &out, "x", "create_tweet"); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("x create tweet response missing id")
	}
	return out.Data.ID, nil
}

func (c *Client) verifyTweet(ctx context.Context, token, tweetID string) error {
	u := c.APIURL + "/2/tweets/" + url.PathEscape(tweetID)
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, token, nil, &out, "x", "verify_tweet"); err != nil {
		c.logger.Error("Tweet verification failed", zap.String("tweet_id", tweetID), zap.Error(err))
		return domain.NewTerminalPublicationError(fmt.Errorf("%w: tweet %s: %v", domain.ErrVerificationFailed, tweetID, err), nil)
	}
	if out.Data.ID == "" {
		return domain.NewTerminalPublicationError(fmt.Errorf("%w: tweet %s missing from lookup", domain.ErrVerificationFailed, tweetID), nil)
	}
	return nil
}
