package facebook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

// resumableChunkBytes is the transfer chunk size for the resumable
// video upload protocol.
const resumableChunkBytes = 8 * 1024 * 1024

func (c *Client) Publish(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload) (*models.PublishResult, error) {
	targetID, token, err := c.publishTarget(account)
	if err != nil {
		return nil, domain.NewTerminalPublicationError(err, nil)
	}

	var postID string
	switch payload.ContentType {
	case models.ContentTypePhoto:
		postID, err = c.publishPhoto(ctx, targetID, token, payload)
	case models.ContentTypeCarousel:
		postID, err = c.publishCarousel(ctx, targetID, token, payload)
	case models.ContentTypeVideo:
		postID, err = c.publishVideo(ctx, targetID, token, payload)
	case models.ContentTypeLink:
		postID, err = c.publishLink(ctx, targetID, token, payload)
	case models.ContentTypeStory:
		return c.publishStory(ctx, targetID, token, payload)
	default:
		return nil, domain.NewTerminalPublicationError(fmt.Errorf("facebook does not support content type %s", payload.ContentType), nil)
	}
	if err != nil {
		return nil, platform.ClassifyPublishError(err)
	}

	permalink, err := c.verifyPost(ctx, postID, token)
	if err != nil {
		return nil, err
	}
	return &models.PublishResult{PostID: postID, Permalink: permalink}, nil
}

func (c *Client) firstMediaURL(payload models.PublicationPayload) (string, error) {
	if len(payload.Items) == 0 || payload.Items[0].URL == "" {
		return "", fmt.Errorf("%w: payload carries no media", domain.ErrNoValidItems)
	}
	return payload.Items[0].URL, nil
}

func (c *Client) publishPhoto(ctx context.Context, targetID, token string, payload models.PublicationPayload) (string, error) {
	mediaURL, err := c.firstMediaURL(payload)
	if err != nil {
		return "", err
	}
	form := url.Values{
		"url":          {mediaURL},
		"access_token": {token},
	}
	if payload.Message != "" {
		form.Set("caption", payload.Message)
	}
	var out struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+targetID+"/photos", form, nil, &out, "facebook", "publish_photo"); err != nil {
		return "", err
	}
	if out.PostID != "" {
		return out.PostID, nil
	}
	return out.ID, nil
}

// publishCarousel uploads each image unpublished, then aggregates the
// surviving uploads into a single feed post. Items that are not images
// are skipped; failing the whole post requires every item to drop out.
func (c *Client) publishCarousel(ctx context.Context, targetID, token string, payload models.PublicationPayload) (string, error) {
	var mediaIDs []string
	for _, item := range payload.Items {
		if !platform.IsImageItem(item) {
			c.logger.Warn("Skipping unsupported carousel item",
				zap.String("media_id", item.MediaID),
				zap.String("mime_type", item.MimeType))
			continue
		}
		form := url.Values{
			"url":          {item.URL},
			"published":    {"false"},
			"access_token": {token},
		}
		var out struct {
			ID string `json:"id"`
		}
		if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+targetID+"/photos", form, nil, &out, "facebook", "upload_carousel_item"); err != nil {
			c.logger.Warn("Carousel item upload failed, skipping item",
				zap.String("media_id", item.MediaID), zap.Error(err))
			continue
		}
		mediaIDs = append(mediaIDs, out.ID)
	}
	if len(mediaIDs) == 0 {
		return "", domain.ErrNoValidItems
	}

	form := url.Values{
		"message":      {payload.Message},
		"access_token": {token},
	}
	for i, id := range mediaIDs {
		form.Set(fmt.Sprintf("attached_media[%d]", i), fmt.Sprintf(`{"media_fbid":"%s"}`, id))
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+targetID+"/feed", form, nil, &out, "facebook", "publish_carousel"); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) publishLink(ctx context.Context, targetID, token string, payload models.PublicationPayload) (string, error) {
	if payload.LinkURL == "" {
		return "", fmt.Errorf("%w: link post without a link URL", domain.ErrNoValidItems)
	}
	form := url.Values{
		"message":      {payload.Message},
		"link":         {payload.LinkURL},
		"access_token": {token},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+targetID+"/feed", form, nil, &out, "facebook", "publish_link"); err != nil {
		return "", err
	}
	return out.ID, nil
}

// publishVideo uploads via the resumable protocol for large files and
// falls back to the single-request file_url path when the resumable
// session cannot be completed.
func (c *Client) publishVideo(ctx context.Context, targetID, token string, payload models.PublicationPayload) (string, error) {
	mediaURL, err := c.firstMediaURL(payload)
	if err != nil {
		return "", err
	}

	size := platform.ProbeContentLength(ctx, c.httpClient, mediaURL)
	if size >= platform.ResumableThresholdBytes {
		id, resumableErr := c.publishVideoResumable(ctx, targetID, token, mediaURL, size, payload.Message)
		if resumableErr == nil {
			return id, nil
		}
		c.logger.Warn("Resumable video upload failed, falling back to standard upload",
			zap.Int64("size_bytes", size), zap.Error(resumableErr))
	}
	return c.publishVideoStandard(ctx, targetID, token, mediaURL, payload.Message)
}

func (c *Client) publishVideoStandard(ctx context.Context, targetID, token, mediaURL, description string) (string, error) {
	form := url.Values{
		"file_url":     {mediaURL},
		"description":  {description},
		"access_token": {token},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+targetID+"/videos", form, nil, &out, "facebook", "publish_video"); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) publishVideoResumable(ctx context.Context, targetID, token, mediaURL string, size int64, description string) (string, error) {
	videosURL := c.GraphURL + "/" + targetID + "/videos"

	var start struct {
		UploadSessionID string `json:"upload_session_id"`
		VideoID         string `json:"video_id"`
		StartOffset     string `json:"start_offset"`
	}
	startForm := url.Values{
		"upload_phase": {"start"},
		"file_size":    {strconv.FormatInt(size, 10)},
		"access_token": {token},
	}
	if err := platform.PostForm(ctx, c.httpClient, videosURL, startForm, nil, &start, "facebook", "video_upload_start"); err != nil {
		return "", err
	}

	body, _, err := platform.DownloadMedia(ctx, c.httpClient, mediaURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	offset := int64(0)
	buf := make([]byte, resumableChunkBytes)
	for offset < size {
		n, readErr := io.ReadFull(body, buf)
		if n == 0 {
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				break
			}
			return "", fmt.Errorf("video chunk read failed: %w", readErr)
		}
		if err := c.transferChunk(ctx, videosURL, token, start.UploadSessionID, offset, buf[:n]); err != nil {
			return "", err
		}
		offset += int64(n)
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("video chunk read failed: %w", readErr)
		}
	}

	finishForm := url.Values{
		"upload_phase":      {"finish"},
		"upload_session_id": {start.UploadSessionID},
		"description":       {description},
		"access_token":      {token},
	}
	var finish struct {
		Success bool `json:"success"`
	}
	if err := platform.PostForm(ctx, c.httpClient, videosURL, finishForm, nil, &finish, "facebook", "video_upload_finish"); err != nil {
		return "", err
	}
	if !finish.Success {
		return "", fmt.Errorf("facebook video upload finish reported failure")
	}
	return start.VideoID, nil
}

func (c *Client) transferChunk(ctx context.Context, videosURL, token, sessionID string, offset int64, chunk []byte) error {
	var formBody bytes.Buffer
	writer := multipart.NewWriter(&formBody)
	writer.WriteField("upload_phase", "transfer")
	writer.WriteField("upload_session_id", sessionID)
	writer.WriteField("start_offset", strconv.FormatInt(offset, 10))
	writer.WriteField("access_token", token)
	part, err := writer.CreateFormFile("video_file_chunk", "chunk.bin")
	if err != nil {
		return err
	}
	if _, err := part.Write(chunk); err != nil {
		return err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, videosURL, &formBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("video chunk transfer failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return platform.ReadPlatformError(resp, "facebook", "video_upload_transfer")
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// publishStory posts the first media item as a Page story. Stories have
// no public permalink.
func (c *Client) publishStory(ctx context.Context, targetID, token string, payload models.PublicationPayload) (*models.PublishResult, error) {
	mediaURL, err := c.firstMediaURL(payload)
	if err != nil {
		return nil, domain.NewTerminalPublicationError(err, nil)
	}

	if platform.IsVideoItem(payload.Items[0]) {
		videoID, err := c.publishVideoStandard(ctx, targetID, token, mediaURL, payload.Message)
		if err != nil {
			return nil, platform.ClassifyPublishError(err)
		}
		form := url.Values{
			"video_id":     {videoID},
			"access_token": {token},
		}
		var out struct {
			PostID string `json:"post_id"`
		}
		if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+targetID+"/video_stories", form, nil, &out, "facebook", "publish_video_story"); err != nil {
			return nil, platform.ClassifyPublishError(err)
		}
		return &models.PublishResult{PostID: out.PostID}, nil
	}

	uploadForm := url.Values{
		"url":          {mediaURL},
		"published":    {"false"},
		"access_token": {token},
	}
	var upload struct {
		ID string `json:"id"`
	}
	if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+targetID+"/photos", uploadForm, nil, &upload, "facebook", "upload_story_photo"); err != nil {
		return nil, platform.ClassifyPublishError(err)
	}

	storyForm := url.Values{
		"photo_id":     {upload.ID},
		"access_token": {token},
	}
	var out struct {
		PostID string `json:"post_id"`
	}
	if err := platform.PostForm(ctx, c.httpClient, c.GraphURL+"/"+targetID+"/photo_stories", storyForm, nil, &out, "facebook", "publish_photo_story"); err != nil {
		return nil, platform.ClassifyPublishError(err)
	}
	return &models.PublishResult{PostID: out.PostID}, nil
}

// verifyPost confirms the post exists after publishing. A missing post
// is a terminal failure regardless of what the publish call returned.
func (c *Client) verifyPost(ctx context.Context, postID, token string) (string, error) {
	u := fmt.Sprintf("%s/%s?fields=id,permalink_url&access_token=%s", c.GraphURL, url.PathEscape(postID), url.QueryEscape(token))
	var out struct {
		ID           string `json:"id"`
		PermalinkURL string `json:"permalink_url"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, "", nil, &out, "facebook", "verify_post"); err != nil {
		c.logger.Error("Post verification failed", zap.String("post_id", postID), zap.Error(err))
		return "", domain.NewTerminalPublicationError(fmt.Errorf("%w: post %s: %v", domain.ErrVerificationFailed, postID, err), nil)
	}
	if out.ID == "" {
		return "", domain.NewTerminalPublicationError(fmt.Errorf("%w: post %s missing from lookup", domain.ErrVerificationFailed, postID), nil)
	}
	return out.PermalinkURL, nil
}
