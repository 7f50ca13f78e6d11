package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

func (c *Client) Publish(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload) (*models.PublishResult, error) {
	author := c.authorURN(account)
	token := account.AccessToken

	post := map[string]interface{}{
		"author":     author,
		"commentary": payload.Message,
		"visibility": "PUBLIC",
		"distribution": map[string]interface{}{
			"feedDistribution": "MAIN_FEED",
		},
		"lifecycleState": "PUBLISHED",
	}

	switch payload.ContentType {
	case models.ContentTypePhoto:
		imageURN, err := c.uploadImage(ctx, author, token, payload.Items)
		if err != nil {
			return nil, platform.ClassifyPublishError(err)
		}
		post["content"] = map[string]interface{}{
			"media": map[string]interface{}{"id": imageURN, "altText": payload.Items[0].AltText},
		}
	case models.ContentTypeCarousel:
		urns, err := c.uploadCarouselImages(ctx, author, token, payload.Items)
		if err != nil {
			return nil, platform.ClassifyPublishError(err)
		}
		images := make([]map[string]interface{}, 0, len(urns))
		for _, urn := range urns {
			images = append(images, map[string]interface{}{"id": urn})
		}
		post["content"] = map[string]interface{}{
			"multiImage": map[string]interface{}{"images": images},
		}
	case models.ContentTypeVideo:
		videoURN, err := c.uploadVideo(ctx, author, token, payload.Items)
		if err != nil {
			return nil, platform.ClassifyPublishError(err)
		}
		post["content"] = map[string]interface{}{
			"media": map[string]interface{}{"id": videoURN, "title": payload.Title},
		}
	case models.ContentTypeLink:
		if payload.LinkURL == "" {
			return nil, domain.NewTerminalPublicationError(fmt.Errorf("%w: link post without a link URL", domain.ErrNoValidItems), nil)
		}
		article := map[string]interface{}{"source": payload.LinkURL}
		if payload.Title != "" {
			article["title"] = payload.Title
		}
		post["content"] = map[string]interface{}{"article": article}
	case models.ContentTypeStory:
		return nil, domain.NewTerminalPublicationError(fmt.Errorf("linkedin does not support stories"), nil)
	default:
		return nil, domain.NewTerminalPublicationError(fmt.Errorf("linkedin does not support content type %s", payload.ContentType), nil)
	}

	postID, err := c.createPost(ctx, token, post)
	if err != nil {
		return nil, platform.ClassifyPublishError(err)
	}

	if err := c.verifyPost(ctx, token, postID); err != nil {
		return nil, err
	}
	permalink := "https://www.linkedin.com/feed/update/" + url.PathEscape(postID)
	return &models.PublishResult{PostID: postID, Permalink: permalink}, nil
}

// createPost submits the post to the versioned REST API. The created
// post URN comes back in the x-restli-id response header.
func (c *Client) createPost(ctx context.Context, token string, post map[string]interface{}) (string, error) {
	body, err := json.Marshal(post)
	if err != nil {
		return "", fmt.Errorf("failed to encode post: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+"/rest/posts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.restHeaders(token) {
		req.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("linkedin create post failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", platform.ReadPlatformError(resp, "linkedin", "create_post")
	}
	io.Copy(io.Discard, resp.Body)

	postID := resp.Header.Get("x-restli-id")
	if postID == "" {
		return "", fmt.Errorf("linkedin create post response missing x-restli-id header")
	}
	return postID, nil
}

func (c *Client) uploadImage(ctx context.Context, author, token string, items []models.MediaItem) (string, error) {
	if len(items) == 0 || items[0].URL == "" {
		return "", fmt.Errorf("%w: payload carries no media", domain.ErrNoValidItems)
	}
	return c.uploadOneImage(ctx, author, token, items[0])
}

func (c *Client) uploadCarouselImages(ctx context.Context, author, token string, items []models.MediaItem) ([]string, error) {
	var urns []string
	for _, item := range items {
		if !platform.IsImageItem(item) {
			c.logger.Warn("Skipping unsupported carousel item",
				zap.String("media_id", item.MediaID),
				zap.String("mime_type", item.MimeType))
			continue
		}
		urn, err := c.uploadOneImage(ctx, author, token, item)
		if err != nil {
			c.logger.Warn("Carousel image upload failed, skipping item",
				zap.String("media_id", item.MediaID), zap.Error(err))
			continue
		}
		urns = append(urns, urn)
	}
	if len(urns) == 0 {
		return nil, domain.ErrNoValidItems
	}
	return urns, nil
}

func (c *Client) uploadOneImage(ctx context.Context, author, token string, item models.MediaItem) (string, error) {
	var init struct {
		Value struct {
			UploadURL string `json:"uploadUrl"`
			Image     string `json:"image"`
		} `json:"value"`
	}
	initBody := map[string]interface{}{
		"initializeUploadRequest": map[string]interface{}{"owner": author},
	}
	if err := c.doREST(ctx, token, c.APIURL+"/rest/images?action=initializeUpload", initBody, &init); err != nil {
		return "", err
	}

	body, size, err := platform.DownloadMedia(ctx, c.httpClient, item.URL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	headers := map[string]string{"Authorization": "Bearer " + token}
	if err := platform.UploadBytes(ctx, c.httpClient, init.Value.UploadURL, body, size, headers, "linkedin", "image_upload"); err != nil {
		return "", err
	}
	return init.Value.Image, nil
}

// uploadVideo initializes a video upload and streams the file. Large
// files go through the multipart part-by-part protocol; when that
// cannot be completed the single PUT path is attempted instead.
func (c *Client) uploadVideo(ctx context.Context, author, token string, items []models.MediaItem) (string, error) {
	if len(items) == 0 || items[0].URL == "" {
		return "", fmt.Errorf("%w: payload carries no media", domain.ErrNoValidItems)
	}
	mediaURL := items[0].URL

	size := platform.ProbeContentLength(ctx, c.httpClient, mediaURL)
	if size >= platform.ResumableThresholdBytes {
		urn, err := c.uploadVideoMultipart(ctx, author, token, mediaURL, size)
		if err == nil {
			return urn, nil
		}
		c.logger.Warn("Multipart video upload failed, falling back to single upload",
			zap.Int64("size_bytes", size), zap.Error(err))
	}
	return c.uploadVideoSingle(ctx, author, token, mediaURL)
}

type videoInit struct {
	Value struct {
		Video              string `json:"video"`
		UploadToken        string `json:"uploadToken"`
		UploadInstructions []struct {
			UploadURL string `json:"uploadUrl"`
			FirstByte int64  `json:"firstByte"`
			LastByte  int64  `json:"lastByte"`
		} `json:"uploadInstructions"`
	} `json:"value"`
}

func (c *Client) initVideoUpload(ctx context.Context, author, token string, size int64) (*videoInit, error) {
	var init videoInit
	body := map[string]interface{}{
		"initializeUploadRequest": map[string]interface{}{
			"owner":         author,
			"fileSizeBytes": size,
		},
	}
	if err := c.doREST(ctx, token, c.APIURL+"/rest/videos?action=initializeUpload", body, &init); err != nil {
		return nil, err
	}
	return &init, nil
}

func (c *Client) uploadVideoSingle(ctx context.Context, author, token, mediaURL string) (string, error) {
	body, size, err := platform.DownloadMedia(ctx, c.httpClient, mediaURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	init, err := c.initVideoUpload(ctx, author, token, size)
	if err != nil {
		return "", err
	}
	if len(init.Value.UploadInstructions) == 0 {
		return "", fmt.Errorf("linkedin video init returned no upload instructions")
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	if err := platform.UploadBytes(ctx, c.httpClient, init.Value.UploadInstructions[0].UploadURL, body, size, headers, "linkedin", "video_upload"); err != nil {
		return "", err
	}
	return c.finalizeVideo(ctx, token, init, nil)
}

func (c *Client) uploadVideoMultipart(ctx context.Context, author, token, mediaURL string, size int64) (string, error) {
	init, err := c.initVideoUpload(ctx, author, token, size)
	if err != nil {
		return "", err
	}
	if len(init.Value.UploadInstructions) == 0 {
		return "", fmt.Errorf("linkedin video init returned no upload instructions")
	}

	body, _, err := platform.DownloadMedia(ctx, c.httpClient, mediaURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var etags []string
	headers := map[string]string{"Authorization": "Bearer " + token}
	for _, instr := range init.Value.UploadInstructions {
		partSize := instr.LastByte - instr.FirstByte + 1
		etag, err := c.uploadVideoPart(ctx, instr.UploadURL, io.LimitReader(body, partSize), partSize, headers)
		if err != nil {
			return "", err
		}
		etags = append(etags, etag)
	}
	return c.finalizeVideo(ctx, token, init, etags)
}

func (c *Client) uploadVideoPart(ctx context.Context, uploadURL string, part io.Reader, size int64, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, part)
	if err != nil {
		return "", err
	}
	req.ContentLength = size
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("video part upload failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", platform.ReadPlatformError(resp, "linkedin", "video_part_upload")
	}
	io.Copy(io.Discard, resp.Body)
	return resp.Header.Get("ETag"), nil
}

func (c *Client) finalizeVideo(ctx context.Context, token string, init *videoInit, etags []string) (string, error) {
	finalize := map[string]interface{}{
		"finalizeUploadRequest": map[string]interface{}{
			"video":           init.Value.Video,
			"uploadToken":     init.Value.UploadToken,
			"uploadedPartIds": etags,
		},
	}
	if etags == nil {
		finalize["finalizeUploadRequest"].(map[string]interface{})["uploadedPartIds"] = []string{}
	}
	if err := c.doREST(ctx, token, c.APIURL+"/rest/videos?action=finalizeUpload", finalize, nil); err != nil {
		return "", err
	}
	return init.Value.Video, nil
}

func (c *Client) verifyPost(ctx context.Context, token, postID string) error {
	u := c.APIURL + "/rest/posts/" + url.PathEscape(postID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.NewTerminalPublicationError(err, nil)
	}
	for k, v := range c.restHeaders(token) {
		req.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewTerminalPublicationError(fmt.Errorf("%w: post %s: %v", domain.ErrVerificationFailed, postID, err), nil)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Post verification failed", zap.String("post_id", postID), zap.Int("status", resp.StatusCode))
		return domain.NewTerminalPublicationError(fmt.Errorf("%w: post %s lookup returned http %d", domain.ErrVerificationFailed, postID, resp.StatusCode), nil)
	}
	return nil
}

// doREST posts JSON to a versioned REST endpoint with the LinkedIn
// protocol headers.
func (c *Client) doREST(ctx context.Context, token, rawURL string, body, out interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.restHeaders(token) {
		req.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("linkedin request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return platform.ReadPlatformError(resp, "linkedin", "rest_action")
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode linkedin response: %w", err)
	}
	return nil
}
