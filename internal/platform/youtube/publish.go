package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

// Publish uploads a video. YouTube carries no other content kind; large
// files go through a resumable upload session with a multipart fallback.
func (c *Client) Publish(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload) (*models.PublishResult, error) {
	if payload.ContentType != models.ContentTypeVideo {
		return nil, domain.NewTerminalPublicationError(fmt.Errorf("youtube does not support content type %s", payload.ContentType), nil)
	}
	if len(payload.Items) == 0 || payload.Items[0].URL == "" {
		return nil, domain.NewTerminalPublicationError(fmt.Errorf("%w: payload carries no media", domain.ErrNoValidItems), nil)
	}
	mediaURL := payload.Items[0].URL
	token := account.AccessToken

	metadata := map[string]interface{}{
		"snippet": map[string]interface{}{
			"title":       c.videoTitle(payload),
			"description": payload.Message,
		},
		"status": map[string]interface{}{
			"privacyStatus":           "public",
			"selfDeclaredMadeForKids": false,
		},
	}

	var videoID string
	var err error
	size := platform.ProbeContentLength(ctx, c.httpClient, mediaURL)
	if size >= platform.ResumableThresholdBytes {
		videoID, err = c.uploadResumable(ctx, token, metadata, mediaURL, size)
		if err != nil {
			c.logger.Warn("Resumable upload failed, falling back to multipart upload",
				zap.Int64("size_bytes", size), zap.Error(err))
			videoID, err = c.uploadMultipart(ctx, token, metadata, mediaURL)
		}
	} else {
		videoID, err = c.uploadMultipart(ctx, token, metadata, mediaURL)
	}
	if err != nil {
		return nil, platform.ClassifyPublishError(err)
	}

	if err := c.verifyVideo(ctx, token, videoID); err != nil {
		return nil, err
	}
	return &models.PublishResult{
		PostID:    videoID,
		Permalink: "https://youtu.be/" + videoID,
	}, nil
}

func (c *Client) videoTitle(payload models.PublicationPayload) string {
	if payload.Title != "" {
		return payload.Title
	}
	if payload.Message != "" {
		title := payload.Message
		if len(title) > 100 {
			title = title[:100]
		}
		return title
	}
	return "Untitled video"
}

// uploadResumable opens an upload session, then streams the file to the
// session URL Google hands back in the Location header.
func (c *Client) uploadResumable(ctx context.Context, token string, metadata map[string]interface{}, mediaURL string, size int64) (string, error) {
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode video metadata: %w", err)
	}
	initURL := c.UploadURL + "/videos?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", "video/*")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resumable session start failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", platform.ReadPlatformError(resp, "youtube", "resumable_init")
	}
	io.Copy(io.Discard, resp.Body)

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return "", fmt.Errorf("resumable session response missing Location header")
	}

	body, _, err := platform.DownloadMedia(ctx, c.httpClient, mediaURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	uploadReq, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, body)
	if err != nil {
		return "", err
	}
	uploadReq.ContentLength = size
	uploadReq.Header.Set("Content-Type", "video/*")

	uploadResp, err := c.httpClient.Do(uploadReq)
	if err != nil {
		return "", fmt.Errorf("resumable upload failed: %w", err)
	}
	defer uploadResp.Body.Close()
	if uploadResp.StatusCode < 200 || uploadResp.StatusCode >= 300 {
		return "", platform.ReadPlatformError(uploadResp, "youtube", "resumable_upload")
	}
	return decodeVideoID(uploadResp.Body)
}

// uploadMultipart sends metadata and media in one multipart/related
// request. This is the standard path for files below the resumable
// threshold and the fallback when a resumable session fails.
func (c *Client) uploadMultipart(ctx context.Context, token string, metadata map[string]interface{}, mediaURL string) (string, error) {
	media, _, err := platform.DownloadMedia(ctx, c.httpClient, mediaURL)
	if err != nil {
		return "", err
	}
	defer media.Close()

	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode video metadata: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := writer.CreatePart(metaHeader)
	if err != nil {
		return "", err
	}
	metaPart.Write(encoded)

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", "video/*")
	mediaPart, err := writer.CreatePart(mediaHeader)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(mediaPart, media); err != nil {
		return "", fmt.Errorf("failed to read media for upload: %w", err)
	}
	writer.Close()

	uploadURL := c.UploadURL + "/videos?uploadType=multipart&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "multipart/related; boundary="+writer.Boundary())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("multipart upload failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", platform.ReadPlatformError(resp, "youtube", "multipart_upload")
	}
	return decodeVideoID(resp.Body)
}

func decodeVideoID(r io.Reader) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("youtube upload response missing video id")
	}
	return out.ID, nil
}

func (c *Client) verifyVideo(ctx context.Context, token, videoID string) error {
	u := c.APIURL + "/videos?part=status&id=" + url.QueryEscape(videoID)
	var out struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, token, nil, &out, "youtube", "verify_video"); err != nil {
		c.logger.Error("Video verification failed", zap.String("video_id", videoID), zap.Error(err))
		return domain.NewTerminalPublicationError(fmt.Errorf("%w: video %s: %v", domain.ErrVerificationFailed, videoID, err), nil)
	}
	if len(out.Items) == 0 {
		return domain.NewTerminalPublicationError(fmt.Errorf("%w: video %s missing from lookup", domain.ErrVerificationFailed, videoID), nil)
	}
	return nil
}
