package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

func testClient(serverURL string) *Client {
	c := NewClient(platform.Credentials{ClientID: "app", ClientSecret: "secret"}, zap.NewNop())
	c.GraphURL = serverURL
	return c
}

func pageAccount() *models.ConnectedAccount {
	return &models.ConnectedAccount{
		PlatformAccountID: "user-1",
		AccessToken:       "user-token",
		TokenData:         json.RawMessage(`{"page_id":"page-1","page_name":"Acme","page_access_token":"page-token"}`),
	}
}

func TestPublish_CarouselSkipsUnsupportedItems(t *testing.T) {
	var uploads, feedPosts []url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/page-1/photos":
			uploads = append(uploads, r.PostForm)
			if strings.Contains(r.PostForm.Get("url"), "broken") {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":{"message":"invalid image","code":100}}`)
				return
			}
			fmt.Fprintf(w, `{"id":"photo-%d"}`, len(uploads))
		case "/page-1/feed":
			feedPosts = append(feedPosts, r.PostForm)
			fmt.Fprint(w, `{"id":"post-99"}`)
		case "/post-99":
			fmt.Fprint(w, `{"id":"post-99","permalink_url":"https://facebook.com/post-99"}`)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	result, err := testClient(server.URL).Publish(context.Background(), pageAccount(), models.PublicationPayload{
		ContentType: models.ContentTypeCarousel,
		Message:     "three in, one survives twice over",
		Items: []models.MediaItem{
			{URL: "https://cdn.example.com/a.jpg", MimeType: "image/jpeg"},
			{URL: "https://cdn.example.com/clip.mp4", MimeType: "video/mp4"},
			{URL: "https://cdn.example.com/broken.jpg", MimeType: "image/jpeg"},
			{URL: "https://cdn.example.com/b.png", MimeType: "image/png"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "post-99", result.PostID)
	assert.Equal(t, "https://facebook.com/post-99", result.Permalink)

	// the video never reaches the API, the broken image is dropped after
	// its upload fails
	require.Len(t, uploads, 3)
	require.Len(t, feedPosts, 1)
	assert.NotEmpty(t, feedPosts[0].Get("attached_media[0]"))
	assert.NotEmpty(t, feedPosts[0].Get("attached_media[1]"))
	assert.Empty(t, feedPosts[0].Get("attached_media[2]"))
}

func TestPublish_CarouselWithNoSurvivorsFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s %s", r.Method, r.URL.Path)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Publish(context.Background(), pageAccount(), models.PublicationPayload{
		ContentType: models.ContentTypeCarousel,
		Items: []models.MediaItem{
			{URL: "https://cdn.example.com/clip.mp4", MimeType: "video/mp4"},
			{URL: "https://cdn.example.com/song.mp3", MimeType: "audio/mpeg"},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoValidItems))
	assert.False(t, domain.IsRetryablePublication(err))
}

func TestPublish_VideoResumableFallsBackToStandard(t *testing.T) {
	var standardUploads int
	mediaSize := int64(platform.ResumableThresholdBytes + 1)

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/media/big.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.FormatInt(mediaSize, 10))
		w.Header().Set("Content-Type", "video/mp4")
	})
	mux.HandleFunc("/page-1/videos", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("upload_phase") == "start" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"session unavailable","code":390}}`)
			return
		}
		require.NotEmpty(t, r.PostForm.Get("file_url"))
		standardUploads++
		fmt.Fprint(w, `{"id":"video-5"}`)
	})
	mux.HandleFunc("/video-5", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"video-5","permalink_url":"https://facebook.com/video-5"}`)
	})

	result, err := testClient(server.URL).Publish(context.Background(), pageAccount(), models.PublicationPayload{
		ContentType: models.ContentTypeVideo,
		Message:     "big one",
		Items:       []models.MediaItem{{URL: server.URL + "/media/big.mp4", MimeType: "video/mp4"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "video-5", result.PostID)
	assert.Equal(t, 1, standardUploads)
}

func TestPublish_MissingPostFailsVerification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page-1/photos":
			fmt.Fprint(w, `{"post_id":"post-1"}`)
		case "/post-1":
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"message":"Unsupported get request","code":100}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	_, err := testClient(server.URL).Publish(context.Background(), pageAccount(), models.PublicationPayload{
		ContentType: models.ContentTypePhoto,
		Items:       []models.MediaItem{{URL: "https://cdn.example.com/a.jpg", MimeType: "image/jpeg"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVerificationFailed))
	assert.False(t, domain.IsRetryablePublication(err))
}

func TestPublish_RateLimitIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Application request limit reached","code":4}}`)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Publish(context.Background(), pageAccount(), models.PublicationPayload{
		ContentType: models.ContentTypePhoto,
		Items:       []models.MediaItem{{URL: "https://cdn.example.com/a.jpg", MimeType: "image/jpeg"}},
	})
	require.Error(t, err)
	assert.True(t, domain.IsRetryablePublication(err))
}

func TestPublish_FallsBackToUserFeedWithoutPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user-1/photos":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "user-token", r.PostForm.Get("access_token"))
			fmt.Fprint(w, `{"id":"post-7"}`)
		case "/post-7":
			fmt.Fprint(w, `{"id":"post-7","permalink_url":"https://facebook.com/post-7"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	account := &models.ConnectedAccount{PlatformAccountID: "user-1", AccessToken: "user-token"}
	result, err := testClient(server.URL).Publish(context.Background(), account, models.PublicationPayload{
		ContentType: models.ContentTypePhoto,
		Items:       []models.MediaItem{{URL: "https://cdn.example.com/a.jpg", MimeType: "image/jpeg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "post-7", result.PostID)
}
