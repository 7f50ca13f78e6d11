package models

// MediaItem references one media asset of a publication. MediaID is
// resolved to a public URL by the media resolver before dispatch; URL is
// the resolved value.
type MediaItem struct {
	MediaID  string `json:"mediaId"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	AltText  string `json:"altText,omitempty"`
}

// PublicationPayload is the normalized outbound content handed to a
// platform dispatch client. It is read-only input; the dispatch layer
// never persists it.
type PublicationPayload struct {
	ContentType ContentType `json:"contentType"`
	Message     string      `json:"message,omitempty"`
	Title       string      `json:"title,omitempty"`
	LinkURL     string      `json:"linkUrl,omitempty"`
	Items       []MediaItem `json:"items,omitempty"`
}

// PublishResult is returned per dispatch. Permalink may be empty for
// content types the platform exposes no permalink for (stories).
type PublishResult struct {
	PostID    string `json:"postId"`
	Permalink string `json:"permalink"`
}
