package models

// Platform identifies one of the supported social networks.
type Platform string

const (
	PlatformFacebook  Platform = "FACEBOOK"
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformLinkedIn  Platform = "LINKEDIN"
	PlatformTikTok    Platform = "TIKTOK"
	PlatformPinterest Platform = "PINTEREST"
	PlatformX         Platform = "X"
	PlatformYouTube   Platform = "YOUTUBE"
)

// AllPlatforms lists every supported platform in a stable order.
var AllPlatforms = []Platform{
	PlatformFacebook,
	PlatformInstagram,
	PlatformLinkedIn,
	PlatformTikTok,
	PlatformPinterest,
	PlatformX,
	PlatformYouTube,
}

// ParsePlatform maps a URL path segment (case-insensitive) to a Platform.
func ParsePlatform(s string) (Platform, bool) {
	for _, p := range AllPlatforms {
		if string(p) == normalizePlatform(s) {
			return p, true
		}
	}
	return "", false
}

func normalizePlatform(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	switch string(out) {
	case "TWITTER":
		return string(PlatformX)
	}
	return string(out)
}

// AccountStatus is the lifecycle state of a connected account.
type AccountStatus string

const (
	AccountStatusActive       AccountStatus = "ACTIVE"
	AccountStatusExpired      AccountStatus = "EXPIRED"
	AccountStatusRevoked      AccountStatus = "REVOKED"
	AccountStatusDisconnected AccountStatus = "DISCONNECTED"
)

// ContentType is the normalized kind of an outbound publication.
type ContentType string

const (
	ContentTypePhoto    ContentType = "PHOTO"
	ContentTypeVideo    ContentType = "VIDEO"
	ContentTypeCarousel ContentType = "CAROUSEL"
	ContentTypeLink     ContentType = "LINK"
	ContentTypeStory    ContentType = "STORY"
)
