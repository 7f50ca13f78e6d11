package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlatform(t *testing.T) {
	cases := []struct {
		in   string
		want Platform
		ok   bool
	}{
		{"facebook", PlatformFacebook, true},
		{"FACEBOOK", PlatformFacebook, true},
		{"Instagram", PlatformInstagram, true},
		{"linkedin", PlatformLinkedIn, true},
		{"tiktok", PlatformTikTok, true},
		{"pinterest", PlatformPinterest, true},
		{"x", PlatformX, true},
		{"twitter", PlatformX, true},
		{"youtube", PlatformYouTube, true},
		{"myspace", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParsePlatform(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestConnectedAccountToDTOStripsSecrets(t *testing.T) {
	acc := &ConnectedAccount{
		PlatformAccountID: "fb-1",
		AccessToken:       "secret-access",
		RefreshToken:      "secret-refresh",
	}
	dto := acc.ToDTO()
	assert.Equal(t, "fb-1", dto.PlatformAccountID)
}

func TestPendingSelectionExpired(t *testing.T) {
	p := &PendingSelection{}
	p.ExpiresAt = p.CreatedAt.Add(PendingSelectionTTL)
	assert.False(t, p.Expired(p.CreatedAt))
	assert.False(t, p.Expired(p.ExpiresAt))
	assert.True(t, p.Expired(p.ExpiresAt.Add(1)))
}
