package oauthstate

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec("test-secret", 10*time.Minute)

	payload := Payload{
		BrandID:     uuid.New(),
		WorkspaceID: uuid.New(),
		UserID:      uuid.New(),
		Locale:      "pt-BR",
	}

	token, err := codec.Encode(payload)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestCodec_RoundTripWithoutLocale(t *testing.T) {
	codec := NewCodec("test-secret", 10*time.Minute)

	payload := Payload{
		BrandID:     uuid.New(),
		WorkspaceID: uuid.New(),
		UserID:      uuid.New(),
	}

	token, err := codec.Encode(payload)
	require.NoError(t, err)

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestCodec_EncodeRequiresIdentity(t *testing.T) {
	codec := NewCodec("test-secret", 10*time.Minute)

	_, err := codec.Encode(Payload{BrandID: uuid.New(), UserID: uuid.New()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidRequest))
}

func TestCodec_DecodeFailsClosed(t *testing.T) {
	codec := NewCodec("test-secret", 10*time.Minute)

	payload := Payload{BrandID: uuid.New(), WorkspaceID: uuid.New(), UserID: uuid.New()}
	token, err := codec.Encode(payload)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":       "",
		"garbage":     "not-a-token",
		"truncated":   token[:len(token)/2],
		"bit flipped": token[:len(token)-2] + "xx",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			decoded, err := codec.Decode(tok)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainErrors.ErrInvalidState))
			assert.Equal(t, Payload{}, decoded, "a failed decode must never return a partial payload")
		})
	}
}

func TestCodec_DecodeRejectsForeignSecret(t *testing.T) {
	payload := Payload{BrandID: uuid.New(), WorkspaceID: uuid.New(), UserID: uuid.New()}

	token, err := NewCodec("secret-a", 10*time.Minute).Encode(payload)
	require.NoError(t, err)

	_, err = NewCodec("secret-b", 10*time.Minute).Decode(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidState))
}

func TestCodec_DecodeRejectsExpired(t *testing.T) {
	codec := NewCodec("test-secret", time.Minute)

	payload := Payload{BrandID: uuid.New(), WorkspaceID: uuid.New(), UserID: uuid.New()}
	token, err := codec.Encode(payload)
	require.NoError(t, err)

	codec.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = codec.Decode(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidState))
}

func TestCodec_TokenCarriesNoCredentialMaterial(t *testing.T) {
	codec := NewCodec("test-secret", 10*time.Minute)

	token, err := codec.Encode(Payload{BrandID: uuid.New(), WorkspaceID: uuid.New(), UserID: uuid.New()})
	require.NoError(t, err)
	assert.False(t, strings.Contains(token, "test-secret"))
}
