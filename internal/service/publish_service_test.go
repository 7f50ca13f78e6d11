package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	repoMocks "github.com/publora/platform/backend/services/social-service/internal/domain/repository/mocks"
	eventMocks "github.com/publora/platform/backend/services/social-service/internal/events/mocks"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

type publishFixture struct {
	accounts *repoMocks.MockConnectedAccountRepository
	emitter  *eventMocks.MockActivityEmitter
	client   *fakeClient
	service  *PublishService
	account  *models.ConnectedAccount
}

func newPublishFixture(t *testing.T) *publishFixture {
	t.Helper()
	f := &publishFixture{
		accounts: new(repoMocks.MockConnectedAccountRepository),
		emitter:  new(eventMocks.MockActivityEmitter),
		client:   &fakeClient{platform: models.PlatformFacebook},
	}
	f.account = &models.ConnectedAccount{
		ID:                uuid.New(),
		BrandID:           uuid.New(),
		Platform:          models.PlatformFacebook,
		PlatformAccountID: "fb-123",
		Status:            models.AccountStatusActive,
		CanPublish:        true,
		AccessToken:       "token",
	}

	registry := platform.NewRegistry()
	registry.Register(f.client)

	brands := new(repoMocks.MockBrandRepository)
	brands.On("FindByID", mock.Anything, f.account.BrandID).
		Return(&models.Brand{ID: f.account.BrandID, WorkspaceID: uuid.New()}, nil).Maybe()
	f.emitter.On("Emit", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.accounts.On("FindByID", mock.Anything, f.account.ID).Return(f.account, nil).Maybe()

	f.service = NewPublishService(
		f.accounts, brands, registry, &stubResolver{}, f.emitter, 0, zap.NewNop())
	return f
}

func textPayload() models.PublicationPayload {
	return models.PublicationPayload{
		ContentType: models.ContentTypePhoto,
		Message:     "hello",
		Items:       []models.MediaItem{{URL: "https://cdn.example.com/a.jpg", MimeType: "image/jpeg"}},
	}
}

func TestPublish_SuccessRecordsSyncAndEmits(t *testing.T) {
	f := newPublishFixture(t)
	f.accounts.On("Upsert", mock.Anything, mock.MatchedBy(func(acc *models.ConnectedAccount) bool {
		return acc.LastSyncedAt != nil && acc.LastErrorCode == nil
	})).Return(f.account, nil)

	result, err := f.service.Publish(context.Background(), f.account.ID, textPayload())
	require.NoError(t, err)
	assert.Equal(t, "post-1", result.PostID)

	f.emitter.AssertCalled(t, "Emit", mock.Anything, mock.MatchedBy(func(e models.ActivityEvent) bool {
		return e.Type == models.ActivityPublicationSucceeded
	}))
}

func TestPublish_ResolvesBareMediaIDs(t *testing.T) {
	f := newPublishFixture(t)
	f.accounts.On("Upsert", mock.Anything, mock.Anything).Return(f.account, nil)

	payload := models.PublicationPayload{
		ContentType: models.ContentTypePhoto,
		Items:       []models.MediaItem{{MediaID: "media-42"}},
	}
	_, err := f.service.Publish(context.Background(), f.account.ID, payload)
	require.NoError(t, err)

	require.Len(t, f.client.publishedWith, 1)
	assert.Equal(t, "https://cdn.example.com/media-42", f.client.publishedWith[0].Items[0].URL)
}

func TestPublish_UnresolvableMediaFailsBeforeDispatch(t *testing.T) {
	f := newPublishFixture(t)

	payload := models.PublicationPayload{
		ContentType: models.ContentTypePhoto,
		Items:       []models.MediaItem{{}},
	}
	_, err := f.service.Publish(context.Background(), f.account.ID, payload)
	assert.True(t, errors.Is(err, domain.ErrMediaUnresolved))
	assert.Empty(t, f.client.publishedWith)

	f.emitter.AssertCalled(t, "Emit", mock.Anything, mock.MatchedBy(func(e models.ActivityEvent) bool {
		return e.Type == models.ActivityPublicationFailed
	}))
}

func TestPublish_RejectsNonActiveAccount(t *testing.T) {
	f := newPublishFixture(t)
	f.account.Status = models.AccountStatusExpired

	_, err := f.service.Publish(context.Background(), f.account.ID, textPayload())
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestPublish_RejectsPublishDisabledAccount(t *testing.T) {
	f := newPublishFixture(t)
	f.account.CanPublish = false

	_, err := f.service.Publish(context.Background(), f.account.ID, textPayload())
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestPublish_AuthRejectionExpiresAccount(t *testing.T) {
	f := newPublishFixture(t)
	f.client.publishFn = func(context.Context, *models.ConnectedAccount, models.PublicationPayload) (*models.PublishResult, error) {
		return nil, domain.NewTerminalPublicationError(errors.New("invalid token"), &domain.PlatformError{
			Platform:   "facebook",
			Operation:  "publish_photo",
			StatusCode: http.StatusUnauthorized,
			Message:    "Error validating access token",
		})
	}
	f.accounts.On("UpdateStatus", mock.Anything, f.account.ID, models.AccountStatusExpired,
		mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.Publish(context.Background(), f.account.ID, textPayload())
	require.Error(t, err)
	assert.False(t, domain.IsRetryablePublication(err))
	f.accounts.AssertCalled(t, "UpdateStatus", mock.Anything, f.account.ID, models.AccountStatusExpired,
		mock.Anything, mock.Anything)
}

func TestPublish_RateLimitStaysRetryableAndActive(t *testing.T) {
	f := newPublishFixture(t)
	f.client.publishFn = func(context.Context, *models.ConnectedAccount, models.PublicationPayload) (*models.PublishResult, error) {
		return nil, domain.NewRetryablePublicationError(errors.New("rate limited"), &domain.PlatformError{
			Platform:   "facebook",
			Operation:  "publish_photo",
			StatusCode: http.StatusTooManyRequests,
			Code:       "4",
		})
	}

	_, err := f.service.Publish(context.Background(), f.account.ID, textPayload())
	require.Error(t, err)
	assert.True(t, domain.IsRetryablePublication(err))

	// transient platform pressure must not expire the credential
	f.accounts.AssertNotCalled(t, "UpdateStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.emitter.AssertCalled(t, "Emit", mock.Anything, mock.MatchedBy(func(e models.ActivityEvent) bool {
		return e.Type == models.ActivityPublicationFailed
	}))
}
