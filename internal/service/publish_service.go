package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/domain/repository"
	"github.com/publora/platform/backend/services/social-service/internal/events"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
	"github.com/publora/platform/backend/services/social-service/internal/utils/metrics"
)

// PublishService dispatches normalized publications to the account's
// platform. It resolves media references, delegates to the platform
// client and emits the publication outcome. Retry scheduling lives with
// the caller; this service only classifies failures.
type PublishService struct {
	accounts repository.ConnectedAccountRepository
	brands   repository.BrandRepository
	registry *platform.Registry
	resolver MediaResolver
	emitter  events.ActivityEmitter
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewPublishService(
	accounts repository.ConnectedAccountRepository,
	brands repository.BrandRepository,
	registry *platform.Registry,
	resolver MediaResolver,
	emitter events.ActivityEmitter,
	timeout time.Duration,
	logger *zap.Logger,
) *PublishService {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &PublishService{
		accounts: accounts,
		brands:   brands,
		registry: registry,
		resolver: resolver,
		emitter:  emitter,
		timeout:  timeout,
		logger:   logger.Named("publish_service"),
		now:      time.Now,
	}
}

// Publish sends the payload through the account's platform client. The
// whole dispatch, media transfers included, is bounded by the configured
// timeout.
func (s *PublishService) Publish(ctx context.Context, accountID uuid.UUID, payload models.PublicationPayload) (*models.PublishResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(
		zap.String("account_id", account.ID.String()),
		zap.String("platform", string(account.Platform)),
		zap.String("content_type", string(payload.ContentType)))

	if account.Status != models.AccountStatusActive {
		return nil, domain.NewValidationError("account", fmt.Sprintf("account is %s, reconnect before publishing", account.Status))
	}
	if !account.CanPublish {
		return nil, domain.NewValidationError("account", "account is not enabled for publishing")
	}

	client, err := s.registry.Client(account.Platform)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolveItems(ctx, payload)
	if err != nil {
		s.emitOutcome(ctx, account, payload, nil, "media_unresolved")
		return nil, err
	}
	payload.Items = resolved

	result, err := client.Publish(ctx, account, payload)
	if err != nil {
		s.handlePublishFailure(ctx, account, payload, err, log)
		outcome := "terminal_failure"
		if domain.IsRetryablePublication(err) {
			outcome = "retryable_failure"
		}
		metrics.PublicationsTotal.WithLabelValues(string(account.Platform), string(payload.ContentType), outcome).Inc()
		return nil, err
	}
	metrics.PublicationsTotal.WithLabelValues(string(account.Platform), string(payload.ContentType), "success").Inc()

	now := s.now().UTC()
	account.LastSyncedAt = &now
	account.LastErrorCode = nil
	account.LastErrorMessage = nil
	if _, saveErr := s.accounts.Upsert(ctx, account); saveErr != nil {
		log.Warn("Failed to record publish success on account", zap.Error(saveErr))
	}

	s.emitOutcome(ctx, account, payload, result, "")
	log.Info("Publication dispatched",
		zap.String("post_id", result.PostID),
		zap.String("permalink", result.Permalink))
	return result, nil
}

// resolveItems fills in the URL of every item that arrived as a bare
// media id. Any unresolvable reference fails the publication before a
// single platform call is made.
func (s *PublishService) resolveItems(ctx context.Context, payload models.PublicationPayload) ([]models.MediaItem, error) {
	resolved := make([]models.MediaItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.URL != "" {
			resolved = append(resolved, item)
			continue
		}
		if item.MediaID == "" {
			return nil, fmt.Errorf("%w: item carries neither url nor media id", domain.ErrMediaUnresolved)
		}
		out, err := s.resolver.Resolve(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("%w: media %s: %v", domain.ErrMediaUnresolved, item.MediaID, err)
		}
		resolved = append(resolved, out)
	}
	return resolved, nil
}

// handlePublishFailure records the failure on the account and, when the
// platform rejected the credentials outright, expires the account so the
// UI prompts a reconnect.
func (s *PublishService) handlePublishFailure(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload, err error, log *zap.Logger) {
	code := "publish_failed"
	var pubErr *domain.PublicationError
	if errors.As(err, &pubErr) && pubErr.Payload != nil {
		if pubErr.Payload.Code != "" {
			code = pubErr.Payload.Code
		}
		if pubErr.Payload.StatusCode == http.StatusUnauthorized {
			msg := pubErr.Payload.Message
			authCode := "credentials_rejected"
			if updateErr := s.accounts.UpdateStatus(ctx, account.ID, models.AccountStatusExpired, &authCode, &msg); updateErr != nil {
				log.Error("Failed to expire account after auth rejection", zap.Error(updateErr))
			}
		}
	}
	log.Error("Publication failed",
		zap.String("error_code", code),
		zap.Bool("retryable", domain.IsRetryablePublication(err)),
		zap.Error(err))
	s.emitOutcome(ctx, account, payload, nil, code)
}

func (s *PublishService) emitOutcome(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload, result *models.PublishResult, errorCode string) {
	workspaceID := uuid.Nil
	if brand, err := s.brands.FindByID(ctx, account.BrandID); err == nil {
		workspaceID = brand.WorkspaceID
	}
	eventType := models.ActivityPublicationSucceeded
	eventPayload := models.PublicationActivityPayload{
		AccountID: account.ID,
		Platform:  account.Platform,
		Content:   payload.ContentType,
	}
	if result != nil {
		eventPayload.PostID = result.PostID
		eventPayload.Permalink = result.Permalink
	}
	if errorCode != "" {
		eventType = models.ActivityPublicationFailed
		eventPayload.ErrorCode = errorCode
	}
	event := models.ActivityEvent{
		Type:        eventType,
		WorkspaceID: workspaceID,
		BrandID:     account.BrandID,
		ActorType:   models.ActorTypeSystem,
		OccurredAt:  s.now().UTC(),
		Payload:     eventPayload,
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Warn("Failed to emit publication event",
			zap.String("type", eventType), zap.Error(err))
	}
}
