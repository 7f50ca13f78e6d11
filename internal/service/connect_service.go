package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/publora/platform/backend/services/social-service/internal/config"
	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/domain/repository"
	"github.com/publora/platform/backend/services/social-service/internal/oauthstate"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

// ConnectService drives the OAuth connection flow end to end: building
// the authorization URL, and turning the provider callback into either a
// reconciled account or a staged pending selection. The callback path
// always resolves to a frontend redirect URL; failures are encoded as
// error redirects, never surfaced as HTTP errors to the browser.
type ConnectService struct {
	registry   *platform.Registry
	codec      *oauthstate.Codec
	reconciler *ReconciliationService
	pending    repository.PendingSelectionRepository
	brands     repository.BrandRepository
	cfg        config.OAuthConfig
	logger     *zap.Logger
	now        func() time.Time
}

func NewConnectService(
	registry *platform.Registry,
	codec *oauthstate.Codec,
	reconciler *ReconciliationService,
	pending repository.PendingSelectionRepository,
	brands repository.BrandRepository,
	cfg config.OAuthConfig,
	logger *zap.Logger,
) *ConnectService {
	return &ConnectService{
		registry:   registry,
		codec:      codec,
		reconciler: reconciler,
		pending:    pending,
		brands:     brands,
		cfg:        cfg,
		logger:     logger.Named("connect_service"),
		now:        time.Now,
	}
}

// Authorize validates tenancy and returns the platform authorization URL
// carrying a signed state token.
func (s *ConnectService) Authorize(ctx context.Context, brandID, workspaceID, userID uuid.UUID, p models.Platform, locale string) (string, error) {
	client, err := s.registry.Client(p)
	if err != nil {
		return "", err
	}

	brand, err := s.brands.FindByID(ctx, brandID)
	if err != nil {
		return "", err
	}
	if brand.WorkspaceID != workspaceID {
		return "", domain.ErrForbidden
	}

	state, err := s.codec.Encode(oauthstate.Payload{
		BrandID:     brandID,
		WorkspaceID: workspaceID,
		UserID:      userID,
		Locale:      locale,
	})
	if err != nil {
		return "", err
	}
	return client.BuildAuthorizeURL(state, locale), nil
}

// HandleCallback processes the provider redirect and returns the
// frontend URL the browser is sent to. Every outcome, including an
// invalid state token, maps to a redirect.
func (s *ConnectService) HandleCallback(ctx context.Context, p models.Platform, code, state, errParam, errDescription string) string {
	client, err := s.registry.Client(p)
	if err != nil {
		return s.errorRedirect(p, "unsupported_platform")
	}

	if errParam != "" {
		s.logger.Warn("Provider returned an authorization error",
			zap.String("platform", string(p)),
			zap.String("error", errParam),
			zap.String("description", errDescription))
		return s.errorRedirect(p, "authorization_denied")
	}

	payload, err := s.codec.Decode(state)
	if err != nil {
		s.logger.Warn("State token rejected", zap.String("platform", string(p)), zap.Error(err))
		return s.errorRedirect(p, "invalid_state")
	}
	log := s.logger.With(
		zap.String("platform", string(p)),
		zap.String("brand_id", payload.BrandID.String()))

	if code == "" {
		log.Warn("Callback missing authorization code")
		return s.errorRedirect(p, "missing_code")
	}

	bundle, err := client.ExchangeCode(ctx, code)
	if err != nil {
		log.Error("Code exchange failed", zap.Error(err))
		return s.errorRedirect(p, "token_exchange_failed")
	}

	identity, err := client.FetchIdentity(ctx, bundle.AccessToken)
	if err != nil {
		log.Error("Identity fetch failed", zap.Error(err))
		return s.errorRedirect(p, "identity_fetch_failed")
	}

	if client.RequiresManualSelection() {
		return s.stageSelection(ctx, client, payload, bundle, identity, log)
	}

	account, err := s.reconciler.Reconcile(ctx, models.ReconcileInput{
		BrandID:           payload.BrandID,
		Platform:          p,
		PlatformAccountID: identity.PlatformAccountID,
		DisplayName:       identity.DisplayName,
		Username:          identity.Username,
		ExternalAvatarURL: identity.AvatarURL,
		AccessToken:       bundle.AccessToken,
		RefreshToken:      bundle.RefreshToken,
		TokenExpiresAt:    bundle.ExpiresAt,
		Scopes:            bundle.Scopes,
		TokenData:         bundle.TokenData,
		RawProfile:        identity.Raw,
	}, payload.WorkspaceID, &payload.UserID)
	if err != nil {
		log.Error("Reconciliation failed", zap.Error(err))
		if errors.Is(err, domain.ErrPlanLimitReached) {
			return s.errorRedirect(p, "plan_limit_reached")
		}
		return s.errorRedirect(p, "reconciliation_failed")
	}

	return s.successRedirect(p, url.Values{
		"account_id": {account.ID.String()},
	})
}

// stageSelection stores the token bundle and the discovered candidates
// for a human to choose from. The personal profile is always the first
// candidate, followed by the delegated entities.
func (s *ConnectService) stageSelection(ctx context.Context, client platform.Client, payload oauthstate.Payload, bundle *platform.TokenBundle, identity *platform.Identity, log *zap.Logger) string {
	p := client.Platform()

	entities, err := client.FetchLinkedEntities(ctx, bundle.AccessToken)
	if err != nil {
		log.Error("Linked entity fetch failed", zap.Error(err))
		return s.errorRedirect(p, "entity_fetch_failed")
	}

	candidates := make([]models.SelectionCandidate, 0, len(entities)+1)
	candidates = append(candidates, models.SelectionCandidate{
		PlatformAccountID: identity.PlatformAccountID,
		DisplayName:       identity.DisplayName,
		Username:          identity.Username,
		AvatarURL:         identity.AvatarURL,
		Kind:              "profile",
	})
	candidates = append(candidates, entities...)

	now := s.now().UTC()
	pending := &models.PendingSelection{
		ID:             uuid.New(),
		BrandID:        payload.BrandID,
		WorkspaceID:    payload.WorkspaceID,
		Platform:       p,
		AccessToken:    bundle.AccessToken,
		RefreshToken:   bundle.RefreshToken,
		TokenExpiresAt: bundle.ExpiresAt,
		Scopes:         bundle.Scopes,
		Candidates:     candidates,
		ExpiresAt:      now.Add(models.PendingSelectionTTL),
		CreatedAt:      now,
	}
	if err := s.pending.Upsert(ctx, pending); err != nil {
		log.Error("Failed to stage pending selection", zap.Error(err))
		return s.errorRedirect(p, "selection_staging_failed")
	}

	log.Info("Pending selection staged", zap.Int("candidates", len(candidates)))
	params := url.Values{
		"selection_required": {string(p)},
		"brand_id":           {payload.BrandID.String()},
	}
	return s.cfg.FrontendRedirectURL + "?" + params.Encode()
}

// successRedirect encodes connected=<platform>; errorRedirect encodes
// error=<platform>_callback_failed with a sanitized message. These two
// shapes are the contract with the frontend and never carry token
// material.
func (s *ConnectService) successRedirect(p models.Platform, params url.Values) string {
	params.Set("connected", string(p))
	return s.cfg.FrontendRedirectURL + "?" + params.Encode()
}

func (s *ConnectService) errorRedirect(p models.Platform, message string) string {
	params := url.Values{
		"error":   {string(p) + "_callback_failed"},
		"message": {message},
	}
	return s.cfg.FrontendErrorURL + "?" + params.Encode()
}
