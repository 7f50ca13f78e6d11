package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityEvent is the envelope emitted to the audit sink. Delivery is
// fire-and-forget: a failed emit must never fail the business operation.
type ActivityEvent struct {
	Type        string      `json:"type"`
	WorkspaceID uuid.UUID   `json:"workspace_id"`
	BrandID     uuid.UUID   `json:"brand_id"`
	ActorType   string      `json:"actor_type"`
	ActorID     *uuid.UUID  `json:"actor_id,omitempty"`
	Payload     interface{} `json:"payload,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// Activity event types emitted by this service.
const (
	ActivityAccountConnected     = "social_account.connected"
	ActivityAccountReconnected   = "social_account.reconnected"
	ActivityAccountDisconnected  = "social_account.disconnected"
	ActivityAccountDeleted       = "social_account.deleted"
	ActivityPublicationSucceeded = "publication.succeeded"
	ActivityPublicationFailed    = "publication.failed"
)

// Actor types attached to activity events.
const (
	ActorTypeUser   = "user"
	ActorTypeSystem = "system"
)

// AccountActivityPayload is the payload of account lifecycle events.
type AccountActivityPayload struct {
	AccountID         uuid.UUID `json:"account_id"`
	Platform          Platform  `json:"platform"`
	PlatformAccountID string    `json:"platform_account_id"`
	DisplayName       string    `json:"display_name,omitempty"`
}

// PublicationActivityPayload is the payload of publication events.
type PublicationActivityPayload struct {
	AccountID uuid.UUID   `json:"account_id"`
	Platform  Platform    `json:"platform"`
	PostID    string      `json:"post_id,omitempty"`
	Permalink string      `json:"permalink,omitempty"`
	Content   ContentType `json:"content_type"`
	ErrorCode string      `json:"error_code,omitempty"`
}
