// Package events defines the activity emission port. The core emits typed
// events; an adapter (kafka, noop, mock) decides delivery. Callers always
// treat emission as fire-and-forget.
package events

import (
	"context"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

// ActivityEmitter delivers activity events to the audit sink.
type ActivityEmitter interface {
	Emit(ctx context.Context, event models.ActivityEvent) error
}

// NoopEmitter discards every event; used when kafka is disabled.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, models.ActivityEvent) error { return nil }
