package services

import (
	"context"
	"time"

	"aquora-api/internal/core/domain"
)

// EventPublisher delivers security and audit events. Implementations log
// their own failures; callers never fail a request because publishing did.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Clock returns the current time; tests replace it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
