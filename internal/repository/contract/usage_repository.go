package contract

import (
	"context"

	"lexchat-be/internal/entity"
)

// UsageRepository persists the per-client daily question counter. A missing
// or unparseable record reads as nil usage, never as an error the limiter
// has to surface.
type UsageRepository interface {
	Get(ctx context.Context, clientKey string) (*entity.DailyUsage, error)
	Save(ctx context.Context, clientKey string, usage *entity.DailyUsage) error
}
