package ports

import (
	"context"
	"time"

	"github.com/talentbridge/auth-service/internal/core/domain"
)

// DayCount is the per-day aggregate of login events.
type DayCount struct {
	Day    string `json:"day"` // YYYY-MM-DD
	Total  int64  `json:"total"`
	Failed int64  `json:"failed"`
}

// BucketCount is a generic grouped count (network prefix, device family).
type BucketCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// AnalyticsRepository is the append-only login event store. Events are never
// mutated after insertion.
type AnalyticsRepository interface {
	Append(ctx context.Context, e *domain.LoginEvent) error
	FindSince(ctx context.Context, accountID string, since time.Time) ([]domain.LoginEvent, error)
	CountByDay(ctx context.Context, accountID string, since time.Time) ([]DayCount, error)
	CountByNetwork(ctx context.Context, accountID string, since time.Time) ([]BucketCount, error)
	CountByDevice(ctx context.Context, accountID string, since time.Time) ([]BucketCount, error)
	FindSuspicious(ctx context.Context, accountID string, since time.Time, limit int64) ([]domain.LoginEvent, error)
}

// LoginEventRecorder decouples event appends from the request path. Records
// are best-effort: implementations log failures and never surface them to
// the caller.
type LoginEventRecorder interface {
	Record(e *domain.LoginEvent)
}
