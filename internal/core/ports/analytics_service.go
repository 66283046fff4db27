package ports

import (
	"context"

	"github.com/talentbridge/auth-service/internal/core/domain"
)

// AnalyticsOverview aggregates an account's recent login activity.
type AnalyticsOverview struct {
	Daily            []DayCount          `json:"daily"`
	Networks         []BucketCount       `json:"networks"`
	Devices          []BucketCount       `json:"devices"`
	RecentSuspicious []domain.LoginEvent `json:"recent_suspicious"`
}

// SecurityInsights is the 24h account risk report: a 0-100 score plus the
// counts each penalty was derived from and a recommendation per fired
// penalty.
type SecurityInsights struct {
	Score            int      `json:"score"`
	FailedAttempts   int      `json:"failed_attempts"`
	DistinctNetworks int      `json:"distinct_networks"`
	DistinctDevices  int      `json:"distinct_devices"`
	Recommendations  []string `json:"recommendations"`
}

// AnalyticsService exposes reporting over the append-only login event log.
type AnalyticsService interface {
	Overview(ctx context.Context, accountID string) (*AnalyticsOverview, error)
	SecurityInsights(ctx context.Context, accountID string) (*SecurityInsights, error)
}
