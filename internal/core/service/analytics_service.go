package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/talentbridge/auth-service/internal/core/domain"
	"github.com/talentbridge/auth-service/internal/core/ports"
)

const (
	defaultRiskWindow          = 24 * time.Hour
	defaultReportWindow        = 30 * 24 * time.Hour
	defaultSuspiciousWindow    = 7 * 24 * time.Hour
	defaultMaxNetworks         = 3
	defaultMaxDevices          = 2
	defaultSuspiciousThreshold = 50

	suspiciousListLimit = 20
)

// RiskOptions tunes the scorer thresholds and lookback windows.
type RiskOptions struct {
	Window              time.Duration // login-time scoring and security insights
	ReportWindow        time.Duration // aggregate reports
	SuspiciousWindow    time.Duration // recent-suspicious listing
	MaxNetworks         int           // distinct addresses tolerated before penalty
	MaxDevices          int           // distinct descriptors tolerated before penalty
	SuspiciousThreshold int           // login score at or above which the flag is set
}

// AnalyticsService owns the append-only login event log's query side: the
// login-time risk scorer, the aggregate activity overview, and the 24h
// security-insights report.
type AnalyticsService struct {
	events ports.AnalyticsRepository
	opts   RiskOptions
	logger zerolog.Logger
}

func NewAnalyticsService(events ports.AnalyticsRepository, opts RiskOptions, logger zerolog.Logger) *AnalyticsService {
	if opts.Window <= 0 {
		opts.Window = defaultRiskWindow
	}
	if opts.ReportWindow <= 0 {
		opts.ReportWindow = defaultReportWindow
	}
	if opts.SuspiciousWindow <= 0 {
		opts.SuspiciousWindow = defaultSuspiciousWindow
	}
	if opts.MaxNetworks <= 0 {
		opts.MaxNetworks = defaultMaxNetworks
	}
	if opts.MaxDevices <= 0 {
		opts.MaxDevices = defaultMaxDevices
	}
	if opts.SuspiciousThreshold <= 0 {
		opts.SuspiciousThreshold = defaultSuspiciousThreshold
	}
	return &AnalyticsService{events: events, opts: opts, logger: logger}
}

// ScoreLogin rates one sign-in against the account's history inside the
// lookback window. It is best-effort: when the log is unreadable the login
// proceeds unscored rather than failing.
func (s *AnalyticsService) ScoreLogin(ctx context.Context, accountID, ip, device string) domain.RiskAssessment {
	events, err := s.events.FindSince(ctx, accountID, time.Now().UTC().Add(-s.opts.Window))
	if err != nil {
		s.logger.Warn().Err(err).Str("account_id", accountID).Msg("risk scoring skipped, event log unavailable")
		return domain.RiskAssessment{}
	}

	failed, addresses, devices := summarize(events)
	if ip != "" {
		addresses[ip] = struct{}{}
	}
	if device != "" {
		devices[device] = struct{}{}
	}

	var score int
	var reasons []string
	if failed > 0 {
		score += 10 * failed
		reasons = append(reasons, fmt.Sprintf("%d failed login attempt(s) in the last %s", failed, s.opts.Window))
	}
	if len(addresses) > s.opts.MaxNetworks {
		score += 30
		reasons = append(reasons, fmt.Sprintf("sign-ins from %d distinct addresses", len(addresses)))
	}
	if len(devices) > s.opts.MaxDevices {
		score += 25
		reasons = append(reasons, fmt.Sprintf("sign-ins from %d distinct devices", len(devices)))
	}
	if score > 100 {
		score = 100
	}

	return domain.RiskAssessment{
		Score:      score,
		Suspicious: score >= s.opts.SuspiciousThreshold,
		Reasons:    reasons,
	}
}

// Overview aggregates the account's login activity: per-day counts over the
// report window, network and device buckets, and recent suspicious events.
func (s *AnalyticsService) Overview(ctx context.Context, accountID string) (*ports.AnalyticsOverview, error) {
	now := time.Now().UTC()
	since := now.Add(-s.opts.ReportWindow)

	daily, err := s.events.CountByDay(ctx, accountID, since)
	if err != nil {
		return nil, err
	}
	networks, err := s.events.CountByNetwork(ctx, accountID, since)
	if err != nil {
		return nil, err
	}
	devices, err := s.events.CountByDevice(ctx, accountID, since)
	if err != nil {
		return nil, err
	}
	suspicious, err := s.events.FindSuspicious(ctx, accountID, now.Add(-s.opts.SuspiciousWindow), suspiciousListLimit)
	if err != nil {
		return nil, err
	}

	return &ports.AnalyticsOverview{
		Daily:            daily,
		Networks:         networks,
		Devices:          devices,
		RecentSuspicious: suspicious,
	}, nil
}

// SecurityInsights computes the 24h account score: start at 100, subtract 10
// per failed attempt, 20 when distinct addresses exceed the threshold, 15
// when distinct devices do, floored at 0. Each fired penalty contributes one
// recommendation.
func (s *AnalyticsService) SecurityInsights(ctx context.Context, accountID string) (*ports.SecurityInsights, error) {
	events, err := s.events.FindSince(ctx, accountID, time.Now().UTC().Add(-s.opts.Window))
	if err != nil {
		return nil, err
	}

	failed, addresses, devices := summarize(events)

	score := 100
	var recs []string
	if failed > 0 {
		score -= 10 * failed
		recs = append(recs, "Multiple failed login attempts were detected. Consider changing your password.")
	}
	if len(addresses) > s.opts.MaxNetworks {
		score -= 20
		recs = append(recs, "Sign-ins came from several different networks. Review your active sessions.")
	}
	if len(devices) > s.opts.MaxDevices {
		score -= 15
		recs = append(recs, "Sign-ins came from several different devices. Revoke any session you do not recognize.")
	}
	if score < 0 {
		score = 0
	}
	if len(recs) == 0 {
		recs = append(recs, "No unusual activity detected in the last 24 hours.")
	}

	return &ports.SecurityInsights{
		Score:            score,
		FailedAttempts:   failed,
		DistinctNetworks: len(addresses),
		DistinctDevices:  len(devices),
		Recommendations:  recs,
	}, nil
}

// summarize walks a window of events and extracts the failed-attempt count
// and the distinct address/descriptor sets.
func summarize(events []domain.LoginEvent) (failed int, addresses, devices map[string]struct{}) {
	addresses = make(map[string]struct{})
	devices = make(map[string]struct{})
	for _, e := range events {
		if e.Kind == domain.EventLoginFailed {
			failed++
		}
		if e.IP != "" {
			addresses[e.IP] = struct{}{}
		}
		if e.Device != "" {
			devices[e.Device] = struct{}{}
		}
	}
	return failed, addresses, devices
}
