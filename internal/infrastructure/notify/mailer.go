// Package notify provides the outbound notification collaborator. The
// default implementation writes to the structured log; deployments that
// actually deliver mail swap in a provider-backed ports.Mailer.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogMailer satisfies ports.Mailer by logging outbound notifications.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendWelcome(ctx context.Context, email, name string) error {
	m.log.Info().Str("email", email).Str("name", name).Msg("welcome notification")
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	// The token itself stays out of the log; its presence is enough to trace
	// the flow.
	m.log.Info().Str("email", email).Int("token_length", len(token)).Msg("password reset notification")
	return nil
}
