package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogEmailSender writes alert emails to the log. It stands in until a real
// mail gateway is configured; swapping it out is a one-line change in main.
type LogEmailSender struct {
	Logger zerolog.Logger
}

func (s *LogEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.Logger.Info().
		Str("channel", "email").
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("alert dispatched")
	return nil
}

// LogPagerSender writes pages to the log in place of a paging gateway.
type LogPagerSender struct {
	Logger zerolog.Logger
}

func (s *LogPagerSender) SendPage(_ context.Context, to, body string) error {
	s.Logger.Info().
		Str("channel", "pager").
		Str("to", to).
		Str("body", body).
		Msg("alert dispatched")
	return nil
}
