package notification

import (
	"context"

	"github.com/rs/zerolog"
)

type logSender struct {
	logger zerolog.Logger
}

// NewLogSender returns a Sender that writes messages to the log instead of
// mailing them. It is the default for local development.
func NewLogSender(logger zerolog.Logger) Sender {
	return &logSender{logger: logger.With().Str("component", "log-sender").Logger()}
}

func (s *logSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().
		Str("to", msg.To).
		Str("template", msg.Template).
		RawJSON("data", msg.Data).
		Msg("email")
	return nil
}
