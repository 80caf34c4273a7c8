package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailgun/mailgun-go/v4"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// MailgunSender delivers through the Mailgun HTTP API.
type MailgunSender struct {
	mg     mailgun.Mailgun
	sender string
}

func NewMailgunSender(domain, apiKey, sender string) *MailgunSender {
	return &MailgunSender{mg: mailgun.NewMailgun(domain, apiKey), sender: sender}
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	m := s.mg.NewMessage(s.sender, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}
	m.AddTag(string(msg.Kind))

	if _, _, err := s.mg.Send(ctx, m); err != nil {
		return fmt.Errorf("notify: mailgun send %s: %w", msg.Kind, err)
	}
	return nil
}

// LogSender only logs the message. It is used when no mail provider is
// configured, which keeps local development working: the verification code
// shows up in the server log.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email (not delivered)",
		slog.String("kind", string(msg.Kind)),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("text", msg.Text),
	)
	return nil
}
