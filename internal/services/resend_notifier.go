package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v3"

	"squeakyknees/internal/config"
)

// ResendNotifier delivers notices through the Resend API. Sends are
// synchronous; CommentService already treats them as best effort.
type ResendNotifier struct {
	client *resend.Client
	from   string
	render mailRenderer
}

func NewResendNotifier(cfg *config.Config) *ResendNotifier {
	return &ResendNotifier{
		client: resend.NewClient(cfg.Mail.ResendAPIKey),
		from:   cfg.Mail.From,
		render: mailRenderer{siteURL: cfg.SiteURL},
	}
}

func (s *ResendNotifier) NotifyOwnerNewComment(ctx context.Context, n OwnerNotice) error {
	msg, ok, err := s.render.owner(n)
	if err != nil || !ok {
		return err
	}
	return s.send(ctx, msg)
}

func (s *ResendNotifier) NotifyAuthorApproved(ctx context.Context, n ApprovalNotice) error {
	msg, ok, err := s.render.approved(n)
	if err != nil || !ok {
		return err
	}
	return s.send(ctx, msg)
}

func (s *ResendNotifier) send(ctx context.Context, e email) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Squeaky Knees <%s>", s.from),
		To:      []string{e.To},
		Html:    e.HTML,
		Subject: e.Subject,
	}

	sent, err := s.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("resend: send to %s: %w", e.To, err)
	}
	slog.DebugContext(ctx, "email sent via resend", "id", sent.Id, "subject", e.Subject)
	return nil
}
