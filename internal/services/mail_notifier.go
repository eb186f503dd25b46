package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"squeakyknees/internal/config"
	"squeakyknees/internal/logger"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailNotifier delivers notices over SMTP. Sends happen in the background
// and are throttled to MAIL_PER_MINUTE.
type MailNotifier struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Enabled  bool

	render  mailRenderer
	limiter *rate.Limiter
	send    sendFunc
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewMailNotifier(cfg *config.Config) *MailNotifier {
	m := cfg.Mail
	enabled := m.SMTPHost != "" && m.SMTPPort != "" && m.SMTPUser != "" && m.SMTPPass != "" && m.From != ""
	if !enabled {
		slog.Warn("mail notifier disabled: missing SMTP environment variables")
	}

	perMinute := m.PerMinute
	if perMinute <= 0 {
		perMinute = 30
	}

	return &MailNotifier{
		Host:     m.SMTPHost,
		Port:     m.SMTPPort,
		Username: m.SMTPUser,
		Password: m.SMTPPass,
		From:     m.From,
		Enabled:  enabled,
		render:   mailRenderer{siteURL: cfg.SiteURL},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		send:     smtp.SendMail,
		timeout:  time.Minute,
	}
}

func (s *MailNotifier) NotifyOwnerNewComment(ctx context.Context, n OwnerNotice) error {
	msg, ok, err := s.render.owner(n)
	if err != nil || !ok {
		return err
	}
	s.sendAsync(ctx, msg)
	return nil
}

func (s *MailNotifier) NotifyAuthorApproved(ctx context.Context, n ApprovalNotice) error {
	msg, ok, err := s.render.approved(n)
	if err != nil || !ok {
		return err
	}
	s.sendAsync(ctx, msg)
	return nil
}

// Wait blocks until queued sends have finished.
func (s *MailNotifier) Wait() {
	s.wg.Wait()
}

func (s *MailNotifier) sendAsync(ctx context.Context, e email) {
	if !s.Enabled {
		return
	}

	// the request context ends before the mail goes out
	ctx = logger.WithComponent(context.WithoutCancel(ctx), "mail")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := s.limiter.Wait(ctx); err != nil {
			slog.ErrorContext(ctx, "mail dropped by throttle", "to", e.To, "error", err)
			return
		}

		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: Squeaky Knees <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", e.To, s.From, e.Subject, mime, e.HTML))

		if err := s.send(addr, auth, s.From, []string{e.To}, msg); err != nil {
			slog.ErrorContext(ctx, "failed to send email", "to", e.To, "error", err)
			return
		}
		slog.InfoContext(ctx, "email sent", "to", e.To, "subject", e.Subject)
	}()
}
