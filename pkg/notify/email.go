package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/noah-isme/waste-mgmt-api/pkg/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender delivers HTML email over SMTP.
type EmailSender struct {
	cfg      config.SMTPConfig
	renderer *Renderer
	sendMail sendMailFunc
}

// NewEmailSender returns nil when SMTP is disabled.
func NewEmailSender(cfg config.SMTPConfig, renderer *Renderer) *EmailSender {
	if !cfg.Enabled {
		return nil
	}
	return &EmailSender{cfg: cfg, renderer: renderer, sendMail: smtp.SendMail}
}

// Send implements Notifier.
func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	body, err := s.renderer.HTML(msg.Template, msg.Data)
	if err != nil {
		return err
	}
	payload := s.buildMessage(msg.To, msg.Subject, body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	// net/smtp has no context support; run it aside so callers' deadlines still apply.
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.sendMail(addr, auth, s.cfg.FromEmail, []string{msg.To}, payload)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("send email to %s: %w", msg.To, ctx.Err())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("send email to %s: %w", msg.To, err)
		}
		return nil
	}
}

func (s *EmailSender) buildMessage(to, subject, body string) []byte {
	var b strings.Builder
	from := s.cfg.FromEmail
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	}
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
