package mail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// SMTPSender sends emails via SMTP
type SMTPSender struct {
	addr    string
	auth    smtp.Auth
	sender  string
	replyTo string
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a sender for SMTP_HOST:SMTP_PORT. Auth is only used
// when both username and password are set.
func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("%w: SMTP_HOST is required", ErrInvalidConfig)
	}
	sender := cfg.SenderEmail
	if sender == "" {
		sender = "no-reply@localhost"
		log.Printf("[Mail] MAIL_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if cfg.SMTPUsername != "" && cfg.SMTPPassword != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}

	return &SMTPSender{
		addr:    fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		auth:    auth,
		sender:  sender,
		replyTo: cfg.SupportEmail,
		send:    smtp.SendMail,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.send(s.addr, s.auth, s.sender, []string{msg.To}, s.buildMessage(msg))
	if err != nil {
		log.Printf("[Mail] SMTP send error: %v", err)
		return errors.Join(ErrFailedToSend, err)
	}
	log.Printf("[Mail] Email sent to %s via %s", msg.To, s.addr)
	return nil
}

func (s *SMTPSender) buildMessage(msg Message) []byte {
	boundary := "fitcoach-" + strings.ReplaceAll(uuid.NewString(), "-", "")

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", s.sender, msg.To, encodeHeader(msg.Subject))
	if s.replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", s.replyTo)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	if msg.TextBody != "" {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.TextBody)
	}
	if msg.HTMLBody != "" {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.HTMLBody)
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// encodeHeader folds CR/LF into spaces and RFC 2047 encodes non-ASCII text.
func encodeHeader(value string) string {
	value = strings.Join(strings.FieldsFunc(value, func(r rune) bool {
		return r == '\r' || r == '\n'
	}), " ")
	return mime.QEncoding.Encode("utf-8", value)
}
