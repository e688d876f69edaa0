package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/fitcoach/fitcoach/internal/pkg/env"
)

var (
	ErrFailedToSend  = errors.New("mail: failed to send email")
	ErrInvalidConfig = errors.New("mail: invalid config")
	ErrInvalidParams = errors.New("mail: invalid message")
)

const (
	DriverPostmark = "postmark"
	DriverSMTP     = "smtp"
	DriverLog      = "log"
)

// EmailSender delivers one rendered message.
type EmailSender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered email ready for delivery.
type Message struct {
	To       string
	Subject  string
	Tag      string
	HTMLBody string
	TextBody string
}

// Validate checks the fields every sender relies on.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient %q", ErrInvalidParams, m.To)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if m.HTMLBody == "" && m.TextBody == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}

// Config holds the sender identity and provider credentials.
type Config struct {
	Driver               string
	SenderEmail          string
	SupportEmail         string
	PostmarkServerToken  string
	PostmarkAccountToken string
	SMTPHost             string
	SMTPPort             string
	SMTPUsername         string
	SMTPPassword         string
}

// ConfigFromEnv reads the mail configuration. The driver defaults to log in
// dev and postmark elsewhere.
func ConfigFromEnv() Config {
	driver := DriverPostmark
	if env.IsDev() {
		driver = DriverLog
	}
	return Config{
		Driver:               strings.ToLower(env.GetEnv("MAIL_DRIVER", driver)),
		SenderEmail:          env.GetEnv("MAIL_SENDER", "coach@localhost"),
		SupportEmail:         env.GetEnv("MAIL_SUPPORT", ""),
		PostmarkServerToken:  env.GetEnv("POSTMARK_SERVER_TOKEN", ""),
		PostmarkAccountToken: env.GetEnv("POSTMARK_ACCOUNT_TOKEN", ""),
		SMTPHost:             env.GetEnv("SMTP_HOST", ""),
		SMTPPort:             env.GetEnv("SMTP_PORT", "587"),
		SMTPUsername:         env.GetEnv("SMTP_USERNAME", ""),
		SMTPPassword:         env.GetEnv("SMTP_PASSWORD", ""),
	}
}

// NewSender builds the sender selected by cfg.Driver.
func NewSender(cfg Config) (EmailSender, error) {
	switch cfg.Driver {
	case DriverPostmark:
		return NewPostmarkSender(cfg)
	case DriverSMTP:
		s, err := NewSMTPSender(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverLog, "":
		return NewLogSender(), nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.Driver)
	}
}

// LogSender only logs outgoing mail.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	fiberlog.Infof("[Mail] (log driver) to=%s subject=%q tag=%s", msg.To, msg.Subject, msg.Tag)
	return nil
}
