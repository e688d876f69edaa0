package mail

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/fitcoach/fitcoach/internal/pkg/env"
	"github.com/fitcoach/fitcoach/internal/pkg/metrics"
)

// Template names under the template directory, also used as message tags.
const (
	KindWelcome            = "welcome"
	KindRenewal            = "renewal"
	KindPaymentFailed      = "payment-failed"
	KindCancellation       = "cancellation"
	KindSubscriptionChange = "subscription-change"
)

const (
	DateTimeLayout = "January 2, 2006 at 3:04 PM MST"
	DateLayout     = "January 2, 2006"
)

// ChangeKind classifies a plan change by comparing prices.
type ChangeKind string

const (
	ChangeUpgrade      ChangeKind = "upgrade"
	ChangeDowngrade    ChangeKind = "downgrade"
	ChangeModification ChangeKind = "modification"
)

// Customer addresses a notification.
type Customer struct {
	Name  string
	Email string
}

// InvoiceEmail carries the fields of welcome, renewal and payment-failed mails.
// Amount is in major currency units.
type InvoiceEmail struct {
	Customer
	PlanName   string
	Amount     float64
	Currency   string
	PeriodEnd  *time.Time
	InvoiceURL string
}

type CancellationEmail struct {
	Customer
	PlanName   string
	CanceledAt time.Time
}

type SubscriptionChangeEmail struct {
	Customer
	PreviousPlan   string
	NewPlan        string
	PreviousAmount float64
	NewAmount      float64
	Currency       string
	Change         ChangeKind
	PeriodEnd      *time.Time
}

// Branding fills the company placeholders every template shares.
type Branding struct {
	CompanyName  string
	LogoURL      string
	SupportEmail string
	BaseURL      string
}

// Notifier renders and sends the customer lifecycle emails.
type Notifier struct {
	sender   EmailSender
	renderer *Renderer
	brand    Branding
	loc      *time.Location
	now      func() time.Time
}

func NewNotifier(sender EmailSender, renderer *Renderer, brand Branding, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{
		sender:   sender,
		renderer: renderer,
		brand:    brand,
		loc:      loc,
		now:      time.Now,
	}
}

// NewNotifierFromEnv wires the configured sender, template directory,
// branding and MAIL_TIMEZONE.
func NewNotifierFromEnv() (*Notifier, error) {
	cfg := ConfigFromEnv()
	sender, err := NewSender(cfg)
	if err != nil {
		return nil, err
	}

	tz := env.GetEnv("MAIL_TIMEZONE", "America/New_York")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		fiberlog.Warnf("[Mail] unknown MAIL_TIMEZONE %q, falling back to UTC: %v", tz, err)
		loc = time.UTC
	}

	brand := Branding{
		CompanyName:  env.GetEnv("COMPANY_NAME", "FitCoach"),
		LogoURL:      env.GetEnv("COMPANY_LOGO_URL", ""),
		SupportEmail: cfg.SupportEmail,
		BaseURL:      env.GetEnv("APP_BASE_URL", "http://localhost:4000"),
	}
	renderer := NewRenderer(env.GetEnv("MAIL_TEMPLATE_DIR", "templates/email"))
	return NewNotifier(sender, renderer, brand, loc), nil
}

func (n *Notifier) SendWelcome(ctx context.Context, e InvoiceEmail) error {
	subject := fmt.Sprintf("Welcome to %s! Your coaching starts now", n.brand.CompanyName)
	return n.send(ctx, KindWelcome, e.Customer, subject, n.invoiceFields(e))
}

func (n *Notifier) SendRenewal(ctx context.Context, e InvoiceEmail) error {
	subject := fmt.Sprintf("Your %s subscription has been renewed", n.brand.CompanyName)
	return n.send(ctx, KindRenewal, e.Customer, subject, n.invoiceFields(e))
}

func (n *Notifier) SendPaymentFailed(ctx context.Context, e InvoiceEmail) error {
	subject := "Action required: your payment could not be processed"
	return n.send(ctx, KindPaymentFailed, e.Customer, subject, n.invoiceFields(e))
}

func (n *Notifier) SendCancellation(ctx context.Context, e CancellationEmail) error {
	subject := fmt.Sprintf("Your %s subscription has been canceled", n.brand.CompanyName)
	fields := map[string]string{
		"plan_name":         e.PlanName,
		"cancellation_date": e.CanceledAt.In(n.loc).Format(DateTimeLayout),
	}
	return n.send(ctx, KindCancellation, e.Customer, subject, fields)
}

func (n *Notifier) SendSubscriptionChange(ctx context.Context, e SubscriptionChangeEmail) error {
	fields := map[string]string{
		"plan_name":       e.NewPlan,
		"previous_plan":   e.PreviousPlan,
		"new_plan":        e.NewPlan,
		"previous_amount": FormatAmount(e.PreviousAmount, e.Currency),
		"new_amount":      FormatAmount(e.NewAmount, e.Currency),
		"currency":        strings.ToUpper(e.Currency),
		"change_type":     string(e.Change),
		"period_end":      n.formatDate(e.PeriodEnd),
	}
	return n.send(ctx, KindSubscriptionChange, e.Customer, ChangeSubject(e.Change, e.NewPlan), fields)
}

// ChangeSubject picks the subject line for a plan change.
func ChangeSubject(kind ChangeKind, newPlan string) string {
	switch kind {
	case ChangeUpgrade:
		return fmt.Sprintf("You've upgraded to %s", newPlan)
	case ChangeDowngrade:
		return fmt.Sprintf("Your plan has been changed to %s", newPlan)
	default:
		return "Your subscription has been updated"
	}
}

// FormatAmount renders a major-unit amount, with a $ sign for USD.
func FormatAmount(amount float64, currency string) string {
	value := strconv.FormatFloat(amount, 'f', 2, 64)
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if cur == "" || cur == "USD" {
		return "$" + value
	}
	return value + " " + cur
}

func (n *Notifier) invoiceFields(e InvoiceEmail) map[string]string {
	return map[string]string{
		"plan_name":   e.PlanName,
		"amount":      FormatAmount(e.Amount, e.Currency),
		"currency":    strings.ToUpper(e.Currency),
		"period_end":  n.formatDate(e.PeriodEnd),
		"invoice_url": e.InvoiceURL,
	}
}

func (n *Notifier) formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(n.loc).Format(DateLayout)
}

func (n *Notifier) send(ctx context.Context, kind string, to Customer, subject string, fields map[string]string) error {
	fields["customer_name"] = displayName(to)
	fields["customer_email"] = to.Email
	fields["company_name"] = n.brand.CompanyName
	fields["company_logo"] = n.brand.LogoURL
	fields["support_email"] = n.brand.SupportEmail
	fields["base_url"] = n.brand.BaseURL
	fields["year"] = strconv.Itoa(n.now().In(n.loc).Year())

	err := n.deliver(ctx, kind, to, subject, fields)
	metrics.ObserveNotification(kind, err)
	if err != nil {
		fiberlog.Errorf("[Mail] %s email to %s failed: %v", kind, to.Email, err)
		return err
	}
	return nil
}

func (n *Notifier) deliver(ctx context.Context, kind string, to Customer, subject string, fields map[string]string) error {
	htmlBody, textBody, err := n.renderer.Render(kind, fields)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, Message{
		To:       to.Email,
		Subject:  subject,
		Tag:      kind,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

func displayName(c Customer) string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	if i := strings.Index(c.Email, "@"); i > 0 {
		return c.Email[:i]
	}
	return "there"
}
