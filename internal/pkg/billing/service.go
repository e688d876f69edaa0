package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"

	"github.com/fitcoach/fitcoach/app/models"
	"github.com/fitcoach/fitcoach/app/repository"
	"github.com/fitcoach/fitcoach/internal/pkg/env"
	"github.com/fitcoach/fitcoach/internal/pkg/mail"
	"github.com/fitcoach/fitcoach/internal/pkg/metrics"
	"github.com/fitcoach/fitcoach/internal/pkg/plans"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Notifier is the set of customer emails the reconciler triggers.
type Notifier interface {
	SendWelcome(ctx context.Context, e mail.InvoiceEmail) error
	SendRenewal(ctx context.Context, e mail.InvoiceEmail) error
	SendPaymentFailed(ctx context.Context, e mail.InvoiceEmail) error
	SendCancellation(ctx context.Context, e mail.CancellationEmail) error
	SendSubscriptionChange(ctx context.Context, e mail.SubscriptionChangeEmail) error
}

// Service reconciles Stripe webhook deliveries into local users and payments.
type Service struct {
	repo          Repository
	users         repository.UserRepository
	payments      repository.PaymentRepository
	plans         *plans.Registry
	notifier      Notifier
	webhookSecret string
	now           func() time.Time
}

// NewService creates a billing service from injected dependencies.
func NewService(
	repo Repository,
	users repository.UserRepository,
	payments repository.PaymentRepository,
	registry *plans.Registry,
	notifier Notifier,
	webhookSecret string,
) *Service {
	return &Service{
		repo:          repo,
		users:         users,
		payments:      payments,
		plans:         registry,
		notifier:      notifier,
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

// NewServiceFromRepositories creates a billing service over the shared
// repository set and STRIPE_WEBHOOK_SECRET. Webhook events are stored through db.
func NewServiceFromRepositories(db *gorm.DB, repos *repository.Repositories, registry *plans.Registry, notifier Notifier) *Service {
	return NewService(
		NewRepository(db),
		repos.User,
		repos.Payment,
		registry,
		notifier,
		env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	)
}

// VerifyWebhook checks the Stripe-Signature header and decodes the event.
// API version mismatches between the account and the library are accepted.
func (s *Service) VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	if strings.TrimSpace(s.webhookSecret) == "" {
		return stripe.Event{}, fmt.Errorf("%w: webhook secret is not configured", ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

// HandleWebhook verifies, records and reconciles one delivery. Only a
// signature failure is returned as an error; processing failures are logged,
// stored on the ledger row and reported in the outcome.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookOutcome, error) {
	event, err := s.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		fiberlog.Errorf("[Billing][Webhook] signature verification failed: %v", err)
		metrics.ObserveWebhook("", metrics.OutcomeRejected)
		return nil, err
	}

	eventType := string(event.Type)
	outcome := &WebhookOutcome{EventID: event.ID, EventType: eventType}

	created, stored, recErr := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       eventType,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if recErr != nil {
		fiberlog.Errorf("[Billing][Webhook] could not record event %s: %v", event.ID, recErr)
	}
	if recErr == nil && !created && stored.WasProcessedCleanly() {
		fiberlog.Infof("[Billing][Webhook] duplicate delivery of %s (%s), skipping", event.ID, eventType)
		outcome.Duplicate = true
		metrics.ObserveWebhook(eventType, metrics.OutcomeDuplicate)
		return outcome, nil
	}

	handled, procErr := s.ProcessEvent(ctx, event)
	outcome.Ignored = !handled
	outcome.Err = procErr

	if stored != nil {
		if err := s.MarkWebhookProcessed(ctx, stored.ID, procErr); err != nil {
			fiberlog.Errorf("[Billing][Webhook] could not mark event %s processed: %v", event.ID, err)
		}
	}

	switch {
	case procErr != nil:
		fiberlog.Errorf("[Billing][Webhook] processing %s (%s) failed: %v", event.ID, eventType, procErr)
		metrics.ObserveWebhook(eventType, metrics.OutcomeFailed)
	case !handled:
		metrics.ObserveWebhook(eventType, metrics.OutcomeIgnored)
	default:
		metrics.ObserveWebhook(eventType, metrics.OutcomeProcessed)
	}
	return outcome, nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		Payload:         []byte(in.PayloadJSON),
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
