package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"github.com/fitcoach/fitcoach/app/models"
	"github.com/fitcoach/fitcoach/internal/pkg/mail"
)

// ProcessEvent applies one verified event to local state. It reports whether
// the event type is one the reconciler acts on.
func (s *Service) ProcessEvent(ctx context.Context, event stripe.Event) (bool, error) {
	switch string(event.Type) {
	case EventInvoicePaymentSucceeded:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return true, fmt.Errorf("decode invoice: %w", err)
		}
		return true, s.handleInvoicePaid(ctx, event.ID, &inv)

	case EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return true, fmt.Errorf("decode invoice: %w", err)
		}
		return true, s.handleInvoiceFailed(ctx, event.ID, &inv)

	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return true, fmt.Errorf("decode subscription: %w", err)
		}
		return true, s.handleSubscriptionDeleted(ctx, event.ID, &sub)

	case EventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return true, fmt.Errorf("decode subscription: %w", err)
		}
		return true, s.handleSubscriptionUpdated(ctx, event.ID, &sub)

	case EventCheckoutCompleted:
		fiberlog.Infof("[Billing][Webhook] checkout session completed: %s", event.ID)
		return false, nil

	default:
		fiberlog.Infof("[Billing][Webhook] unhandled event type: %s", event.Type)
		return false, nil
	}
}

// resolveUser looks the user up by Stripe customer id, then by email. An
// email match with a different customer id is relinked to the new id.
// It returns nil without error when nothing matches.
func (s *Service) resolveUser(customer, email string) (*models.User, error) {
	if customer != "" {
		u, err := s.users.GetByStripeCustomerID(customer)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lookup user by customer: %w", err)
		}
	}
	if email == "" {
		return nil, nil
	}

	u, err := s.users.GetByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	if u.LinkCustomer(customer) {
		fiberlog.Warnf("[Billing][Webhook] linking user %d to customer %s", u.ID, customer)
		if err := s.users.Update(u); err != nil {
			return nil, fmt.Errorf("link customer: %w", err)
		}
	}
	return u, nil
}

func (s *Service) invoiceSnapshot(inv *stripe.Invoice) models.SubscriptionSnapshot {
	snap := models.SubscriptionSnapshot{
		Currency:      string(inv.Currency),
		Amount:        centsToMajor(inv.AmountPaid),
		InvoiceStatus: string(inv.Status),
	}
	if inv.Subscription != nil {
		snap.SubscriptionID = inv.Subscription.ID
	}

	var lineMeta, subMeta map[string]string
	if inv.SubscriptionDetails != nil {
		subMeta = inv.SubscriptionDetails.Metadata
	}
	if line := firstInvoiceLine(inv); line != nil {
		lineMeta = line.Metadata
		snap.PriceID, snap.ProductID = priceRefs(line.Price)
		if line.Period != nil {
			snap.PeriodStart = unixTime(line.Period.Start)
			snap.PeriodEnd = unixTime(line.Period.End)
		}
	}

	if plan, ok := s.plans.ByPriceID(snap.PriceID); ok {
		snap.PlanType = plan.Key
		snap.PlanName = plan.Name
	} else {
		snap.PlanType = firstMeta(MetaPlanType, lineMeta, subMeta)
		snap.PlanName = firstMeta(MetaPlanName, lineMeta, subMeta)
		if snap.PlanName == "" {
			if plan, ok := s.plans.Get(snap.PlanType); ok {
				snap.PlanName = plan.Name
			}
		}
	}
	return snap
}

func (s *Service) handleInvoicePaid(ctx context.Context, eventID string, inv *stripe.Invoice) error {
	customer := customerID(inv.Customer)
	user, err := s.resolveUser(customer, inv.CustomerEmail)
	if err != nil {
		return err
	}

	snap := s.invoiceSnapshot(inv)
	if snap.InvoiceStatus == "" {
		snap.InvoiceStatus = models.InvoiceStatusPaid
	}

	var priorPaid int64
	if user == nil {
		user, err = models.NewCustomer(inv.CustomerEmail, inv.CustomerName)
		if err != nil {
			return fmt.Errorf("new user for customer %s: %w", customer, err)
		}
		user.LinkCustomer(customer)
		if err := user.ApplyInvoicePaid(snap); err != nil {
			return err
		}
		if err := s.users.Create(user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fiberlog.Infof("[Billing][Webhook] created user %d for customer %s", user.ID, customer)
	} else {
		priorPaid, err = s.payments.CountPaidByUser(user.ID)
		if err != nil {
			return fmt.Errorf("count paid payments: %w", err)
		}
		user.LinkCustomer(customer)
		if err := user.ApplyInvoicePaid(snap); err != nil {
			return err
		}
		if err := s.users.Update(user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
	}

	userID := user.ID
	created, err := s.payments.CreateIfNotExists(&models.Payment{
		ID:            eventID,
		Status:        models.PaymentStatusSucceeded,
		Amount:        inv.AmountPaid,
		Currency:      string(inv.Currency),
		InvoiceURL:    inv.HostedInvoiceURL,
		InvoicePDF:    inv.InvoicePDF,
		InvoiceStatus: snap.InvoiceStatus,
		UserID:        &userID,
	})
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	if !created {
		fiberlog.Infof("[Billing][Webhook] payment %s already recorded", eventID)
	}

	email := mail.InvoiceEmail{
		Customer:   mail.Customer{Name: user.DisplayName(), Email: user.Email},
		PlanName:   snap.PlanName,
		Amount:     snap.Amount,
		Currency:   snap.Currency,
		PeriodEnd:  snap.PeriodEnd,
		InvoiceURL: inv.HostedInvoiceURL,
	}
	isFirst := inv.BillingReason == stripe.InvoiceBillingReasonSubscriptionCreate || priorPaid == 0
	if isFirst {
		s.notify("welcome", func() error { return s.notifier.SendWelcome(ctx, email) })
	} else {
		s.notify("renewal", func() error { return s.notifier.SendRenewal(ctx, email) })
	}
	return nil
}

func (s *Service) handleInvoiceFailed(ctx context.Context, eventID string, inv *stripe.Invoice) error {
	user, err := s.resolveUser(customerID(inv.Customer), inv.CustomerEmail)
	if err != nil {
		return err
	}

	payment := &models.Payment{
		ID:            eventID,
		Status:        models.PaymentStatusFailed,
		Amount:        inv.AmountDue,
		Currency:      string(inv.Currency),
		InvoiceURL:    inv.HostedInvoiceURL,
		InvoicePDF:    inv.InvoicePDF,
		InvoiceStatus: string(inv.Status),
	}
	if user != nil {
		userID := user.ID
		payment.UserID = &userID
	}
	if _, err := s.payments.CreateIfNotExists(payment); err != nil {
		return fmt.Errorf("record failed payment: %w", err)
	}

	if user == nil {
		fiberlog.Warnf("[Billing][Webhook] payment failed for unknown customer %s", customerID(inv.Customer))
		return nil
	}

	snap := s.invoiceSnapshot(inv)
	planName := snap.PlanName
	if planName == "" {
		planName = user.PlanName
	}
	email := mail.InvoiceEmail{
		Customer:   mail.Customer{Name: user.DisplayName(), Email: user.Email},
		PlanName:   planName,
		Amount:     centsToMajor(inv.AmountDue),
		Currency:   string(inv.Currency),
		InvoiceURL: inv.HostedInvoiceURL,
	}
	s.notify("payment-failed", func() error { return s.notifier.SendPaymentFailed(ctx, email) })
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, eventID string, sub *stripe.Subscription) error {
	customer := customerID(sub.Customer)
	user, err := s.resolveUser(customer, sub.Metadata[MetaEmail])
	if err != nil {
		return err
	}
	if user == nil {
		fiberlog.Warnf("[Billing][Webhook] subscription %s deleted for unknown customer %s", sub.ID, customer)
		return nil
	}

	endedAt := s.now().UTC()
	if t := unixTime(sub.EndedAt); t != nil {
		endedAt = *t
	} else if t := unixTime(sub.CanceledAt); t != nil {
		endedAt = *t
	}

	if err := user.ApplyCancellation(endedAt); err != nil {
		return err
	}
	if err := s.users.Update(user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	userID := user.ID
	if _, err := s.payments.CreateIfNotExists(&models.Payment{
		ID:            eventID + models.PaymentIDSuffixCancellation,
		Status:        models.PaymentStatusCanceled,
		Amount:        0,
		Currency:      string(sub.Currency),
		InvoiceStatus: models.InvoiceStatusCanceled,
		UserID:        &userID,
	}); err != nil {
		return fmt.Errorf("record cancellation: %w", err)
	}

	email := mail.CancellationEmail{
		Customer:   mail.Customer{Name: user.DisplayName(), Email: user.Email},
		PlanName:   user.PlanName,
		CanceledAt: endedAt,
	}
	s.notify("cancellation", func() error { return s.notifier.SendCancellation(ctx, email) })
	return nil
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, eventID string, sub *stripe.Subscription) error {
	customer := customerID(sub.Customer)
	user, err := s.resolveUser(customer, sub.Metadata[MetaEmail])
	if err != nil {
		return err
	}
	if user == nil {
		fiberlog.Warnf("[Billing][Webhook] subscription %s updated for unknown customer %s", sub.ID, customer)
		return nil
	}

	var price *stripe.Price
	if item := firstSubscriptionItem(sub); item != nil {
		price = item.Price
	}
	priceID, productID := priceRefs(price)

	var unitAmount int64
	currency := string(sub.Currency)
	if price != nil {
		unitAmount = price.UnitAmount
		if currency == "" {
			currency = string(price.Currency)
		}
	}

	snap := models.SubscriptionSnapshot{
		SubscriptionID: sub.ID,
		PlanName:       user.PlanName,
		PlanType:       user.PlanType,
		PriceID:        priceID,
		ProductID:      productID,
		Currency:       currency,
		Amount:         centsToMajor(unitAmount),
		PeriodStart:    unixTime(sub.CurrentPeriodStart),
		PeriodEnd:      unixTime(sub.CurrentPeriodEnd),
		InvoiceStatus:  string(sub.Status),
	}
	if plan, ok := s.plans.ByPriceID(priceID); ok {
		snap.PlanName = plan.Name
		snap.PlanType = plan.Key
	} else {
		fiberlog.Warnf("[Billing][Webhook] price %s is not in the plan registry, keeping plan %q", priceID, user.PlanType)
	}

	previousPlan, previousAmount := user.PlanName, user.Amount
	change := classifyChange(previousAmount, snap.Amount)

	if err := user.ApplyPlanChange(snap); err != nil {
		return fmt.Errorf("user %d: %w", user.ID, err)
	}
	if err := s.users.Update(user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	userID := user.ID
	if _, err := s.payments.CreateIfNotExists(&models.Payment{
		ID:            eventID + models.PaymentIDSuffixUpdate,
		Status:        models.PaymentStatusUpdated,
		Amount:        unitAmount,
		Currency:      currency,
		InvoiceStatus: string(sub.Status),
		UserID:        &userID,
	}); err != nil {
		return fmt.Errorf("record plan change: %w", err)
	}

	email := mail.SubscriptionChangeEmail{
		Customer:       mail.Customer{Name: user.DisplayName(), Email: user.Email},
		PreviousPlan:   previousPlan,
		NewPlan:        snap.PlanName,
		PreviousAmount: previousAmount,
		NewAmount:      snap.Amount,
		Currency:       currency,
		Change:         change,
		PeriodEnd:      snap.PeriodEnd,
	}
	s.notify("subscription-change", func() error { return s.notifier.SendSubscriptionChange(ctx, email) })
	return nil
}

// notify runs a send and only logs its failure.
func (s *Service) notify(kind string, send func() error) {
	if s.notifier == nil {
		return
	}
	if err := send(); err != nil {
		fiberlog.Errorf("[Billing][Webhook] %s notification failed: %v", kind, err)
	}
}
