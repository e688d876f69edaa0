package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"

	"github.com/fitcoach/fitcoach/internal/pkg/cache"
	"github.com/fitcoach/fitcoach/internal/pkg/constants"
	"github.com/fitcoach/fitcoach/internal/pkg/env"
	"github.com/fitcoach/fitcoach/internal/pkg/plans"
)

const (
	checkoutLocale   = "en"
	checkoutCurrency = "usd"

	// activeSubscriptionPageSize bounds the active-subscription lookup.
	activeSubscriptionPageSize = 100

	sessionCacheTTL    = 10 * time.Minute
	sessionCachePrefix = "checkout:session:"
)

// RequestError is a checkout failure carrying the HTTP status to answer with.
type RequestError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func badRequest(code, msg string) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Code: code, Message: msg}
}

func notFound(code, msg string) *RequestError {
	return &RequestError{Status: http.StatusNotFound, Code: code, Message: msg}
}

// upstream wraps a provider failure; the provider message is passed through.
func upstream(code string, err error) *RequestError {
	msg := err.Error()
	var serr *stripe.Error
	if errors.As(err, &serr) && serr.Msg != "" {
		msg = serr.Msg
	}
	return &RequestError{Status: http.StatusInternalServerError, Code: code, Message: msg, Err: err}
}

// Checkout stands up Stripe customers, sessions, setup intents and
// subscriptions for the browser flow. It persists nothing locally.
type Checkout struct {
	gateway Gateway
	plans   *plans.Registry
	baseURL string
	cache   cache.Store
}

// NewCheckout creates the orchestrator. store may be nil to disable the
// session lookup cache.
func NewCheckout(gateway Gateway, registry *plans.Registry, baseURL string, store cache.Store) *Checkout {
	return &Checkout{
		gateway: gateway,
		plans:   registry,
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   store,
	}
}

// NewCheckoutFromEnv uses STRIPE_SECRET_KEY and APP_BASE_URL.
func NewCheckoutFromEnv(registry *plans.Registry, store cache.Store) *Checkout {
	gw := NewStripeGateway(env.GetEnv("STRIPE_SECRET_KEY", ""))
	return NewCheckout(gw, registry, env.GetEnv("APP_BASE_URL", "http://localhost:4000"), store)
}

func (c *Checkout) resolvePlan(planType string) (plans.Plan, error) {
	plan, ok := c.plans.Get(planType)
	if !ok {
		return plans.Plan{}, badRequest("invalid_plan", fmt.Sprintf("Invalid plan type: %q", planType))
	}
	return plan, nil
}

// CreateCheckoutSession creates a hosted subscription checkout for a plan.
func (c *Checkout) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	plan, err := c.resolvePlan(req.PlanType)
	if err != nil {
		return nil, err
	}

	priceID := plan.PriceID
	if priceID == "" {
		priceID = strings.TrimSpace(req.PriceID)
	}
	if priceID == "" {
		return nil, &RequestError{
			Status:  http.StatusInternalServerError,
			Code:    "plan_misconfigured",
			Message: fmt.Sprintf("No price configured for plan %q", plan.Key),
		}
	}

	meta := planMetadata(plan.Key, plan.Name, priceID)
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.baseURL + constants.SuccessPath + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(c.baseURL + constants.PricingPath),
		Locale:     stripe.String(checkoutLocale),
		Currency:   stripe.String(checkoutCurrency),
		Metadata:   meta,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: meta,
		},
	}

	session, err := c.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		fiberlog.Errorf("[Billing][Checkout] create session for %s failed: %v", plan.Key, err)
		return nil, upstream("checkout_failed", err)
	}
	return &CheckoutResult{URL: session.URL, SessionID: session.ID}, nil
}

// CreateSubscriptionIntent creates a tagged customer and an off-session card
// setup intent for the plan.
func (c *Checkout) CreateSubscriptionIntent(ctx context.Context, req IntentRequest) (*IntentResult, error) {
	plan, err := c.resolvePlan(req.PlanType)
	if err != nil {
		return nil, err
	}
	if plan.PriceID == "" {
		return nil, &RequestError{
			Status:  http.StatusInternalServerError,
			Code:    "plan_misconfigured",
			Message: fmt.Sprintf("No price configured for plan %q", plan.Key),
		}
	}

	meta := planMetadata(plan.Key, plan.Name, plan.PriceID)
	customerParams := &stripe.CustomerParams{Metadata: meta}
	if email := strings.TrimSpace(req.Email); email != "" {
		customerParams.Email = stripe.String(email)
		meta[MetaEmail] = email
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		customerParams.Name = stripe.String(name)
	}

	customer, err := c.gateway.CreateCustomer(ctx, customerParams)
	if err != nil {
		fiberlog.Errorf("[Billing][Checkout] create customer failed: %v", err)
		return nil, upstream("customer_failed", err)
	}

	intent, err := c.gateway.CreateSetupIntent(ctx, &stripe.SetupIntentParams{
		Customer:           stripe.String(customer.ID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Usage:              stripe.String(string(stripe.SetupIntentUsageOffSession)),
		Metadata:           meta,
	})
	if err != nil {
		fiberlog.Errorf("[Billing][Checkout] create setup intent for %s failed: %v", customer.ID, err)
		return nil, upstream("setup_intent_failed", err)
	}

	return &IntentResult{
		ClientSecret:  intent.ClientSecret,
		CustomerID:    customer.ID,
		SetupIntentID: intent.ID,
	}, nil
}

// CheckExistingSubscription lists the customer's active subscriptions.
func (c *Checkout) CheckExistingSubscription(ctx context.Context, customerID string) (*ExistingSubscriptions, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, badRequest("missing_customer_id", "customer_id is required")
	}

	subs, err := c.gateway.ListActiveSubscriptions(ctx, customerID, activeSubscriptionPageSize)
	if err != nil {
		return nil, upstream("subscription_lookup_failed", err)
	}

	out := &ExistingSubscriptions{
		HasActiveSubscription: len(subs) > 0,
		SubscriptionCount:     len(subs),
		Subscriptions:         make([]SubscriptionSummary, 0, len(subs)),
	}
	for _, sub := range subs {
		summary := SubscriptionSummary{
			ID:               sub.ID,
			Status:           string(sub.Status),
			PlanType:         sub.Metadata[MetaPlanType],
			CurrentPeriodEnd: unixTime(sub.CurrentPeriodEnd),
		}
		if item := firstSubscriptionItem(sub); item != nil {
			summary.PriceID, _ = priceRefs(item.Price)
			if plan, ok := c.plans.ByPriceID(summary.PriceID); ok {
				summary.PlanType = plan.Key
			}
		}
		out.Subscriptions = append(out.Subscriptions, summary)
	}
	return out, nil
}

// CreateSubscription turns a confirmed setup intent into a subscription for
// the customer owning the email.
func (c *Checkout) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*SubscriptionResult, error) {
	req.SetupIntentID = strings.TrimSpace(req.SetupIntentID)
	req.PaymentMethodID = strings.TrimSpace(req.PaymentMethodID)
	req.PriceID = strings.TrimSpace(req.PriceID)
	req.Email = strings.TrimSpace(req.Email)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"setup_intent_id", req.SetupIntentID},
		{"payment_method_id", req.PaymentMethodID},
		{"price_id", req.PriceID},
		{"email", req.Email},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, badRequest("missing_fields", "Missing required fields: "+strings.Join(missing, ", "))
	}

	intent, err := c.gateway.GetSetupIntent(ctx, req.SetupIntentID)
	if err != nil {
		return nil, upstream("setup_intent_lookup_failed", err)
	}
	if intent.Status != stripe.SetupIntentStatusSucceeded {
		return nil, badRequest("setup_intent_not_confirmed",
			fmt.Sprintf("Setup intent is not confirmed (status: %s)", intent.Status))
	}

	planName := req.PlanName
	if plan, ok := c.plans.Get(req.PlanType); ok && planName == "" {
		planName = plan.Name
	}
	meta := planMetadata(req.PlanType, planName, req.PriceID)
	meta[MetaEmail] = req.Email

	customer, err := c.gateway.FindCustomerByEmail(ctx, req.Email)
	if err != nil {
		return nil, upstream("customer_lookup_failed", err)
	}
	if customer == nil {
		customer, err = c.gateway.CreateCustomer(ctx, &stripe.CustomerParams{
			Email:    stripe.String(req.Email),
			Metadata: meta,
		})
		if err != nil {
			return nil, upstream("customer_failed", err)
		}
	}

	active, err := c.gateway.ListActiveSubscriptions(ctx, customer.ID, activeSubscriptionPageSize)
	if err != nil {
		return nil, upstream("subscription_lookup_failed", err)
	}
	if len(active) > 0 {
		return nil, badRequest("already_subscribed", "This email already has an active subscription")
	}

	pm, err := c.gateway.GetPaymentMethod(ctx, req.PaymentMethodID)
	if err != nil {
		return nil, upstream("payment_method_lookup_failed", err)
	}
	if pm.Customer == nil || pm.Customer.ID != customer.ID {
		if _, err := c.gateway.AttachPaymentMethod(ctx, req.PaymentMethodID, customer.ID); err != nil {
			return nil, upstream("payment_method_attach_failed", err)
		}
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customer.ID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(req.PriceID)},
		},
		DefaultPaymentMethod: stripe.String(req.PaymentMethodID),
		Metadata:             meta,
	}
	params.AddExpand("latest_invoice.payment_intent")

	sub, err := c.gateway.CreateSubscription(ctx, params)
	if err != nil {
		fiberlog.Errorf("[Billing][Checkout] create subscription for %s failed: %v", customer.ID, err)
		return nil, upstream("subscription_failed", err)
	}

	return &SubscriptionResult{
		SubscriptionID: sub.ID,
		Status:         string(sub.Status),
		CustomerID:     customer.ID,
		CustomerEmail:  req.Email,
	}, nil
}

// GetInvoicePDF returns the latest invoice artifact of a subscription.
func (c *Checkout) GetInvoicePDF(ctx context.Context, subscriptionID string) (*InvoiceArtifact, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, badRequest("missing_subscription_id", "subscription_id is required")
	}

	sub, err := c.gateway.GetSubscriptionWithInvoice(ctx, subscriptionID)
	if err != nil {
		return nil, upstream("subscription_lookup_failed", err)
	}
	if sub.LatestInvoice == nil || sub.LatestInvoice.ID == "" {
		return nil, notFound("invoice_not_found", "No invoice found for this subscription")
	}

	return &InvoiceArtifact{
		InvoicePDFURL: sub.LatestInvoice.InvoicePDF,
		InvoiceID:     sub.LatestInvoice.ID,
		Status:        string(sub.LatestInvoice.Status),
	}, nil
}

// LookupSession returns the customer and subscription of a completed
// checkout session. Results are cached; cache failures are ignored.
func (c *Checkout) LookupSession(ctx context.Context, sessionID string) (*SessionSummary, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, badRequest("missing_session_id", "session_id is required")
	}

	key := sessionCachePrefix + sessionID
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key); err == nil {
			var cached SessionSummary
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			fiberlog.Warnf("[Billing][Checkout] session cache read failed: %v", err)
		}
	}

	session, err := c.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, upstream("session_lookup_failed", err)
	}

	summary := &SessionSummary{
		SessionID: session.ID,
		Customer:  customerID(session.Customer),
	}
	if session.Subscription != nil {
		summary.Subscription = session.Subscription.ID
	}

	if c.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			if err := c.cache.Set(ctx, key, string(raw), sessionCacheTTL); err != nil {
				fiberlog.Warnf("[Billing][Checkout] session cache write failed: %v", err)
			}
		}
	}
	return summary, nil
}
