package billing

import "time"

// Stripe event types the reconciler acts on.
const (
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventCheckoutCompleted       = "checkout.session.completed"
)

// Metadata keys written on Stripe objects at checkout time.
const (
	MetaPlanType = "plan_type"
	MetaPlanName = "plan_name"
	MetaPriceID  = "price_id"
	MetaEmail    = "email"
)

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// WebhookOutcome describes how a verified delivery was handled. Err holds a
// processing failure that was logged and recorded but not surfaced.
type WebhookOutcome struct {
	EventID   string
	EventType string
	Duplicate bool
	Ignored   bool
	Err       error
}

type CheckoutRequest struct {
	PlanType string `json:"planType"`
	PriceID  string `json:"priceId"`
}

type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

type IntentRequest struct {
	PlanType string `json:"planType"`
	Email    string `json:"email" validate:"omitempty,email"`
	Name     string `json:"name"`
}

type IntentResult struct {
	ClientSecret  string `json:"client_secret"`
	CustomerID    string `json:"customer_id"`
	SetupIntentID string `json:"setup_intent_id"`
}

type SubscriptionSummary struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	PriceID          string     `json:"price_id"`
	PlanType         string     `json:"plan_type"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

type ExistingSubscriptions struct {
	HasActiveSubscription bool                  `json:"hasActiveSubscription"`
	SubscriptionCount     int                   `json:"subscriptionCount"`
	Subscriptions         []SubscriptionSummary `json:"subscriptions"`
}

type CreateSubscriptionRequest struct {
	SetupIntentID   string `json:"setup_intent_id" validate:"required"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
	PriceID         string `json:"price_id" validate:"required"`
	PlanType        string `json:"plan_type"`
	PlanName        string `json:"plan_name"`
	Email           string `json:"email" validate:"required,email"`
}

type SubscriptionResult struct {
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
	CustomerID     string `json:"customer_id"`
	CustomerEmail  string `json:"customer_email"`
}

type InvoiceArtifact struct {
	InvoicePDFURL string `json:"invoice_pdf_url"`
	InvoiceID     string `json:"invoice_id"`
	Status        string `json:"status"`
}

type SessionSummary struct {
	SessionID    string `json:"sessionId"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
}
