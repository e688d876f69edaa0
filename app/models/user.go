package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Subscription states of a customer. The zero value of a fresh row is
// SubscriptionStateNone; only the webhook reconciler moves users between states.
const (
	SubscriptionStateNone       = "none"
	SubscriptionStateSubscribed = "subscribed"
	SubscriptionStateCanceled   = "canceled"
)

// Transition kinds applied to a user by billing events.
const (
	TransitionInvoicePaid  = "invoice_paid"
	TransitionPlanChange   = "plan_change"
	TransitionCancellation = "cancellation"
)

const InvoiceStatusCanceled = "canceled"

// ErrIllegalTransition is returned when a billing event cannot be applied to
// the user's current subscription state.
var ErrIllegalTransition = errors.New("illegal subscription state transition")

// User is one paying or formerly paying customer. A non-nil SubscriptionID
// is the entitlement gate for the forms area.
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Email             string     `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,max=200"`
	Name              string     `gorm:"type:varchar(150);default:''" json:"name" validate:"max=150"`
	StripeCustomerID  *string    `gorm:"uniqueIndex;type:varchar(191)" json:"stripe_customer_id"`
	SubscriptionID    *string    `gorm:"type:varchar(191);index" json:"subscription_id"`
	SubscriptionState string     `gorm:"type:varchar(20);not null;default:'none'" json:"subscription_state"`
	PlanName          string     `gorm:"type:varchar(100);default:''" json:"plan_name"`
	PlanType          string     `gorm:"type:varchar(50);default:''" json:"plan_type"`
	PriceID           string     `gorm:"type:varchar(191);default:''" json:"price_id"`
	ProductID         string     `gorm:"type:varchar(191);default:''" json:"product_id"`
	Currency          string     `gorm:"type:varchar(10);default:''" json:"currency"`
	Amount            float64    `gorm:"default:0" json:"amount"`
	SubscriptionStart *time.Time `gorm:"type:timestamp;default:null" json:"subscription_start"`
	SubscriptionEnd   *time.Time `gorm:"type:timestamp;default:null" json:"subscription_end"`
	InvoiceStatus     string     `gorm:"type:varchar(32);default:''" json:"invoice_status"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubscriptionSnapshot is the remote subscription data a billing event
// carries. Amount is in major currency units.
type SubscriptionSnapshot struct {
	SubscriptionID string
	PlanName       string
	PlanType       string
	PriceID        string
	ProductID      string
	Currency       string
	Amount         float64
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	InvoiceStatus  string
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// NewCustomer builds an unsubscribed user row for a billing email.
func NewCustomer(email, name string) (*User, error) {
	u := &User{
		Email:             strings.ToLower(strings.TrimSpace(email)),
		Name:              strings.TrimSpace(name),
		SubscriptionState: SubscriptionStateNone,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// HasActiveSubscription reports whether the user is currently entitled.
func (u *User) HasActiveSubscription() bool {
	return u.SubscriptionID != nil && *u.SubscriptionID != ""
}

// State returns the stored subscription state, treating empty as none.
func (u *User) State() string {
	if u.SubscriptionState == "" {
		return SubscriptionStateNone
	}
	return u.SubscriptionState
}

// CanTransition reports whether a transition kind may be applied from a state.
func CanTransition(from, transition string) bool {
	switch transition {
	case TransitionInvoicePaid, TransitionCancellation:
		return true
	case TransitionPlanChange:
		return from == SubscriptionStateSubscribed || from == SubscriptionStateCanceled
	default:
		return false
	}
}

// LinkCustomer stores the provider customer id. Last write wins.
func (u *User) LinkCustomer(customerID string) bool {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return false
	}
	if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
		return false
	}
	u.StripeCustomerID = &customerID
	return true
}

// ApplyInvoicePaid records a successful invoice.
func (u *User) ApplyInvoicePaid(s SubscriptionSnapshot) error {
	if !CanTransition(u.State(), TransitionInvoicePaid) {
		return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, TransitionInvoicePaid, u.State())
	}
	u.applySnapshot(s)
	u.SubscriptionState = SubscriptionStateSubscribed
	return nil
}

// ApplyPlanChange records a subscription update pushed by the provider.
func (u *User) ApplyPlanChange(s SubscriptionSnapshot) error {
	if !CanTransition(u.State(), TransitionPlanChange) {
		return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, TransitionPlanChange, u.State())
	}
	u.applySnapshot(s)
	u.SubscriptionState = SubscriptionStateSubscribed
	return nil
}

// ApplyCancellation clears the entitlement and stamps the end of the subscription.
func (u *User) ApplyCancellation(endedAt time.Time) error {
	if !CanTransition(u.State(), TransitionCancellation) {
		return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, TransitionCancellation, u.State())
	}
	u.SubscriptionID = nil
	u.SubscriptionEnd = &endedAt
	u.InvoiceStatus = InvoiceStatusCanceled
	u.SubscriptionState = SubscriptionStateCanceled
	return nil
}

func (u *User) applySnapshot(s SubscriptionSnapshot) {
	if s.SubscriptionID != "" {
		subID := s.SubscriptionID
		u.SubscriptionID = &subID
	}
	u.PlanName = s.PlanName
	u.PlanType = s.PlanType
	u.PriceID = s.PriceID
	u.ProductID = s.ProductID
	u.Currency = s.Currency
	u.Amount = s.Amount
	if s.PeriodStart != nil {
		u.SubscriptionStart = s.PeriodStart
	}
	if s.PeriodEnd != nil {
		u.SubscriptionEnd = s.PeriodEnd
	}
	u.InvoiceStatus = s.InvoiceStatus
}

// DisplayName falls back to the mailbox part of the email.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}
