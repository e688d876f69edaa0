package billing

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Gateway is the subset of the Stripe API the checkout flow drives.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	// FindCustomerByEmail returns nil without error when no customer matches.
	FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error)
	CreateSetupIntent(ctx context.Context, params *stripe.SetupIntentParams) (*stripe.SetupIntent, error)
	GetSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error)
	GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) (*stripe.PaymentMethod, error)
	CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	ListActiveSubscriptions(ctx context.Context, customerID string, limit int64) ([]*stripe.Subscription, error)
	// GetSubscriptionWithInvoice loads a subscription with latest_invoice expanded.
	GetSubscriptionWithInvoice(ctx context.Context, id string) (*stripe.Subscription, error)
}

// StripeGateway implements Gateway with the stripe-go client.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{api: sc}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return g.api.CheckoutSessions.New(params)
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	return g.api.CheckoutSessions.Get(id, params)
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	params.Context = ctx
	return g.api.Customers.New(params)
}

func (g *StripeGateway) FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := g.api.Customers.List(params)
	if it.Next() {
		return it.Customer(), nil
	}
	return nil, it.Err()
}

func (g *StripeGateway) CreateSetupIntent(ctx context.Context, params *stripe.SetupIntentParams) (*stripe.SetupIntent, error) {
	params.Context = ctx
	return g.api.SetupIntents.New(params)
}

func (g *StripeGateway) GetSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error) {
	params := &stripe.SetupIntentParams{}
	params.Context = ctx
	return g.api.SetupIntents.Get(id, params)
}

func (g *StripeGateway) GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	return g.api.PaymentMethods.Get(id, params)
}

func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	return g.api.PaymentMethods.Attach(paymentMethodID, params)
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	params.Context = ctx
	return g.api.Subscriptions.New(params)
}

func (g *StripeGateway) ListActiveSubscriptions(ctx context.Context, customerID string, limit int64) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)

	var subs []*stripe.Subscription
	it := g.api.Subscriptions.List(params)
	for it.Next() {
		subs = append(subs, it.Subscription())
		if int64(len(subs)) >= limit {
			break
		}
	}
	return subs, it.Err()
}

func (g *StripeGateway) GetSubscriptionWithInvoice(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("latest_invoice")
	return g.api.Subscriptions.Get(id, params)
}
