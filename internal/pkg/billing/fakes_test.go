package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v76"

	"github.com/fitcoach/fitcoach/internal/pkg/cache"
	"github.com/fitcoach/fitcoach/internal/pkg/mail"
	"github.com/fitcoach/fitcoach/internal/pkg/plans"
)

func testRegistry() *plans.Registry {
	return plans.NewRegistry(
		plans.Plan{Key: "basic", Name: "Basic Coaching", Price: 49, PriceID: "price_basic_1"},
		plans.Plan{Key: "standard", Name: "Standard Coaching", Price: 99, PriceID: "price_standard_1"},
		plans.Plan{Key: "vip", Name: "VIP Coaching", Price: 199, PriceID: "price_vip_123"},
	)
}

type fakeGateway struct {
	calls []string

	sessionParams      *stripe.CheckoutSessionParams
	customerParams     []*stripe.CustomerParams
	setupIntentParams  *stripe.SetupIntentParams
	subscriptionParams *stripe.SubscriptionParams
	attached           []string

	setupIntent     *stripe.SetupIntent
	existing        *stripe.Customer
	paymentMethod   *stripe.PaymentMethod
	active          []*stripe.Subscription
	subscription    *stripe.Subscription
	checkoutSession *stripe.CheckoutSession
	err             error
}

func (g *fakeGateway) record(name string) error {
	g.calls = append(g.calls, name)
	return g.err
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if err := g.record("CreateCheckoutSession"); err != nil {
		return nil, err
	}
	g.sessionParams = params
	return &stripe.CheckoutSession{
		ID:   "cs_test_1",
		URL:  "https://checkout.stripe.com/c/pay/cs_test_1",
		Mode: stripe.CheckoutSessionMode(*params.Mode),
	}, nil
}

func (g *fakeGateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	if err := g.record("GetCheckoutSession"); err != nil {
		return nil, err
	}
	return g.checkoutSession, nil
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if err := g.record("CreateCustomer"); err != nil {
		return nil, err
	}
	g.customerParams = append(g.customerParams, params)
	c := &stripe.Customer{ID: "cus_new"}
	if params.Email != nil {
		c.Email = *params.Email
	}
	return c, nil
}

func (g *fakeGateway) FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	if err := g.record("FindCustomerByEmail"); err != nil {
		return nil, err
	}
	return g.existing, nil
}

func (g *fakeGateway) CreateSetupIntent(ctx context.Context, params *stripe.SetupIntentParams) (*stripe.SetupIntent, error) {
	if err := g.record("CreateSetupIntent"); err != nil {
		return nil, err
	}
	g.setupIntentParams = params
	return &stripe.SetupIntent{ID: "seti_1", ClientSecret: "seti_1_secret_abc"}, nil
}

func (g *fakeGateway) GetSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error) {
	if err := g.record("GetSetupIntent"); err != nil {
		return nil, err
	}
	return g.setupIntent, nil
}

func (g *fakeGateway) GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	if err := g.record("GetPaymentMethod"); err != nil {
		return nil, err
	}
	if g.paymentMethod == nil {
		return &stripe.PaymentMethod{ID: id}, nil
	}
	return g.paymentMethod, nil
}

func (g *fakeGateway) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) (*stripe.PaymentMethod, error) {
	if err := g.record("AttachPaymentMethod"); err != nil {
		return nil, err
	}
	g.attached = append(g.attached, paymentMethodID+"->"+customerID)
	return &stripe.PaymentMethod{ID: paymentMethodID, Customer: &stripe.Customer{ID: customerID}}, nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if err := g.record("CreateSubscription"); err != nil {
		return nil, err
	}
	g.subscriptionParams = params
	return &stripe.Subscription{ID: "sub_new", Status: stripe.SubscriptionStatusIncomplete}, nil
}

func (g *fakeGateway) ListActiveSubscriptions(ctx context.Context, customerID string, limit int64) ([]*stripe.Subscription, error) {
	if err := g.record("ListActiveSubscriptions"); err != nil {
		return nil, err
	}
	return g.active, nil
}

func (g *fakeGateway) GetSubscriptionWithInvoice(ctx context.Context, id string) (*stripe.Subscription, error) {
	if err := g.record("GetSubscriptionWithInvoice"); err != nil {
		return nil, err
	}
	return g.subscription, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	kinds   []string
	invoice []mail.InvoiceEmail
	cancels []mail.CancellationEmail
	changes []mail.SubscriptionChangeEmail
	err     error
}

func (n *fakeNotifier) add(kind string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	return n.err
}

func (n *fakeNotifier) SendWelcome(ctx context.Context, e mail.InvoiceEmail) error {
	n.invoice = append(n.invoice, e)
	return n.add(mail.KindWelcome)
}

func (n *fakeNotifier) SendRenewal(ctx context.Context, e mail.InvoiceEmail) error {
	n.invoice = append(n.invoice, e)
	return n.add(mail.KindRenewal)
}

func (n *fakeNotifier) SendPaymentFailed(ctx context.Context, e mail.InvoiceEmail) error {
	n.invoice = append(n.invoice, e)
	return n.add(mail.KindPaymentFailed)
}

func (n *fakeNotifier) SendCancellation(ctx context.Context, e mail.CancellationEmail) error {
	n.cancels = append(n.cancels, e)
	return n.add(mail.KindCancellation)
}

func (n *fakeNotifier) SendSubscriptionChange(ctx context.Context, e mail.SubscriptionChangeEmail) error {
	n.changes = append(n.changes, e)
	return n.add(mail.KindSubscriptionChange)
}

type memoryStore struct {
	values map[string]string
	ttl    map[string]time.Duration
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (s *memoryStore) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	s.values[key] = value
	s.ttl[key] = expiration
	return nil
}

var errProvider = errors.New("stripe unavailable")
