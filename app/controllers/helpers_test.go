package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/fitcoach/fitcoach/internal/pkg/billing"
	"github.com/fitcoach/fitcoach/internal/pkg/mail"
	"github.com/fitcoach/fitcoach/internal/pkg/plans"
)

func testPlans() *plans.Registry {
	return plans.NewRegistry(
		plans.Plan{Key: "basic", Name: "Basic Coaching", Price: 49, PriceID: "price_basic_1"},
		plans.Plan{Key: "vip", Name: "VIP Coaching", Price: 199, PriceID: "price_vip_123"},
	)
}

// stubGateway implements only the Stripe calls these handlers reach; any
// other call panics on the nil embedded interface.
type stubGateway struct {
	billing.Gateway
	calls       int
	sessions    []*stripe.CheckoutSessionParams
	setupIntent *stripe.SetupIntent
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	g.calls++
	g.sessions = append(g.sessions, params)
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (g *stubGateway) GetSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error) {
	g.calls++
	return g.setupIntent, nil
}

// recordingSender captures outgoing mail instead of delivering it.
type recordingSender struct {
	sent []mail.Message
}

func (s *recordingSender) Send(ctx context.Context, msg mail.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}
