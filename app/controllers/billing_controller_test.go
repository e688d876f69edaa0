package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"github.com/fitcoach/fitcoach/app/models"
	"github.com/fitcoach/fitcoach/app/repository"
	"github.com/fitcoach/fitcoach/internal/pkg/billing"
	"github.com/fitcoach/fitcoach/internal/pkg/database/databasetest"
	"github.com/fitcoach/fitcoach/internal/pkg/mail"
)

const webhookSecret = "whsec_controller_test"

type billingHarness struct {
	app     *fiber.App
	db      *gorm.DB
	gateway *stubGateway
	mails   *recordingSender
}

func newBillingHarness(t *testing.T) *billingHarness {
	t.Helper()
	db := databasetest.Open(t)
	registry := testPlans()
	gw := &stubGateway{}
	sender := &recordingSender{}

	notifier := mail.NewNotifier(sender, mail.NewRenderer("../../templates/email"), mail.Branding{
		CompanyName:  "FitCoach",
		SupportEmail: "support@fit.example.com",
		BaseURL:      "https://fit.example.com",
	}, time.UTC)
	svc := billing.NewService(
		billing.NewRepository(db),
		repository.NewUserRepository(db),
		repository.NewPaymentRepository(db),
		registry,
		notifier,
		webhookSecret,
	)
	bc := NewBillingController(billing.NewCheckout(gw, registry, "https://fit.example.com", nil), svc)

	app := fiber.New()
	app.Post("/api/checkout", bc.HandleCheckout)
	app.Post("/api/create-subscription", bc.HandleCreateSubscription)
	app.Post("/api/create-subscription-intent", bc.HandleCreateSubscriptionIntent)
	app.Get("/api/get-invoice-pdf", bc.HandleInvoicePDF)
	app.Post("/api/webhook", bc.HandleStripeWebhook)
	return &billingHarness{app: app, db: db, gateway: gw, mails: sender}
}

func TestCheckoutRejectsUnknownPlan(t *testing.T) {
	h := newBillingHarness(t)

	for _, plan := range []string{"", "gold", "VIP-2"} {
		status, body := doJSON(t, h.app, "POST", "/api/checkout", map[string]string{"planType": plan})
		assert.Equal(t, fiber.StatusBadRequest, status, plan)
		assert.Equal(t, "invalid_plan", body["error"])
	}
	assert.Zero(t, h.gateway.calls)
}

func TestCheckoutVIPSession(t *testing.T) {
	h := newBillingHarness(t)

	status, body := doJSON(t, h.app, "POST", "/api/checkout", map[string]string{"planType": "vip"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "cs_test_1", body["sessionId"])
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", body["url"])

	require.Len(t, h.gateway.sessions, 1)
	params := h.gateway.sessions[0]
	assert.Equal(t, string(stripe.CheckoutSessionModeSubscription), *params.Mode)
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, "price_vip_123", *params.LineItems[0].Price)
}

func TestCheckoutRejectsMalformedBody(t *testing.T) {
	h := newBillingHarness(t)

	req := httptest.NewRequest("POST", "/api/checkout", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, h.gateway.calls)
}

func TestCreateSubscriptionIntentRejectsUnknownPlan(t *testing.T) {
	h := newBillingHarness(t)

	status, _ := doJSON(t, h.app, "POST", "/api/create-subscription-intent", map[string]string{"planType": "platinum"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := doJSON(t, h.app, "POST", "/api/create-subscription-intent", map[string]string{"planType": "vip", "email": "not-an-email"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", body["error"])
	assert.Zero(t, h.gateway.calls)
}

func TestCreateSubscriptionValidatesInput(t *testing.T) {
	h := newBillingHarness(t)

	status, body := doJSON(t, h.app, "POST", "/api/create-subscription", map[string]string{"email": "jane@example.com"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	details, ok := body["details"].([]interface{})
	require.True(t, ok, "details missing: %v", body)
	assert.Len(t, details, 3)
	assert.Zero(t, h.gateway.calls)
}

func TestCreateSubscriptionRequiresSucceededSetupIntent(t *testing.T) {
	h := newBillingHarness(t)
	h.gateway.setupIntent = &stripe.SetupIntent{ID: "seti_1", Status: stripe.SetupIntentStatusRequiresPaymentMethod}

	status, body := doJSON(t, h.app, "POST", "/api/create-subscription", map[string]string{
		"setup_intent_id":   "seti_1",
		"payment_method_id": "pm_1",
		"price_id":          "price_vip_123",
		"email":             "jane@example.com",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.NotEmpty(t, body["message"])
	assert.Equal(t, 1, h.gateway.calls)
}

func TestInvoicePDFRequiresSubscriptionID(t *testing.T) {
	h := newBillingHarness(t)

	status, body := doJSON(t, h.app, "GET", "/api/get-invoice-pdf", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.NotEmpty(t, body["error"])
}

func signPayload(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

const invoicePaidEvent = `{"id":"evt_ctrl_1","object":"event","api_version":"2023-10-16","type":"invoice.payment_succeeded",
"data":{"object":{"id":"in_1","object":"invoice","customer":"cus_ctrl","customer_email":"jane@example.com",
"subscription":"sub_ctrl","billing_reason":"subscription_create","amount_paid":19900,"currency":"usd","status":"paid",
"lines":{"object":"list","data":[{"id":"il_1","object":"line_item","price":{"id":"price_vip_123","object":"price","product":"prod_vip","unit_amount":19900}}]}}}}`

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestWebhookRejectsForgedSignature(t *testing.T) {
	h := newBillingHarness(t)
	payload := []byte(invoicePaidEvent)

	assert.Equal(t, fiber.StatusBadRequest, postWebhook(t, h.app, payload, ""))
	assert.Equal(t, fiber.StatusBadRequest, postWebhook(t, h.app, payload, signPayload("whsec_wrong", payload)))

	var users, payments int64
	require.NoError(t, h.db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, h.db.Model(&models.Payment{}).Count(&payments).Error)
	assert.Zero(t, users)
	assert.Zero(t, payments)
	assert.Empty(t, h.mails.sent)
}

func TestWebhookReconcilesSignedInvoice(t *testing.T) {
	h := newBillingHarness(t)
	payload := []byte(invoicePaidEvent)

	assert.Equal(t, fiber.StatusOK, postWebhook(t, h.app, payload, signPayload(webhookSecret, payload)))
	assert.Equal(t, fiber.StatusOK, postWebhook(t, h.app, payload, signPayload(webhookSecret, payload)))

	var user models.User
	require.NoError(t, h.db.Where("email = ?", "jane@example.com").First(&user).Error)
	require.NotNil(t, user.SubscriptionID)
	assert.Equal(t, "sub_ctrl", *user.SubscriptionID)
	assert.Equal(t, "VIP Coaching", user.PlanName)

	require.Len(t, h.mails.sent, 1)
	assert.Equal(t, "jane@example.com", h.mails.sent[0].To)
	assert.Equal(t, mail.KindWelcome, h.mails.sent[0].Tag)
}

func TestWebhookAnswersOKWhenProcessingFails(t *testing.T) {
	h := newBillingHarness(t)
	payload := []byte(`{"id":"evt_ctrl_2","object":"event","api_version":"2023-10-16","type":"customer.subscription.updated",
"data":{"object":{"id":"sub_x","object":"subscription","customer":"cus_ctrl","status":"active","metadata":{}}}}`)
	u, err := models.NewCustomer("jane@example.com", "Jane")
	require.NoError(t, err)
	u.LinkCustomer("cus_ctrl")
	require.NoError(t, h.db.Create(u).Error)

	assert.Equal(t, fiber.StatusOK, postWebhook(t, h.app, payload, signPayload(webhookSecret, payload)))
	assert.Empty(t, h.mails.sent)
}
