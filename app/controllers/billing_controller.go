package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fitcoach/fitcoach/internal/pkg/billing"
)

type BillingController struct {
	checkout *billing.Checkout
	service  *billing.Service
}

func NewBillingController(checkout *billing.Checkout, service *billing.Service) *BillingController {
	return &BillingController{checkout: checkout, service: service}
}

// HandleCheckout creates a hosted checkout session for a plan.
func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	var req billing.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
	}
	res, err := bc.checkout.CreateCheckoutSession(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

func (bc *BillingController) HandleCreateSubscriptionIntent(c *fiber.Ctx) error {
	var req billing.IntentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := bc.checkout.CreateSubscriptionIntent(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

func (bc *BillingController) HandleCheckExistingSubscription(c *fiber.Ctx) error {
	var req struct {
		CustomerID string `json:"customer_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
	}
	res, err := bc.checkout.CheckExistingSubscription(c.UserContext(), req.CustomerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

func (bc *BillingController) HandleCreateSubscription(c *fiber.Ctx) error {
	var req billing.CreateSubscriptionRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := bc.checkout.CreateSubscription(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

func (bc *BillingController) HandleInvoicePDF(c *fiber.Ctx) error {
	res, err := bc.checkout.GetInvoicePDF(c.UserContext(), c.Query("subscription_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// HandleSuccess is the read-only session lookup behind the checkout success page.
func (bc *BillingController) HandleSuccess(c *fiber.Ctx) error {
	res, err := bc.checkout.LookupSession(c.UserContext(), c.Query("session_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// HandleStripeWebhook verifies and reconciles one Stripe delivery. Once the
// signature checks out the answer is always 200, so Stripe does not retry
// events that failed locally.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.Body()...)
	signature := c.Get("Stripe-Signature")

	outcome, err := bc.service.HandleWebhook(c.UserContext(), rawBody, signature)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"received":  true,
		"duplicate": outcome.Duplicate,
		"ignored":   outcome.Ignored,
	})
}
