package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// Global controller instances, set once at startup.
var (
	billingController *BillingController
	formsController   *FormsController
	pagesController   *PagesController
)

// InitializeControllers installs the controllers the adapters below delegate to.
func InitializeControllers(billing *BillingController, forms *FormsController, pages *PagesController) {
	billingController = billing
	formsController = forms
	pagesController = pages
}

// Adapter functions used by the router

func HandleCheckout(c *fiber.Ctx) error {
	return billingController.HandleCheckout(c)
}

func HandleCreateSubscriptionIntent(c *fiber.Ctx) error {
	return billingController.HandleCreateSubscriptionIntent(c)
}

func HandleCheckExistingSubscription(c *fiber.Ctx) error {
	return billingController.HandleCheckExistingSubscription(c)
}

func HandleCreateSubscription(c *fiber.Ctx) error {
	return billingController.HandleCreateSubscription(c)
}

func HandleInvoicePDF(c *fiber.Ctx) error {
	return billingController.HandleInvoicePDF(c)
}

func HandleCheckoutSuccess(c *fiber.Ctx) error {
	return billingController.HandleSuccess(c)
}

func HandleStripeWebhook(c *fiber.Ctx) error {
	return billingController.HandleStripeWebhook(c)
}

func HandleGetForm(c *fiber.Ctx) error {
	return formsController.HandleGetForm(c)
}

func HandleListUserForms(c *fiber.Ctx) error {
	return formsController.HandleListUserForms(c)
}

func HandleSubmitForm(c *fiber.Ctx) error {
	return formsController.HandleSubmitForm(c)
}

func HandleUpdateForm(c *fiber.Ctx) error {
	return formsController.HandleUpdateForm(c)
}

func RenderIndex(c *fiber.Ctx) error {
	return pagesController.RenderIndex(c)
}

func HandlePlans(c *fiber.Ctx) error {
	return pagesController.HandlePlans(c)
}
