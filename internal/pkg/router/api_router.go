package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fitcoach/fitcoach/app/controllers"
	"github.com/fitcoach/fitcoach/internal/pkg/constants"
	"github.com/fitcoach/fitcoach/internal/pkg/ratelimit"
)

type ApiRouter struct {
	limit ratelimit.Config
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, ratelimit.New(h.limit))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	api.Get("/plans", controllers.HandlePlans)

	// Checkout and subscriptions
	api.Post("/checkout", controllers.HandleCheckout)
	api.Post("/create-subscription-intent", controllers.HandleCreateSubscriptionIntent)
	api.Post("/check-existing-subscription", controllers.HandleCheckExistingSubscription)
	api.Post("/create-subscription", controllers.HandleCreateSubscription)
	api.Get("/get-invoice-pdf", controllers.HandleInvoicePDF)
	api.Get("/success", controllers.HandleCheckoutSuccess)

	// Stripe webhook, raw body
	api.Post("/webhook", controllers.HandleStripeWebhook)

	// Forms; the user listing must be registered before /:formId
	forms := api.Group("/forms")
	forms.Get("/user/:userId", controllers.HandleListUserForms)
	forms.Get("/:formId", controllers.HandleGetForm)
	forms.Post("/:formId/submit", controllers.HandleSubmitForm)
	forms.Post("/:formId/update", controllers.HandleUpdateForm)
}

func NewApiRouter(limit ratelimit.Config) *ApiRouter {
	return &ApiRouter{limit: limit}
}
