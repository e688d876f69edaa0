package constants

// Route constants
const (
	PublicRoute = "/"
	APIRoute    = "/api"
	DocsRoute   = "/docs/api/"
	MetricsPath = "/metrics"

	// Stripe posts here; the path is configured in the Stripe dashboard.
	WebhookPath = APIRoute + "/webhook"

	// Checkout success/cancel pages of the SPA, relative to APP_BASE_URL.
	SuccessPath = "/success"
	PricingPath = "/#pricing"
)
