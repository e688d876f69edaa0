package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(max int) *fiber.App {
	app := fiber.New()
	api := app.Group("/api", New(Config{Max: max, Expiration: time.Minute}))
	api.Get("/plans", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	api.Post("/webhook", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func TestLimiterRejectsAfterMax(t *testing.T) {
	app := newApp(2)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/plans", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/plans", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestLimiterSkipsWebhook(t *testing.T) {
	app := newApp(1)

	for _, path := range []string{"/api/webhook", "/api/webhook/", "/api/Webhook"} {
		for i := 0; i < 3; i++ {
			resp, err := app.Test(httptest.NewRequest("POST", path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode, "%s attempt %d", path, i+1)
		}
	}

	// the limiter still counts other routes
	resp, err := app.Test(httptest.NewRequest("GET", "/api/plans", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, err = app.Test(httptest.NewRequest("GET", "/api/plans/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestIsWebhook(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/api/webhook", true},
		{"/api/webhook/", true},
		{"/api/webhook//", true},
		{"/API/WEBHOOK", true},
		{"/api/webhooks", false},
		{"/api/plans", false},
		{"/webhook", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isWebhook(tt.path), tt.path)
	}
}
