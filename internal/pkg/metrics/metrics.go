// Package metrics exposes prometheus collectors for billing webhooks and
// customer notifications.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeSent      = "sent"
)

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitcoach",
			Name:      "webhook_events_total",
			Help:      "Billing webhook deliveries by event type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitcoach",
			Name:      "notifications_total",
			Help:      "Transactional emails by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(webhookEventsTotal)
	prometheus.MustRegister(notificationsTotal)
}

// ObserveWebhook counts one webhook delivery.
func ObserveWebhook(eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// ObserveNotification counts one send attempt; a nil error counts as sent.
func ObserveNotification(kind string, err error) {
	outcome := OutcomeSent
	if err != nil {
		outcome = OutcomeFailed
	}
	notificationsTotal.WithLabelValues(kind, outcome).Inc()
}

// Handler serves the default registry in the prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
