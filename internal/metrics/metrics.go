package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "losb",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	webhookUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "losb",
			Name:      "webhook_updates_total",
			Help:      "Telegram webhook updates by outcome.",
		},
		[]string{"outcome"},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "losb",
			Name:      "phone_verifications_total",
			Help:      "Phone verification attempts by result.",
		},
		[]string{"result"},
	)

	smsSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "losb",
			Name:      "sms_send_total",
			Help:      "SMS delivery attempts by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, webhookUpdates, verifications, smsSends)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncWebhook counts a processed webhook update: "ok", "skipped", "malformed",
// "forbidden" or "error".
func IncWebhook(outcome string) {
	webhookUpdates.WithLabelValues(outcome).Inc()
}

// IncVerification counts a verification attempt result.
func IncVerification(result string) {
	verifications.WithLabelValues(result).Inc()
}

// IncSMS counts an SMS delivery attempt result.
func IncSMS(result string) {
	smsSends.WithLabelValues(result).Inc()
}
