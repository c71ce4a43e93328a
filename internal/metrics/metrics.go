// Package metrics holds the Prometheus counters for the statement
// delivery lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Uploads by result: created, rejected, failed
	uploadCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statement_uploads_total",
			Help: "Total number of statement uploads, by result.",
		},
		[]string{"result"},
	)

	downloadLinkCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statement_download_links_total",
			Help: "Total number of download links issued.",
		},
	)

	// Redemptions by outcome (ok, not_found, forbidden) and internal reason
	redemptionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statement_redemptions_total",
			Help: "Total number of download link redemptions, by outcome and reason.",
		},
		[]string{"outcome", "reason"},
	)

	rateLimitedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statement_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter, by purpose.",
		},
		[]string{"purpose"},
	)
)

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncUpload(result string) {
	uploadCount.WithLabelValues(result).Inc()
}

func IncDownloadLink() {
	downloadLinkCount.Inc()
}

// IncRedemption counts a redemption. reason is empty for successful ones.
func IncRedemption(outcome, reason string) {
	if reason == "" {
		reason = "none"
	}
	redemptionCount.WithLabelValues(outcome, reason).Inc()
}

func IncRateLimited(purpose string) {
	rateLimitedCount.WithLabelValues(purpose).Inc()
}
