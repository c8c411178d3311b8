package relay

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics はリレーサーバーのPrometheusメトリクス。
type metrics struct {
	// outcomes は終端の結果ごとのリクエスト数。
	outcomes *prometheus.CounterVec
	// downstreamRequests はGhost呼び出しのステータス別の回数。
	downstreamRequests *prometheus.CounterVec
	// downstreamDuration はGhost呼び出しの所要時間。
	downstreamDuration *prometheus.HistogramVec
}

// newMetrics はregにメトリクスを登録する。
func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		outcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "signup_relay_outcomes_total",
				Help: "Total number of relay requests by terminal outcome.",
			}, []string{"outcome"},
		),
		downstreamRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "signup_relay_downstream_requests_total",
				Help: "Total number of Ghost Admin API requests by status code.",
			}, []string{"code", "method"},
		),
		downstreamDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signup_relay_downstream_request_duration_seconds",
				Help:    "Latency of Ghost Admin API requests.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method"},
		),
	}
}

// observe は終端の結果を記録する。
func (m *metrics) observe(kind OutcomeKind) {
	m.outcomes.WithLabelValues(kind.String()).Inc()
}

// instrumentRoundTripper はGhost呼び出しを計測するRoundTripperを返す。
func (m *metrics) instrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperCounter(m.downstreamRequests,
		promhttp.InstrumentRoundTripperDuration(m.downstreamDuration, next),
	)
}
