package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bx24report/internal/bx24"
)

// OutcomeOK labels a call that returned no error descriptor.
const OutcomeOK = "ok"

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Calls        *prometheus.CounterVec
	CallLatency  *prometheus.HistogramVec
	HTTPRequests *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "REST method calls by method and outcome.",
		}, []string{"method", "outcome"}),
		CallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_latency_ms",
			Help:      "Latency from CallMethod to callback in milliseconds.",
			Buckets:   []float64{10, 50, 100, 250, 500, 750, 1000, 2000, 5000},
		}, []string{"method"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Development server requests by route and status.",
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) ObserveCall(method, outcome string, d time.Duration) {
	m.Calls.WithLabelValues(method, outcome).Inc()
	m.CallLatency.WithLabelValues(method).Observe(float64(d.Milliseconds()))
}

func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// InstrumentedClient records call metrics around another bx24.Client.
type InstrumentedClient struct {
	bx24.Client
	metrics *Metrics
}

func Instrument(c bx24.Client, m *Metrics) *InstrumentedClient {
	return &InstrumentedClient{Client: c, metrics: m}
}

func (c *InstrumentedClient) CallMethod(method string, params bx24.Params, cb bx24.Callback) {
	start := time.Now()
	c.Client.CallMethod(method, params, func(r bx24.Result) {
		outcome := OutcomeOK
		if e := r.Error(); e != nil {
			outcome = e.Code
		}
		c.metrics.ObserveCall(method, outcome, time.Since(start))
		if cb != nil {
			cb(r)
		}
	})
}
