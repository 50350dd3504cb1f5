package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics groups the regression counters on one registerer so tests can use
// a private registry.
type Metrics struct {
	events  *prometheus.CounterVec
	records *prometheus.CounterVec
	latency prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "regresser_events_total",
			Help: "Events processed by the regression stage, by result.",
		}, []string{"result"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "regresser_records_total",
			Help: "Electrons published, by slot.",
		}, []string{"slot"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "regresser_event_seconds",
			Help:    "Wall time to decode, correct and publish one event.",
			Buckets: prometheus.ExponentialBuckets(50e-6, 2, 14),
		}),
	}
	reg.MustRegister(m.events, m.records, m.latency)
	return m
}

var Default = NewMetrics(prometheus.DefaultRegisterer)

func (m *Metrics) ObserveEvent(result string, d time.Duration) {
	m.events.WithLabelValues(result).Inc()
	m.latency.Observe(d.Seconds())
}

// Records matches stage.RecordObserver.
func (m *Metrics) Records(slot string, n int) {
	m.records.WithLabelValues(slot).Add(float64(n))
}

// Expose serves /metrics from the default gatherer. A listener that fails
// to come up is reported on log; Shutdown is not.
func Expose(port int, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics: listen", "addr", srv.Addr, "err", err)
		}
	}()
	return srv
}
