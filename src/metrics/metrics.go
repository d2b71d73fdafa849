package metrics

import (
	"net/http"
	"time"

	"live-stats/src/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message outcomes reported by the sync core.
const (
	ResultApplied   = "applied"
	ResultDuplicate = "duplicate"
	ResultMalformed = "malformed"
	ResultRejected  = "rejected"
	ResultIgnored   = "ignored"
	ResultUnchanged = "unchanged"
)

// -----------------------------------------------------------------------------

// Collector owns a private registry so tests can create as many as they like.
// A nil *Collector is valid and records nothing.
type Collector struct {
	Registry *prometheus.Registry

	messages      *prometheus.CounterVec
	reconnects    prometheus.Counter
	backoffDelay  prometheus.Histogram
	pollFetches   *prometheus.CounterVec
	status        *prometheus.GaugeVec
	dedupSize     prometheus.Gauge
	overlays      prometheus.Gauge
	fetchDuration prometheus.Histogram
}

// -----------------------------------------------------------------------------

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		Registry: reg,
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "live_stats_stream_messages_total",
			Help: "Stream messages by outcome",
		}, []string{"result"}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "live_stats_reconnects_total",
			Help: "Reconnects scheduled after a stream failure",
		}),
		backoffDelay: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "live_stats_backoff_delay_seconds",
			Help:    "Scheduled reconnect delays",
			Buckets: []float64{1, 2, 4, 8, 16, 31},
		}),
		pollFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "live_stats_poll_fetches_total",
			Help: "Snapshot fetches by outcome",
		}, []string{"result"}),
		status: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "live_stats_connection_status",
			Help: "1 for the current connection status, 0 otherwise",
		}, []string{"status"}),
		dedupSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "live_stats_dedup_window_size",
			Help: "Ids currently held by the duplicate window",
		}),
		overlays: factory.NewGauge(prometheus.GaugeOpts{
			Name: "live_stats_pending_overlays",
			Help: "Optimistic overlays awaiting confirmation",
		}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "live_stats_fetch_duration_seconds",
			Help:    "Full snapshot fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// -----------------------------------------------------------------------------

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

// -----------------------------------------------------------------------------

func (c *Collector) Message(result string) {
	if c == nil {
		return
	}
	c.messages.WithLabelValues(result).Inc()
}

// -----------------------------------------------------------------------------

func (c *Collector) Reconnect(delay time.Duration) {
	if c == nil {
		return
	}
	c.reconnects.Inc()
	c.backoffDelay.Observe(delay.Seconds())
}

// -----------------------------------------------------------------------------

// Fetch records one snapshot fetch (initial or poll).
func (c *Collector) Fetch(took time.Duration, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.pollFetches.WithLabelValues(result).Inc()
	c.fetchDuration.Observe(took.Seconds())
}

// -----------------------------------------------------------------------------

func (c *Collector) SetStatus(current models.ConnectionStatus) {
	if c == nil {
		return
	}
	for _, s := range models.AllStatuses {
		v := 0.0
		if s == current {
			v = 1
		}
		c.status.WithLabelValues(string(s)).Set(v)
	}
}

// -----------------------------------------------------------------------------

func (c *Collector) SetDedupSize(n int) {
	if c == nil {
		return
	}
	c.dedupSize.Set(float64(n))
}

// -----------------------------------------------------------------------------

func (c *Collector) SetPendingOverlays(n int) {
	if c == nil {
		return
	}
	c.overlays.Set(float64(n))
}
