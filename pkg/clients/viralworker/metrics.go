package viralworker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/USBABC1/V75VIRAL/pkg/api/viralworker"
	"github.com/USBABC1/V75VIRAL/pkg/monitoring"
)

// Metrics instruments the worker client. All methods are nil-safe so an
// uninstrumented client costs nothing.
type Metrics struct {
	searches *prometheus.CounterVec
	images   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the client's metrics on the given collector.
func NewMetrics(mc *monitoring.MetricsCollector) *Metrics {
	return &Metrics{
		searches: mc.NewCounter("viral_searches_total", "Total viral searches by outcome", []string{"outcome"}),
		images:   mc.NewCounter("viral_images_total", "Viral image downloads by status", []string{"status"}),
		duration: mc.NewHistogram("viral_search_duration_seconds", "Viral search duration", []string{"outcome"}, nil),
	}
}

func (m *Metrics) observeSearch(result *viralworker.SearchResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if result.FallbackUsed {
		outcome = "fallback"
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) imageSaved() {
	if m == nil {
		return
	}
	m.images.WithLabelValues("saved").Inc()
}

func (m *Metrics) imageFailed() {
	if m == nil {
		return
	}
	m.images.WithLabelValues("failed").Inc()
}
