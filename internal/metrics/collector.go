// Package metrics exposes internal/stats as Prometheus metrics. It is the
// only package under internal/ that imports client_golang: the core
// stats component stays dependency-free so it can run on the hot path
// without pulling in a metrics client's own allocation and locking
// behavior.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brightline-markets/feedcore/internal/stats"
)

// Collector adapts a *stats.Stats into a prometheus.Collector, polling a
// Snapshot on every scrape rather than maintaining its own counters.
type Collector struct {
	stats *stats.Stats

	totalMessages     *prometheus.Desc
	messagesByKind    *prometheus.Desc
	totalGaps         *prometheus.Desc
	crossedBooks      *prometheus.Desc
	decodeLatency     *prometheus.Desc
	bookUpdateLatency *prometheus.Desc
}

// New returns a Collector over s, namespacing metric names as
// feedcore_<name>.
func New(s *stats.Stats) *Collector {
	return &Collector{
		stats:          s,
		totalMessages:  prometheus.NewDesc("feedcore_messages_total", "Total messages applied.", nil, nil),
		messagesByKind: prometheus.NewDesc("feedcore_messages_by_kind_total", "Messages applied, by kind.", []string{"kind"}, nil),
		totalGaps:      prometheus.NewDesc("feedcore_sequence_gaps_current", "Current count of sequence numbers known to be missing.", nil, nil),
		crossedBooks:   prometheus.NewDesc("feedcore_crossed_books_total", "Times the book was observed crossed.", nil, nil),
		decodeLatency:  prometheus.NewDesc("feedcore_decode_latency_us", "Decode latency percentile, microseconds.", []string{"quantile"}, nil),
		bookUpdateLatency: prometheus.NewDesc(
			"feedcore_book_update_latency_us", "Book update latency percentile, microseconds.", []string{"quantile"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalMessages
	ch <- c.messagesByKind
	ch <- c.totalGaps
	ch <- c.crossedBooks
	ch <- c.decodeLatency
	ch <- c.bookUpdateLatency
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	report := c.stats.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.totalMessages, prometheus.CounterValue, float64(report.TotalMessages))
	ch <- prometheus.MustNewConstMetric(c.totalGaps, prometheus.GaugeValue, float64(report.TotalGaps))
	ch <- prometheus.MustNewConstMetric(c.crossedBooks, prometheus.CounterValue, float64(report.CrossedBooks))

	for kind, count := range report.MessagesByKind {
		ch <- prometheus.MustNewConstMetric(c.messagesByKind, prometheus.CounterValue, float64(count), kind.String())
	}

	emitLatency := func(desc *prometheus.Desc, p stats.LatencyPercentiles) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, p.P50, "p50")
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, p.P90, "p90")
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, p.P99, "p99")
	}
	emitLatency(c.decodeLatency, report.DecodeLatency)
	emitLatency(c.bookUpdateLatency, report.BookUpdateLatency)
}
