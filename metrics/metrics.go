// Package metrics exposes Prometheus counters and gauges that
// supplement the per-rank traffic accounting original_source's
// MessageBuffer::printStats printed to stderr: messages sent, summands
// sent, and the average summands carried per message.
package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stelzch/binary-tree-summation/substrate"
)

// Collector tracks one rank's outgoing message traffic.
type Collector struct {
	registry *prometheus.Registry

	messagesSent prometheus.Counter
	summandsSent prometheus.Counter
	rank         prometheus.Gauge

	messagesSentCount int64
	summandsSentCount int64
}

// NewCollector creates a Collector with its own registry, labeled with
// the given rank so a scrape of a multi-process run can tell ranks
// apart.
func NewCollector(rank int) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reprosum",
			Name:      "messages_sent_total",
			Help:      "Number of point-to-point messages sent by this rank's reduction driver.",
			ConstLabels: prometheus.Labels{
				"rank": strconv.Itoa(rank),
			},
		}),
		summandsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reprosum",
			Name:      "summands_sent_total",
			Help:      "Number of floating-point summands carried across all messages sent by this rank.",
			ConstLabels: prometheus.Labels{
				"rank": strconv.Itoa(rank),
			},
		}),
		rank: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reprosum",
			Name:      "rank",
			Help:      "This process's rank within the reduction.",
		}),
	}
	c.rank.Set(float64(rank))
	registry.MustRegister(c.messagesSent, c.summandsSent, c.rank)
	return c
}

// RecordSend accounts for one outgoing message carrying n summands,
// mirroring MessageBuffer::send's bookkeeping.
func (c *Collector) RecordSend(n int) {
	c.messagesSent.Inc()
	c.summandsSent.Add(float64(n))
	atomic.AddInt64(&c.messagesSentCount, 1)
	atomic.AddInt64(&c.summandsSentCount, int64(n))
}

// Snapshot returns the counters gathered so far, for printing a final
// summary the way MessageBuffer::printStats did.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		MessagesSent: atomic.LoadInt64(&c.messagesSentCount),
		SummandsSent: atomic.LoadInt64(&c.summandsSentCount),
	}
}

// Handler returns an http.Handler that serves this collector's metrics
// in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Snapshot holds the counters gathered so far.
type Snapshot struct {
	MessagesSent int64
	SummandsSent int64
}

// AverageSummandsPerMessage returns SummandsSent / MessagesSent, or 0
// if no messages were sent.
func (s Snapshot) AverageSummandsPerMessage() float64 {
	if s.MessagesSent == 0 {
		return 0
	}
	return float64(s.SummandsSent) / float64(s.MessagesSent)
}

// instrumented wraps a substrate.Substrate, recording every
// SendDoubles call's summand count against a Collector. Everything
// else passes straight through.
type instrumented struct {
	substrate.Substrate
	collector *Collector
}

// Wrap returns sub with its SendDoubles calls counted by collector, so
// a reduction driver's traffic is observable without the driver itself
// knowing about metrics.
func Wrap(sub substrate.Substrate, collector *Collector) substrate.Substrate {
	return &instrumented{Substrate: sub, collector: collector}
}

func (i *instrumented) SendDoubles(dst int, tag int, vec []float64) {
	i.collector.RecordSend(len(vec))
	i.Substrate.SendDoubles(dst, tag, vec)
}
