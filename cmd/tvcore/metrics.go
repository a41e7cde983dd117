package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hdhrcore/tvcore/internal/asyncsaver"
	"github.com/hdhrcore/tvcore/internal/stream"
)

// engineMetrics wires github.com/prometheus/client_golang into the four
// series SPEC_FULL.md §4.9 calls for: subscription byte counters, service
// status transitions, filter-pass duration, and AsyncSaver queue depth.
// It is metrics only; no control endpoints ride alongside it.
type engineMetrics struct {
	subscriptionBytes *prometheus.CounterVec
	serviceStatus     *prometheus.CounterVec
	filterDuration    prometheus.Histogram
}

func newEngineMetrics(saver *asyncsaver.Saver) *engineMetrics {
	m := &engineMetrics{
		subscriptionBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tvcore_subscription_bytes_total",
			Help: "Cumulative payload bytes delivered to a subscription.",
		}, []string{"service"}),
		serviceStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tvcore_service_status_total",
			Help: "Count of SERVICE_STATUS transitions observed per service.",
		}, []string{"service", "status"}),
		filterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tvcore_filter_pass_duration_seconds",
			Help:    "Duration of one ElementaryStreamFilter.Apply pass.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	queueDepth := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tvcore_asyncsaver_queue_depth",
		Help: "Number of services currently queued for a config save.",
	}, func() float64 { return float64(saver.Len()) })

	prometheus.MustRegister(m.subscriptionBytes, m.serviceStatus, m.filterDuration, queueDepth)
	return m
}

// serve starts the /metrics HTTP endpoint in the background if addr is
// non-empty.
func (m *engineMetrics) serve(addr string, logf func(format string, args ...any)) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logf("metrics: server exited: %v", err)
		}
	}()
}

// tap is a narrow stream.Target attached directly to a Service's Pad so
// metrics observe every PACKET/MPEGTS/SERVICE_STATUS message without
// routing through a subscriber's own delivery path.
type tap struct {
	m         *engineMetrics
	serviceID string
}

func (m *engineMetrics) attach(svc *stream.Service) *tap {
	t := &tap{m: m, serviceID: svc.ID}
	svc.Pad.Attach(t)
	return t
}

func (t *tap) Deliver(msg *stream.StreamingMessage) error {
	switch msg.Kind {
	case stream.MsgPacket:
		if msg.Pkt != nil {
			t.m.subscriptionBytes.WithLabelValues(t.serviceID).Add(float64(len(msg.Pkt.Data)))
		}
	case stream.MsgMPEGTS:
		t.m.subscriptionBytes.WithLabelValues(t.serviceID).Add(float64(len(msg.MPEGTS)))
	case stream.MsgServiceStatus:
		t.m.serviceStatus.WithLabelValues(t.serviceID, fmt.Sprintf("%d", msg.ServiceStatus)).Inc()
	}
	return nil
}
