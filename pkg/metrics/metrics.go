// Package metrics provides Prometheus metrics for the wallet client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "novafund"

// Metrics holds the collectors of one registry.
type Metrics struct {
	registry *prometheus.Registry

	// Synchronization
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	Campaigns       prometheus.Gauge
	TotalRaisedEth  prometheus.Gauge

	// Transactions
	Transactions *prometheus.CounterVec

	// Session
	WalletConnected prometheus.Gauge
	Notifications   *prometheus.CounterVec
}

// New creates a Metrics instance on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "refreshes_total",
			Help:      "Total number of refresh passes by status",
		}, []string{"status"}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of successful refresh passes in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		Campaigns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "campaigns",
			Help:      "Number of campaigns in the last snapshot",
		}),
		TotalRaisedEth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "total_raised_eth",
			Help:      "Sum raised across campaigns in the last snapshot, in ETH",
		}),
		Transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contract",
			Name:      "transactions_total",
			Help:      "Total number of submitted transactions by method and outcome",
		}, []string{"method", "outcome"}),
		WalletConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "connected",
			Help:      "1 while a wallet session is connected on a supported network",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ui",
			Name:      "notifications_total",
			Help:      "Total number of user notifications by severity",
		}, []string{"severity"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRefresh(d time.Duration, campaigns uint64, totalRaisedEth float64) {
	m.Refreshes.WithLabelValues("ok").Inc()
	m.RefreshDuration.Observe(d.Seconds())
	m.Campaigns.Set(float64(campaigns))
	m.TotalRaisedEth.Set(totalRaisedEth)
}

func (m *Metrics) RecordRefreshFailure() {
	m.Refreshes.WithLabelValues("error").Inc()
}

// RecordTransaction counts a submission; outcome is "confirmed", "reverted",
// "rejected" or "failed".
func (m *Metrics) RecordTransaction(method, outcome string) {
	m.Transactions.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) SetConnected(connected bool) {
	if connected {
		m.WalletConnected.Set(1)
		return
	}
	m.WalletConnected.Set(0)
}

func (m *Metrics) RecordNotification(severity string) {
	m.Notifications.WithLabelValues(severity).Inc()
}
