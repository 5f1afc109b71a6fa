// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "smsgateway"

var (
	SMSMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_messages_total",
			Help:      "SMS messages recorded, by status.",
		},
		[]string{"status"}, // sent, failed, unbilled
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sms_dispatch_duration_seconds",
			Help:      "Duration of gateway dispatch calls.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ChargedMinor = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_charged_minor_total",
			Help:      "Wallet amount charged for sent messages, in minor units.",
		},
	)

	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_dispatch_failures_total",
			Help:      "Wholesale dispatch failures, by reason.",
		},
		[]string{"reason"}, // transport, missing_payload, unparseable, all_failed
	)

	PromoApplications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_applications_total",
			Help:      "Promo code applications, by result.",
		},
		[]string{"result"},
	)

	WalletTopups = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_topups_total",
			Help:      "Successful wallet topups.",
		},
	)

	BalanceStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "balance_stream_connections",
			Help:      "Open websocket balance streams.",
		},
	)

	BalanceUpdatesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_updates_dropped_total",
			Help:      "Balance updates skipped because a client was not keeping up.",
		},
	)
)
