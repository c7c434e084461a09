package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	codesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "verification",
			Name:      "challenges_issued_total",
			Help:      "Total number of verification challenges issued",
		},
		[]string{"channel", "method"},
	)

	verificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "verification",
			Name:      "attempts_total",
			Help:      "Total number of verification attempts",
		},
		[]string{"method", "result"}, // result: success/failure
	)

	rateLimitsHit = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "verification",
			Name:      "rate_limits_hit_total",
			Help:      "Total number of rate limit violations",
		},
		[]string{"channel"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "delivery",
			Name:      "notifications_total",
			Help:      "Total number of notification delivery attempts",
		},
		[]string{"channel", "status"}, // status: sent/failed
	)

	broadcastsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "delivery",
			Name:      "broadcasts_completed_total",
			Help:      "Total number of completed broadcast send passes",
		},
		[]string{"status"}, // sent/partial/failed
	)

	keyRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "keyring",
			Name:      "rotations_total",
			Help:      "Total number of RSA keypair rotations",
		},
	)
)
