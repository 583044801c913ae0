package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	interactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nest_interactions_total",
		Help: "Like and retweet membership changes by kind, mode and result",
	}, []string{"kind", "mode", "result"})

	projectorCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nest_retweet_compensations_total",
		Help: "Retweet membership rollbacks after a failed projection",
	}, []string{"outcome"})

	feedItemsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nest_feed_items_dropped_total",
		Help: "Feed entries omitted during assembly by reason",
	}, []string{"reason"})

	feedAssemblySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nest_feed_assembly_seconds",
		Help:    "Time spent resolving and annotating a feed page",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
	})
)
