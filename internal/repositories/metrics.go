package repositories

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var invariantRepairs = promauto.NewCounter(prometheus.CounterOpts{
	Name: "nest_post_invariant_repairs_total",
	Help: "Posts read with counts that disagreed with their membership sets",
})
