package review

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var mutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reviews_mutations_total",
		Help: "Successful review mutations by operation",
	},
	[]string{"op"},
)
