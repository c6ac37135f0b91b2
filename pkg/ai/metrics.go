package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "stage_duration_seconds",
		Help:      "Duration of model calls per grading stage",
	}, []string{"provider", "stage"})

	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "stage_failures_total",
		Help:      "Number of failed model calls per grading stage",
	}, []string{"provider", "stage"})
)
