// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksProcessedTotal   *prometheus.CounterVec
	tasksCreatedTotal     *prometheus.CounterVec
	restaurantsSavedTotal prometheus.Counter
	reviewsSavedTotal     prometheus.Counter
	fetchDurationSeconds  prometheus.Histogram
	fetchFailuresTotal    prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call this
// function multiple times.
func Init() {
	once.Do(func() {
		tasksProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_tasks_processed_total",
				Help: "Total task transitions attempted, labeled by task type and outcome.",
			},
			[]string{"type", "outcome"},
		)

		tasksCreatedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_tasks_created_total",
				Help: "Total follow-up tasks created, labeled by task type.",
			},
			[]string{"type"},
		)

		restaurantsSavedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_restaurants_saved_total",
				Help: "Total restaurant records persisted.",
			},
		)

		reviewsSavedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_reviews_saved_total",
				Help: "Total review records persisted.",
			},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		)

		fetchFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_fetch_failures_total",
				Help: "Total page fetches that returned an error.",
			},
		)
	})
}

// TaskProcessed records one task transition attempt.
func TaskProcessed(taskType, outcome string) {
	if tasksProcessedTotal == nil {
		return
	}
	tasksProcessedTotal.WithLabelValues(taskType, outcome).Inc()
}

// TasksCreated records follow-up tasks entering the store.
func TasksCreated(taskType string, n int) {
	if tasksCreatedTotal == nil || n == 0 {
		return
	}
	tasksCreatedTotal.WithLabelValues(taskType).Add(float64(n))
}

// RecordsSaved records persisted domain rows.
func RecordsSaved(restaurants, reviews int) {
	if restaurantsSavedTotal == nil {
		return
	}
	restaurantsSavedTotal.Add(float64(restaurants))
	reviewsSavedTotal.Add(float64(reviews))
}

// ObserveFetch records the duration of one fetch attempt.
func ObserveFetch(d time.Duration, err error) {
	if fetchDurationSeconds == nil {
		return
	}
	fetchDurationSeconds.Observe(d.Seconds())
	if err != nil {
		fetchFailuresTotal.Inc()
	}
}
