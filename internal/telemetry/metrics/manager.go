package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests           *prometheus.CounterVec
	CounterSuggestionsCreated prometheus.Counter
	CounterSuggestionRaces    prometheus.Counter
	CounterHealthReports      prometheus.Counter
	CounterProviderErrors     *prometheus.CounterVec
	CounterJobUserErrors      prometheus.Counter
	CounterHandleRequestPanic prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter

	// gauges
	GaugeLifeSignal prometheus.Gauge
	GaugeRequests   prometheus.Gauge

	// histograms
	HistDailyJobDuration     prometheus.Histogram
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("axle", "test_server", prometheus.NewRegistry())
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterSuggestionsCreated := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "suggestions_created",
		Help:      "The total number of daily workout suggestions created",
	})
	counterSuggestionRaces := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "suggestion_insert_races",
		Help:      "Suggestion inserts lost to a benign concurrent duplicate",
	})
	counterHealthReports := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "health_reports_written",
		Help:      "The total number of daily health reports upserted",
	})
	counterProviderErrors := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "wearable_provider_errors",
		Help:      "Wearable provider fetch failures",
	}, []string{"provider"})
	counterJobUserErrors := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "daily_job_user_errors",
		Help:      "Per-user failures inside the daily suggestion job",
	})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterRateLimitedRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of rate limited requests",
	})

	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows whether the service is alive",
	})
	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "requests",
		Help:      "The current number of open connections",
	})

	histDailyJobDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.1, 1, 5, 10, 30, 60, 120, 300, 600, 1800,
			},
			Name: "daily_job_duration_seconds",
			Help: "Total duration of a single daily suggestion job run in seconds",
		},
	)

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "status_code"})

	return &Manager{
		CounterRequests:            counterRequests,
		CounterSuggestionsCreated:  counterSuggestionsCreated,
		CounterSuggestionRaces:     counterSuggestionRaces,
		CounterHealthReports:       counterHealthReports,
		CounterProviderErrors:      counterProviderErrors,
		CounterJobUserErrors:       counterJobUserErrors,
		CounterHandleRequestPanic:  counterHandleRequestPanic,
		CounterRateLimitedRequests: counterRateLimitedRequests,
		GaugeLifeSignal:            gaugeLifeSignal,
		GaugeRequests:              gaugeRequests,
		HistDailyJobDuration:       histDailyJobDuration,
		HistogramRequestDuration:   histogramRequestDuration,
	}
}
