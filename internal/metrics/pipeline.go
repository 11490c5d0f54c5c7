package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline metrics.
var (
	ScrapesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_total",
			Help:      "Product page scrapes by fetcher and outcome",
		},
		[]string{"fetcher", "result"},
	)

	ScrapeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Fetch plus extraction time in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"fetcher"},
	)

	ExtractionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Extraction failures by field and reason",
		},
		[]string{"field", "reason"},
	)

	SelectorMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selector_matches_total",
			Help:      "Winning selector candidate per field",
		},
		[]string{"field", "candidate"},
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answered questions by model and outcome",
		},
		[]string{"model", "result"},
	)

	AnswerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "Question answering time in seconds, inference included",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(
		ScrapesTotal,
		ScrapeDuration,
		ExtractionFailuresTotal,
		SelectorMatchesTotal,
		AnswersTotal,
		AnswerDuration,
	)
}

// Outcome labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// ObserveScrape records one scrape.
func ObserveScrape(fetcher string, d time.Duration, err error) {
	ScrapesTotal.WithLabelValues(fetcher, result(err)).Inc()
	ScrapeDuration.WithLabelValues(fetcher).Observe(d.Seconds())
}

// ObserveExtractionFailure records a field that could not be extracted.
func ObserveExtractionFailure(field, reason string) {
	ExtractionFailuresTotal.WithLabelValues(field, reason).Inc()
}

// ObserveSelectorMatch records which fallback candidate matched a field.
func ObserveSelectorMatch(field string, candidate int) {
	SelectorMatchesTotal.WithLabelValues(field, strconv.Itoa(candidate)).Inc()
}

// ObserveAnswer records one answered (or failed) question.
func ObserveAnswer(model string, d time.Duration, err error) {
	AnswersTotal.WithLabelValues(model, result(err)).Inc()
	AnswerDuration.WithLabelValues(model).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
