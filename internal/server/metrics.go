package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Pipeline metrics
	ingestRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_requests_total",
			Help: "Total number of OCR ingestion requests",
		},
		[]string{"status"}, // status: success, error
	)

	ingestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_processing_duration_seconds",
			Help:    "End-to-end ingestion pipeline duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25},
		},
	)

	ingestTextLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_ocr_text_length",
			Help:    "Length of recognized text",
			Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000},
		},
	)

	preprocessFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_preprocess_fallback_total",
			Help: "Total number of requests that fell back to the original image",
		},
	)
)
