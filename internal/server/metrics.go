package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "datasetd_build_info",
		Help: "Build information of the datasetd API server",
	},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datasetd_http_requests_total",
		Help: "Total number of HTTP requests",
	},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datasetd_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	},
		[]string{"route"},
	)

	QueryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datasetd_query_requests_total",
		Help: "Total number of dataset query requests",
	},
		[]string{"dataset_id", "status"},
	)

	QueryRowsReturned = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datasetd_query_rows_returned",
		Help:    "Rows returned per dataset query page",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	},
		[]string{"dataset_id"},
	)
)
