package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "social_service_requests_total",
		Help: "The total number of requests",
	})

	ResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "social_service_responses_total",
		Help: "The total number of responses by status code",
	}, []string{"status"})

	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "social_service_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	RequestDurationByPath = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "social_service_request_duration_by_path_seconds",
		Help:    "The request duration in seconds by method and path",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	OAuthCallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "social_service_oauth_callbacks_total",
		Help: "The total number of OAuth callbacks by platform and outcome",
	}, []string{"platform", "status"})

	PublicationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "social_service_publications_total",
		Help: "The total number of publication dispatches by platform, content type and outcome",
	}, []string{"platform", "content_type", "status"})

	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "social_service_token_refresh_total",
		Help: "The total number of token refreshes by platform and outcome",
	}, []string{"platform", "status"})
)
