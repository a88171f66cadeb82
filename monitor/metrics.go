// Package monitor exposes Prometheus metrics for the submission workflow and
// the scheduled job that keeps the per-bucket gauge current.
package monitor

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WorkflowTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_workflow_transitions_total",
			Help: "Committed workflow transitions by operation and resulting status.",
		},
		[]string{"operation", "status"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_notifications_total",
			Help: "Notification dispatch attempts by kind and result.",
		},
		[]string{"kind", "result"},
	)

	DocumentUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_document_uploads_total",
			Help: "Document store calls by result.",
		},
		[]string{"result"},
	)

	SubmissionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paper_submissions_created_total",
			Help: "Submissions persisted through the public form.",
		},
	)

	SubmissionsByBucket = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paper_submissions",
			Help: "Current number of submissions per status bucket.",
		},
		[]string{"bucket"},
	)
)

func init() {
	prometheus.MustRegister(
		WorkflowTransitions,
		Notifications,
		DocumentUploads,
		SubmissionsCreated,
		SubmissionsByBucket,
	)
}

// RegisterMetrics mounts the Prometheus scrape endpoint.
func RegisterMetrics(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
