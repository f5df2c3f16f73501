package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModerationActions counts committed status transitions by content kind and action
	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heritage_moderation_actions_total",
			Help: "Total number of moderation transitions by content kind and action",
		},
		[]string{"kind", "action"},
	)

	// Notifications counts email deliveries by outcome (sent, failed, dropped)
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heritage_notifications_total",
			Help: "Total number of notification emails by result",
		},
		[]string{"result"},
	)

	ContentViews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heritage_content_views_total",
			Help: "Total number of counted content views by kind",
		},
		[]string{"kind"},
	)

	ReportsFiled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heritage_reports_filed_total",
			Help: "Total number of content reports by reason",
		},
		[]string{"reason"},
	)

	// MediaUploadBytes tracks the size of stored media after compression
	MediaUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "heritage_media_upload_bytes",
			Help:    "Size of stored media objects in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
		},
	)
)
