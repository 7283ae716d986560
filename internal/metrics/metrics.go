// Package metrics provides Prometheus metrics for the drive client and bridge.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Remote drive API metrics
	remoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivedeck_drive_remote_requests_total",
			Help: "Total remote drive API calls",
		},
		[]string{"op", "outcome"},
	)

	remoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hivedeck_drive_remote_request_duration_seconds",
			Help:    "Remote drive API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	transferBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivedeck_drive_transfer_bytes_total",
			Help: "Bytes moved by uploads and downloads",
		},
		[]string{"direction"},
	)

	// Navigation metrics
	staleResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hivedeck_drive_stale_responses_total",
			Help: "Listing responses discarded because a newer navigation superseded them",
		},
	)

	moveRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivedeck_drive_move_rejections_total",
			Help: "Drag-move drops rejected before reaching the backend",
		},
		[]string{"reason"},
	)

	thumbnailFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hivedeck_drive_thumbnail_failures_total",
			Help: "Thumbnail loads that failed and fell back to an icon",
		},
	)

	// Bridge metrics
	bridgeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hivedeck_drive_bridge_requests_total",
			Help: "Total requests served by the local bridge",
		},
		[]string{"method", "path", "status"},
	)

	rateLimitHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hivedeck_drive_rate_limit_hits_total",
			Help: "Total bridge rate limit rejections (429s)",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRemote records one remote API call.
func RecordRemote(op string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	remoteRequestsTotal.WithLabelValues(op, outcome).Inc()
	remoteRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordUpload records uploaded bytes.
func RecordUpload(bytes int64) {
	transferBytesTotal.WithLabelValues("upload").Add(float64(bytes))
}

// RecordDownload records downloaded bytes.
func RecordDownload(bytes int64) {
	transferBytesTotal.WithLabelValues("download").Add(float64(bytes))
}

// RecordStaleResponse records a discarded listing.
func RecordStaleResponse() {
	staleResponsesTotal.Inc()
}

// RecordMoveRejection records a drop refused locally.
func RecordMoveRejection(reason string) {
	moveRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordThumbnailFailure records a failed thumbnail load.
func RecordThumbnailFailure() {
	thumbnailFailuresTotal.Inc()
}

// RecordBridgeRequest records a bridge request.
func RecordBridgeRequest(method, path string, status int) {
	bridgeRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// RecordRateLimitHit records a rate limit rejection.
func RecordRateLimitHit() {
	rateLimitHitsTotal.Inc()
}
