package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ReportsDispatched counts scheduled reports that fired, by report type.
	ReportsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_reports_dispatched_total",
			Help: "Scheduled reports dispatched by report type",
		},
		[]string{"report_type"},
	)

	// ReportMessages counts per-recipient chat sends by result (sent, failed).
	ReportMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_messages_total",
			Help: "Chat messages sent for reports and notifications by result",
		},
		[]string{"result"},
	)

	// SchedulerTicks counts minute ticks by outcome (ok, error, skipped).
	SchedulerTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Scheduler ticks by outcome",
		},
		[]string{"outcome"},
	)

	// TunnelConnected is 1 while the remote-access tunnel process is running.
	TunnelConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunnel_connected",
			Help: "Whether the remote-access tunnel is connected",
		},
	)
)

var (
	idPathSegment = regexp.MustCompile(`/([0-9]+|[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})(/|$)`)
	initOnce      sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, ReportsDispatched, ReportMessages, SchedulerTicks, TunnelConnected)
	})
}

// NormalizePath reduces cardinality by replacing numeric and uuid path segments with {id}.
// E.g. /devices/3f0c...-.../qrcode -> /devices/{id}/qrcode, /tickets/45 -> /tickets/{id}.
func NormalizePath(path string) string {
	return idPathSegment.ReplaceAllString(path, "/{id}$2")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

func IncReportsDispatched(reportType string) {
	ReportsDispatched.WithLabelValues(reportType).Inc()
}

// IncReportMessages records one send attempt.
func IncReportMessages(ok bool) {
	if ok {
		ReportMessages.WithLabelValues("sent").Inc()
		return
	}
	ReportMessages.WithLabelValues("failed").Inc()
}

func IncSchedulerTicks(outcome string) {
	SchedulerTicks.WithLabelValues(outcome).Inc()
}

func SetTunnelConnected(connected bool) {
	if connected {
		TunnelConnected.Set(1)
		return
	}
	TunnelConnected.Set(0)
}
