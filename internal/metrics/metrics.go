package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eduadmin"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// SessionsStarted counts attendance sessions opened by teachers.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_sessions_started_total",
		Help:      "Attendance sessions started.",
	})

	// SessionsClosed counts sessions by how they closed (ended, expired).
	SessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_sessions_closed_total",
		Help:      "Attendance sessions closed, by reason.",
	}, []string{"reason"})

	// PinSubmissions counts PIN submissions by outcome (marked, already_marked, invalid).
	PinSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_pin_submissions_total",
		Help:      "Student PIN submissions, by result.",
	}, []string{"result"})

	// PinIndexLookups counts Redis PIN index lookups (hit, miss, error).
	PinIndexLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_pin_index_lookups_total",
		Help:      "PIN index lookups, by result.",
	}, []string{"result"})

	// EnrollmentConflicts counts refused enrollments by conflict code.
	EnrollmentConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrollment_conflicts_total",
		Help:      "Enrollment conflicts detected, by code.",
	}, []string{"code"})

	// RosterStreams tracks open teacher roster WebSockets.
	RosterStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "roster_streams_open",
		Help:      "Open roster WebSocket connections.",
	})
)

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
