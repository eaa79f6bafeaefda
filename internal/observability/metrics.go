package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	beaconIDsReceived     prometheus.Counter
	attendanceEntries     *prometheus.CounterVec
	scanTriggersTotal     *prometheus.CounterVec
	scanRecordsPersisted  prometheus.Counter
	dashboardCacheLookups *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"})

		beaconIDsReceived = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_beacon_ids_received_total",
			Help: "Beacon identifiers submitted for matching, duplicates included.",
		})

		attendanceEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_entries_total",
			Help: "Attendance entry writes by result.",
		}, []string{"result"})

		scanTriggersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_triggers_total",
			Help: "Scan requests relayed to the scanning device by outcome.",
		}, []string{"outcome"})

		scanRecordsPersisted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scan_records_persisted_total",
			Help: "Scan log records written by the consumer.",
		})

		dashboardCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_cache_lookups_total",
			Help: "Dashboard cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			beaconIDsReceived,
			attendanceEntries,
			scanTriggersTotal,
			scanRecordsPersisted,
			dashboardCacheLookups,
		)
	})
}

func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

func BeaconIDsReceived() prometheus.Counter {
	RegisterMetrics()
	return beaconIDsReceived
}

// AttendanceEntries is labelled with result "created" or "failed".
func AttendanceEntries() *prometheus.CounterVec {
	RegisterMetrics()
	return attendanceEntries
}

// ScanTriggers is labelled with outcome "relayed", "invalid" or "unreachable".
func ScanTriggers() *prometheus.CounterVec {
	RegisterMetrics()
	return scanTriggersTotal
}

func ScanRecordsPersisted() prometheus.Counter {
	RegisterMetrics()
	return scanRecordsPersisted
}

// DashboardCacheLookups is labelled with result "hit", "miss" or "error".
func DashboardCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardCacheLookups
}
