package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dltctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dltctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	decodedLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dltctl",
			Subsystem: "decoder",
			Name:      "lines_total",
			Help:      "Decoded lines by payload kind.",
		},
		[]string{"channel", "kind"},
	)
	skippedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dltctl",
			Subsystem: "decoder",
			Name:      "skipped_bytes_total",
			Help:      "Input bytes that did not form a record.",
		},
		[]string{"channel"},
	)
	catalogueMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dltctl",
			Subsystem: "catalogue",
			Name:      "misses_total",
			Help:      "Non-verbose records without a catalogue frame.",
		},
		[]string{"channel"},
	)
	ingestBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dltctl",
			Subsystem: "ingest",
			Name:      "bytes_total",
			Help:      "Bytes read from input sources.",
		},
		[]string{"source"},
	)
	channelLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dltctl",
			Subsystem: "status",
			Name:      "channel_lookups_total",
			Help:      "Status server lookups of single decoder channels.",
		},
		[]string{"channel", "result"},
	)
	ingestReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dltctl",
			Subsystem: "ingest",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts of stream sources.",
		},
		[]string{"source"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			decodedLines,
			skippedBytes,
			catalogueMisses,
			ingestBytes,
			ingestReconnects,
			channelLookups,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordLine counts one emitted line of the given kind.
func RecordLine(channel, kind string) {
	RegisterMetrics()
	decodedLines.WithLabelValues(channel, kind).Inc()
}

func RecordSkipped(channel string, n int64) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	skippedBytes.WithLabelValues(channel).Add(float64(n))
}

func RecordCatalogueMisses(channel string, n uint64) {
	if n == 0 {
		return
	}
	RegisterMetrics()
	catalogueMisses.WithLabelValues(channel).Add(float64(n))
}

func RecordIngestBytes(source string, n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	ingestBytes.WithLabelValues(source).Add(float64(n))
}

func RecordReconnect(source string) {
	RegisterMetrics()
	ingestReconnects.WithLabelValues(source).Inc()
}

func RecordChannelLookup(channel string, found bool) {
	RegisterMetrics()
	result := "found"
	if !found {
		result = "missing"
	}
	channelLookups.WithLabelValues(channel, result).Inc()
}
