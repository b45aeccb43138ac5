package observability

import (
	"testing"
	"time"

	"github.com/danmuck/dltctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/health", 200, 12*time.Millisecond)
	RecordReconnect("tcp://127.0.0.1:3490")
	RecordIngestBytes("file", 0)
}

func TestDecoderCounters(t *testing.T) {
	RecordLine("test-a", "verbose")
	RecordLine("test-a", "verbose")
	RecordLine("test-a", "skipped")
	RecordSkipped("test-a", 5)
	RecordSkipped("test-a", 0)
	RecordCatalogueMisses("test-a", 3)

	if got := testutil.ToFloat64(decodedLines.WithLabelValues("test-a", "verbose")); got != 2 {
		t.Fatalf("verbose lines=%v", got)
	}
	if got := testutil.ToFloat64(skippedBytes.WithLabelValues("test-a")); got != 5 {
		t.Fatalf("skipped bytes=%v", got)
	}
	if got := testutil.ToFloat64(catalogueMisses.WithLabelValues("test-a")); got != 3 {
		t.Fatalf("misses=%v", got)
	}
}

func TestChannelLookupCounter(t *testing.T) {
	RecordChannelLookup("test-b", true)
	RecordChannelLookup("test-b", false)
	RecordChannelLookup("test-b", false)

	if got := testutil.ToFloat64(channelLookups.WithLabelValues("test-b", "found")); got != 1 {
		t.Fatalf("found=%v", got)
	}
	if got := testutil.ToFloat64(channelLookups.WithLabelValues("test-b", "missing")); got != 2 {
		t.Fatalf("missing=%v", got)
	}
}
