package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSegment(t *testing.T) {
	before := testutil.ToFloat64(segmentsTotal.WithLabelValues("merged"))
	RecordSegment("merged")
	RecordSegment("merged")
	if got := testutil.ToFloat64(segmentsTotal.WithLabelValues("merged")); got != before+2 {
		t.Fatalf("merged segments = %v, want %v", got, before+2)
	}
}

func TestSessionGauge(t *testing.T) {
	before := testutil.ToFloat64(activeSessions)
	SessionOpened()
	if got := testutil.ToFloat64(activeSessions); got != before+1 {
		t.Fatalf("active sessions = %v, want %v", got, before+1)
	}
	SessionClosed()
	if got := testutil.ToFloat64(activeSessions); got != before {
		t.Fatalf("active sessions = %v, want %v", got, before)
	}
}

func TestSetCatalogVideos(t *testing.T) {
	SetCatalogVideos(12)
	if got := testutil.ToFloat64(catalogVideos); got != 12 {
		t.Fatalf("catalog videos = %v, want 12", got)
	}
}
