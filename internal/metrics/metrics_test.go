package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveReceived("broadcast")
	r.ObserveReceived("broadcast")
	r.ObserveSent("broadcast_ok")
	r.ObserveValue(true)
	r.ObserveValue(false)
	r.ObserveAck("stale")
	r.ObserveResends(3)
	r.ObservePendingAcks(4)
	r.ObserveHandled("broadcast", time.Millisecond)

	if got := testutil.ToFloat64(r.received.WithLabelValues("broadcast")); got != 2 {
		t.Fatalf("expected 2 received, got %v", got)
	}
	if got := testutil.ToFloat64(r.values.WithLabelValues("duplicate")); got != 1 {
		t.Fatalf("expected 1 duplicate, got %v", got)
	}
	if got := testutil.ToFloat64(r.resends); got != 3 {
		t.Fatalf("expected 3 resends, got %v", got)
	}
	if got := testutil.ToFloat64(r.pendingAcks); got != 4 {
		t.Fatalf("expected pending gauge 4, got %v", got)
	}
	if got := testutil.ToFloat64(r.acks.WithLabelValues("stale")); got != 1 {
		t.Fatalf("expected 1 stale ack, got %v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveReceived("read")
	r.ObserveHandleError("x")
	r.ObserveResends(1)
	r.SetTopologyNodes(3)
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	r.ObserveRetryTick()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gossip_retry_ticks_total 1") {
		t.Fatalf("expected retry tick counter in output, got %s", rec.Body.String())
	}
}
