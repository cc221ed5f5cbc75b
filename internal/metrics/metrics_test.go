package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	var r Recorder = Prometheus{}

	before := testutil.ToFloat64(Searches.WithLabelValues("test_fixes", "matches"))
	r.ObserveSearch("test_fixes", "matches", 20*time.Millisecond)
	if got := testutil.ToFloat64(Searches.WithLabelValues("test_fixes", "matches")); got != before+1 {
		t.Errorf("searches_total = %v, want %v", got, before+1)
	}

	r.ObserveStore("code_patterns", errors.New("boom"))
	if got := testutil.ToFloat64(Stores.WithLabelValues("code_patterns", "error")); got < 1 {
		t.Errorf("stores_total{result=error} = %v, want >= 1", got)
	}

	r.SetRecords("test_plans", 4)
	if got := testutil.ToFloat64(Records.WithLabelValues("test_plans")); got != 4 {
		t.Errorf("records = %v, want 4", got)
	}

	r.ObserveTier("EXACT")
	if got := testutil.ToFloat64(Tiers.WithLabelValues("EXACT")); got < 1 {
		t.Errorf("tiers = %v, want >= 1", got)
	}
}
