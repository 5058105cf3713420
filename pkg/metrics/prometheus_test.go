package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"proteus/pkg/object"
)

func TestExporterCountsGateEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	exp := NewExporter(reg)
	realm := object.NewRealm(object.WithRecorder(exp), object.WithLookupCache(true))

	obj := realm.Create(object.Props{"a": object.Int(1)})
	obj.Set("a", object.Int(2))
	obj.Set("b", object.Int(3))
	object.PreventExtensions(obj)
	obj.Set("c", object.Int(4))
	object.Freeze(obj)
	obj.Set("a", object.Int(5))
	object.Extend(obj, nil)

	if got := testutil.ToFloat64(exp.writesCommitted); got != 2 {
		t.Errorf("committed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exp.writesDiscarded.WithLabelValues("not_extensible")); got != 1 {
		t.Errorf("not_extensible = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exp.writesDiscarded.WithLabelValues("frozen")); got != 1 {
		t.Errorf("frozen = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exp.extensionsRefused); got != 1 {
		t.Errorf("refused = %v, want 1", got)
	}
}

func TestExporterLookupCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	exp := NewExporter(reg)
	realm := object.NewRealm(object.WithRecorder(exp), object.WithLookupCache(true))

	obj := realm.Create(object.Props{"a": object.Int(1)})
	obj.Get("a")
	obj.Get("a")
	obj.Get("a")

	if got := testutil.ToFloat64(exp.lookupCache.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exp.lookupCache.WithLabelValues("hit")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
}

func TestExporterRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewExporter(reg).WriteCommitted("x")

	n, err := testutil.GatherAndCount(reg, "proteus_writes_committed_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one committed series, got %d", n)
	}
}
