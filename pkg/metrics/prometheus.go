// Package metrics exports engine events to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"proteus/pkg/object"
)

// Exporter implements object.Recorder on top of Prometheus counters.
type Exporter struct {
	writesCommitted   prometheus.Counter
	writesDiscarded   *prometheus.CounterVec
	extensionsRefused prometheus.Counter
	lookupCache       *prometheus.CounterVec
}

var _ object.Recorder = (*Exporter)(nil)

// NewExporter creates an exporter whose metrics are registered on reg.
// A nil reg uses the default registerer.
func NewExporter(reg prometheus.Registerer) *Exporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Exporter{
		writesCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "proteus_writes_committed_total",
			Help: "Total number of attribute writes that passed the mutation gate",
		}),
		writesDiscarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proteus_writes_discarded_total",
				Help: "Total number of attribute writes dropped by the mutation gate",
			},
			[]string{"reason"},
		),
		extensionsRefused: factory.NewCounter(prometheus.CounterOpts{
			Name: "proteus_extensions_refused_total",
			Help: "Total number of extend calls refused by a non-extensible parent",
		}),
		lookupCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proteus_lookup_cache_total",
				Help: "Chain lookup cache probes by result",
			},
			[]string{"result"},
		),
	}
}

// WriteCommitted records a committed write.
func (e *Exporter) WriteCommitted(string) {
	e.writesCommitted.Inc()
}

// WriteDiscarded records a dropped write. The attribute name is not used as
// a label to keep cardinality bounded.
func (e *Exporter) WriteDiscarded(_ string, reason object.DiscardReason) {
	e.writesDiscarded.WithLabelValues(reason.String()).Inc()
}

// ExtensionRefused records a refused extend.
func (e *Exporter) ExtensionRefused() {
	e.extensionsRefused.Inc()
}

// LookupCache records a lookup cache probe.
func (e *Exporter) LookupCache(hit bool) {
	if hit {
		e.lookupCache.WithLabelValues("hit").Inc()
		return
	}
	e.lookupCache.WithLabelValues("miss").Inc()
}

// Serve exposes g on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
