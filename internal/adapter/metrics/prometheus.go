// Package metrics implements the MetricsSink port on top of Prometheus
// client_golang, registering each gauge once via promauto and guarding
// the registry with a mutex.
package metrics

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/icann-compliance/mosapi-client/internal/core/ports"
)

// Sink publishes MetricPoint batches as Prometheus gauges, one
// GaugeVec per distinct metric name, lazily registered on first use.
type Sink struct {
	mu     sync.Mutex
	gauges map[string]*prometheus.GaugeVec
}

func NewSink() *Sink {
	return &Sink{gauges: make(map[string]*prometheus.GaugeVec)}
}

// Publish sets one gauge sample per point. Registration conflicts and
// other per-point failures are logged, never returned, since callers
// treat publication as fire-and-forget.
func (s *Sink) Publish(_ context.Context, points []ports.MetricPoint) error {
	for _, p := range points {
		func() {
			// promauto registration and GaugeVec.With panic on a
			// conflicting registration or mismatched label names.
			defer func() {
				if r := recover(); r != nil {
					log.Printf("mosapi metrics: skipping %s point: %v", p.Name, r)
				}
			}()
			gauge := s.gaugeFor(p.Name, p.Labels)
			gauge.With(prometheus.Labels(p.Labels)).Set(p.Value)
		}()
	}
	return nil
}

func (s *Sink) gaugeFor(name string, labels map[string]string) *prometheus.GaugeVec {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.gauges[name]; ok {
		return g
	}

	labelNames := make([]string, 0, len(labels))
	for k := range labels {
		labelNames = append(labelNames, k)
	}
	sort.Strings(labelNames)

	g := promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: fmt.Sprintf("mosapi_%s", name),
		Help: fmt.Sprintf("MoSAPI metric: %s", name),
	}, labelNames)
	s.gauges[name] = g
	return g
}
