// Package orchestrator fans MoSAPI calls for many TLDs out across a
// bounded worker pool, preserving caller-visible input order, and
// drives best-effort metrics publication on a separate pool.
package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/icann-compliance/mosapi-client/internal/core/domain"
	"github.com/icann-compliance/mosapi-client/internal/core/ports"
	"github.com/icann-compliance/mosapi-client/internal/mosapi"
)

// maxTimeseriesPerPublish caps how many metric points go out in one
// MetricsSink.Publish call.
const maxTimeseriesPerPublish = 195

// Config controls the Orchestrator's concurrency.
type Config struct {
	// MaxConcurrentSessions bounds how many TLDs are queried in
	// parallel against one certificate.
	MaxConcurrentSessions int
	// MetricsQueueSize bounds the fire-and-forget metrics channel;
	// once full, the oldest queued batch is dropped to make room.
	MetricsQueueSize int
	// MetricsWorkerCount sizes the independent pool of goroutines that
	// drain MetricsQueueSize and call MetricsSink.Publish, per spec.md
	// §5's "independent bounded pool of the same size" requirement.
	MetricsWorkerCount int
}

func (c Config) sessions() int {
	if c.MaxConcurrentSessions <= 0 {
		return 4
	}
	if c.MaxConcurrentSessions > 4 {
		return 4
	}
	return c.MaxConcurrentSessions
}

func (c Config) metricsQueue() int {
	if c.MetricsQueueSize <= 0 {
		return 256
	}
	return c.MetricsQueueSize
}

func (c Config) metricsWorkers() int {
	if c.MetricsWorkerCount <= 0 {
		return 4
	}
	return c.MetricsWorkerCount
}

// Orchestrator coordinates state-summary fan-out and metrics
// publication for a configured set of TLDs.
type Orchestrator struct {
	state   *mosapi.StateService
	service *mosapi.ServiceMonitoringClient
	sink    ports.MetricsSink
	cfg     Config

	metricsCh   chan []ports.MetricPoint
	metricsOnce sync.Once
}

// New wires an Orchestrator. Call Start before the first metrics
// publish to spin up the background drain pool.
func New(state *mosapi.StateService, service *mosapi.ServiceMonitoringClient, sink ports.MetricsSink, cfg Config) *Orchestrator {
	return &Orchestrator{
		state:     state,
		service:   service,
		sink:      sink,
		cfg:       cfg,
		metricsCh: make(chan []ports.MetricPoint, cfg.metricsQueue()),
	}
}

// Start launches Config.MetricsWorkerCount background goroutines that
// all drain the same metrics channel, giving publication its own
// bounded pool independent of the TLD fan-out pool. It is idempotent
// and safe to call more than once.
func (o *Orchestrator) Start(ctx context.Context) {
	o.metricsOnce.Do(func() {
		for i := 0; i < o.cfg.metricsWorkers(); i++ {
			go o.drainMetrics(ctx)
		}
	})
}

// TldResult pairs a TLD with its summary or the error encountered
// fetching it, so callers never lose track of which TLD a failure
// belongs to. A failed fetch carries both Err and an "ERROR" sentinel
// summary; a TLD skipped after the deadline carries only Err.
type TldResult struct {
	Tld     string
	State   *domain.TldServiceState
	Summary *domain.ServiceStateSummary
	Err     error
}

// GetAllServiceStateSummaries fetches a ServiceStateSummary for every
// TLD in tlds, using a bounded worker pool sized by
// Config.MaxConcurrentSessions. Results preserve the input order of
// tlds regardless of completion order. A per-TLD failure is isolated
// into that slot's Err field rather than aborting the batch. Once ctx's
// deadline passes, no new TLD fetches are started, but in-flight ones
// run to completion.
func (o *Orchestrator) GetAllServiceStateSummaries(ctx context.Context, tlds []string) []TldResult {
	results := make([]TldResult, len(tlds))
	sem := make(chan struct{}, o.cfg.sessions())
	var wg sync.WaitGroup

	for i, tld := range tlds {
		i, tld := i, tld

		select {
		case <-ctx.Done():
			results[i] = TldResult{Tld: tld, Err: ctx.Err()}
			continue
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			results[i] = TldResult{Tld: tld, Err: ctx.Err()}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			state, summary, err := o.state.GetServiceStateWithSummary(context.WithoutCancel(ctx), tld)
			if err != nil {
				log.Printf("mosapi: state summary for %s failed: %v", tld, err)
				results[i] = TldResult{Tld: tld, Summary: &domain.ServiceStateSummary{Tld: tld, OverallStatus: "ERROR"}, Err: err}
				return
			}
			results[i] = TldResult{Tld: tld, State: state, Summary: summary}
		}()
	}

	wg.Wait()
	o.publishStateMetrics(results)
	return results
}

// ServiceDetail pairs one (tld, service) downtime/alarm fetch outcome.
type ServiceDetail struct {
	Tld      string
	Service  string
	Downtime *domain.ServiceDowntime
	Alarm    *domain.ServiceAlarm
	Err      error
}

// TldServiceDetails is one TLD's full service-detail row, the result of
// walking every configured service sequentially inside that TLD's
// worker slot.
type TldServiceDetails struct {
	Tld      string
	Services []ServiceDetail
}

// GetServiceDetailsForAllTlds fans out the (TLD x service) downtime and
// alarm grid with only the TLD axis running in parallel, bounded by the
// same worker pool size as the state fan-out; each worker walks its
// TLD's services sequentially within the one slot it holds. Results
// preserve tlds' input order.
func (o *Orchestrator) GetServiceDetailsForAllTlds(ctx context.Context, tlds []string, services []string) []TldServiceDetails {
	results := make([]TldServiceDetails, len(tlds))
	sem := make(chan struct{}, o.cfg.sessions())
	g, gctx := errgroup.WithContext(ctx)

	for i, tld := range tlds {
		i, tld := i, tld
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = TldServiceDetails{Tld: tld, Services: []ServiceDetail{{Tld: tld, Err: ctx.Err()}}}
				return nil
			}
			results[i] = TldServiceDetails{Tld: tld, Services: o.serviceDetailsSequential(gctx, tld, services)}
			return nil
		})
	}

	_ = g.Wait() // per-TLD failures are captured in their own result slot, never abort the batch
	return results
}

// serviceDetailsSequential fetches downtime then serviceAlarmed for
// each service, one after another, inside the single worker slot the
// caller already holds for this TLD.
func (o *Orchestrator) serviceDetailsSequential(ctx context.Context, tld string, services []string) []ServiceDetail {
	details := make([]ServiceDetail, len(services))
	for i, svc := range services {
		if ctx.Err() != nil {
			details[i] = ServiceDetail{Tld: tld, Service: svc, Err: ctx.Err()}
			continue
		}
		downtime, err := o.service.GetDowntime(ctx, tld, svc)
		if err != nil {
			log.Printf("mosapi: downtime for %s/%s failed: %v", tld, svc, err)
			details[i] = ServiceDetail{Tld: tld, Service: svc, Err: err}
			continue
		}
		alarm, err := o.service.ServiceAlarmed(ctx, tld, svc)
		if err != nil {
			log.Printf("mosapi: alarm for %s/%s failed: %v", tld, svc, err)
			details[i] = ServiceDetail{Tld: tld, Service: svc, Downtime: downtime, Err: err}
			continue
		}
		details[i] = ServiceDetail{Tld: tld, Service: svc, Downtime: downtime, Alarm: alarm}
	}
	return details
}

// publishStateMetrics enqueues one metrics batch derived from results:
// a tld_status point per TLD, plus a service_status and emergency_usage
// point per tested service. Enqueue is non-blocking: if the queue is
// full, the oldest pending batch is dropped to make room.
func (o *Orchestrator) publishStateMetrics(results []TldResult) {
	now := time.Now()
	points := make([]ports.MetricPoint, 0, len(results))
	for _, r := range results {
		if r.Summary == nil {
			continue
		}
		points = append(points, ports.MetricPoint{
			Name:      "tld_status",
			Labels:    map[string]string{"tld": r.Tld},
			Value:     float64(domain.ParseTldStatus(r.Summary.OverallStatus)),
			Timestamp: now,
		})
		if r.State == nil {
			continue
		}
		for service, svc := range r.State.TestedServices {
			labels := map[string]string{"tld": r.Tld, "service": service}
			points = append(points, ports.MetricPoint{
				Name:      "service_status",
				Labels:    labels,
				Value:     float64(domain.ParseServiceStatus(svc.Status)),
				Timestamp: now,
			})
			points = append(points, ports.MetricPoint{
				Name:      "emergency_usage",
				Labels:    labels,
				Value:     svc.EmergencyThreshold,
				Timestamp: now,
			})
		}
	}
	if len(points) == 0 {
		return
	}

	select {
	case o.metricsCh <- points:
	default:
		select {
		case <-o.metricsCh:
		default:
		}
		select {
		case o.metricsCh <- points:
		default:
			log.Printf("mosapi: metrics queue full, dropped a batch of %d points", len(points))
		}
	}
}

func (o *Orchestrator) drainMetrics(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case points := <-o.metricsCh:
			for start := 0; start < len(points); start += maxTimeseriesPerPublish {
				end := start + maxTimeseriesPerPublish
				if end > len(points) {
					end = len(points)
				}
				if err := o.sink.Publish(ctx, points[start:end]); err != nil {
					log.Printf("mosapi: metrics publish failed: %v", err)
				}
			}
		}
	}
}
