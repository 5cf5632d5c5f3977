package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/icann-compliance/mosapi-client/internal/adapter/sessioncache"
	"github.com/icann-compliance/mosapi-client/internal/core/ports"
	"github.com/icann-compliance/mosapi-client/internal/mosapi"
)

type fakeSink struct {
	mu     sync.Mutex
	published [][]ports.MetricPoint
}

func (f *fakeSink) Publish(_ context.Context, points []ports.MetricPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, points)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func newTestServices(t *testing.T, handler http.HandlerFunc) (*mosapi.StateService, *mosapi.ServiceMonitoringClient) {
	t.Helper()
	// The cache starts empty, so every TLD's first call logs in; answer
	// the login endpoint with a session cookie the way MoSAPI does and
	// hand every other path to the test's handler.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/login") {
			w.Header().Set("Set-Cookie", "id=session; Path=/")
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	transport := mosapi.NewTransportFromClient(server.Client(), server.URL)
	cfg := mosapi.ClientConfig{
		UsernameLookup: func(context.Context, string) (string, error) { return "u", nil },
		PasswordLookup: func(context.Context, string) (string, error) { return "p", nil },
	}
	auth := mosapi.NewAuthenticatedClient(transport, sessioncache.NewMemory(), cfg)
	monitoring := mosapi.NewServiceMonitoringClient(auth)
	return mosapi.NewStateService(monitoring), monitoring
}

func tldFromStatePath(path string) string {
	return strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/v2/monitoring/state")
}

func TestGetAllServiceStateSummaries_PreservesInputOrder(t *testing.T) {
	state, monitoring := newTestServices(t, func(w http.ResponseWriter, r *http.Request) {
		tld := tldFromStatePath(r.URL.Path)
		fmt.Fprintf(w, `{"tld":"%s","status":"Up"}`, tld)
	})

	orch := New(state, monitoring, &fakeSink{}, Config{MaxConcurrentSessions: 4})
	tlds := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	results := orch.GetAllServiceStateSummaries(context.Background(), tlds)

	if len(results) != len(tlds) {
		t.Fatalf("expected %d results, got %d", len(tlds), len(results))
	}
	for i, tld := range tlds {
		if results[i].Tld != tld {
			t.Fatalf("expected results[%d].Tld = %q, got %q", i, tld, results[i].Tld)
		}
	}
}

func TestGetAllServiceStateSummaries_IsolatesPerTldErrors(t *testing.T) {
	state, monitoring := newTestServices(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad/v2/monitoring/state" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		tld := tldFromStatePath(r.URL.Path)
		fmt.Fprintf(w, `{"tld":"%s","status":"Up"}`, tld)
	})

	orch := New(state, monitoring, &fakeSink{}, Config{MaxConcurrentSessions: 2})
	results := orch.GetAllServiceStateSummaries(context.Background(), []string{"good", "bad"})

	if results[0].Err != nil {
		t.Fatalf("expected no error for 'good', got %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Fatal("expected an error for 'bad'")
	}
	if results[1].Summary == nil || results[1].Summary.OverallStatus != "ERROR" {
		t.Fatalf("expected ERROR sentinel summary for 'bad', got %+v", results[1].Summary)
	}
}

func TestGetAllServiceStateSummaries_RespectsDeadline(t *testing.T) {
	state, monitoring := newTestServices(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, `{"tld":"slow","status":"Up"}`)
	})

	orch := New(state, monitoring, &fakeSink{}, Config{MaxConcurrentSessions: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()
	time.Sleep(2 * time.Millisecond)

	results := orch.GetAllServiceStateSummaries(ctx, []string{"a", "b"})
	for _, r := range results {
		if r.Err == nil {
			t.Fatalf("expected deadline-exceeded error for %s", r.Tld)
		}
	}
}

func TestGetServiceDetailsForAllTlds_WalksServicesSequentiallyPerTld(t *testing.T) {
	var mu sync.Mutex
	var callOrder []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		callOrder = append(callOrder, r.URL.Path)
		mu.Unlock()
		fmt.Fprint(w, `{"version":2,"downtime":0,"disabledMonitoring":false}`)
	}))
	defer server.Close()

	transport := mosapi.NewTransportFromClient(server.Client(), server.URL)
	authCfg := mosapi.ClientConfig{
		UsernameLookup: func(context.Context, string) (string, error) { return "u", nil },
		PasswordLookup: func(context.Context, string) (string, error) { return "p", nil },
	}
	// Seed session cookies so only the downtime/alarmed endpoints are hit.
	cache := sessioncache.NewMemory()
	cache.Put(context.Background(), "alpha", "session")
	cache.Put(context.Background(), "beta", "session")
	auth := mosapi.NewAuthenticatedClient(transport, cache, authCfg)
	monitoring := mosapi.NewServiceMonitoringClient(auth)
	state := mosapi.NewStateService(monitoring)

	orch := New(state, monitoring, &fakeSink{}, Config{MaxConcurrentSessions: 4})
	results := orch.GetServiceDetailsForAllTlds(context.Background(), []string{"alpha", "beta"}, []string{"dns", "rdds"})

	if len(results) != 2 {
		t.Fatalf("expected 2 tld results, got %d", len(results))
	}
	for i, tld := range []string{"alpha", "beta"} {
		if results[i].Tld != tld {
			t.Fatalf("expected results[%d].Tld = %q, got %q", i, tld, results[i].Tld)
		}
		if len(results[i].Services) != 2 {
			t.Fatalf("expected 2 service results for %s, got %d", tld, len(results[i].Services))
		}
		for j, svc := range []string{"dns", "rdds"} {
			if results[i].Services[j].Service != svc {
				t.Fatalf("expected services[%d] = %q, got %q", j, svc, results[i].Services[j].Service)
			}
			if results[i].Services[j].Err != nil {
				t.Fatalf("unexpected error for %s/%s: %v", tld, svc, results[i].Services[j].Err)
			}
		}
	}

	// Calls from different TLDs may interleave, since the TLD axis runs in
	// parallel, but within one TLD's worker slot the services are walked
	// one at a time: downtime then alarmed for dns, then the same for rdds.
	mu.Lock()
	defer mu.Unlock()
	if len(callOrder) != 8 {
		t.Fatalf("expected 8 HTTP calls (2 tlds x 2 services x 2 endpoints), got %d: %v", len(callOrder), callOrder)
	}
	want := []string{"/v2/monitoring/dns/downtime", "/v2/monitoring/dns/alarmed", "/v2/monitoring/rdds/downtime", "/v2/monitoring/rdds/alarmed"}
	for _, tld := range []string{"alpha", "beta"} {
		var got []string
		for _, p := range callOrder {
			if strings.HasPrefix(p, "/"+tld+"/") {
				got = append(got, strings.TrimPrefix(p, "/"+tld))
			}
		}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Fatalf("expected %s calls in order %v, got %v", tld, want, got)
		}
	}
}

func TestPublishStateMetrics_DropsOldestOnOverflow(t *testing.T) {
	state, monitoring := newTestServices(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tld":"x","status":"Up"}`)
	})

	sink := &fakeSink{}
	orch := New(state, monitoring, sink, Config{MaxConcurrentSessions: 1, MetricsQueueSize: 1})
	// Do not call Start, so the drain loop never runs and the queue fills up.
	orch.GetAllServiceStateSummaries(context.Background(), []string{"a"})
	orch.GetAllServiceStateSummaries(context.Background(), []string{"b"})

	if len(orch.metricsCh) > 1 {
		t.Fatalf("expected queue to never exceed capacity 1, has %d", len(orch.metricsCh))
	}
	select {
	case batch := <-orch.metricsCh:
		if got := batch[0].Labels["tld"]; got != "b" {
			t.Fatalf("expected tld a's batch to be dropped in favour of tld b's, got tld %q", got)
		}
	default:
		t.Fatal("expected the newest batch to remain queued")
	}
}
