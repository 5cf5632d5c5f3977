package mosapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestAuthClient(server *httptest.Server) *AuthenticatedClient {
	cache := newMemCache()
	cache.Put(context.Background(), "example", "session")
	cfg := fixedCredentials("u", "p")
	cfg.CircuitBreakerEnabled = false
	return NewAuthenticatedClient(testTransport(server), cache, cfg)
}

func TestGetDowntime_404ReturnsDisabledSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewServiceMonitoringClient(newTestAuthClient(server))
	downtime, err := svc.GetDowntime(context.Background(), "example", "dns")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !downtime.DisabledMonitoring || downtime.Version != 2 {
		t.Fatalf("expected disabled-monitoring sentinel, got %+v", downtime)
	}
}

func TestServiceAlarmed_404ReturnsDisabledSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewServiceMonitoringClient(newTestAuthClient(server))
	alarm, err := svc.ServiceAlarmed(context.Background(), "example", "dns")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alarm.Alarmed != "Disabled" || alarm.Version != 2 {
		t.Fatalf("expected Disabled sentinel, got %+v", alarm)
	}
}

func TestGetServiceState_DecodesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tld":"example","status":"Up","testedServices":{"dns":{"status":"Up"}}}`))
	}))
	defer server.Close()

	svc := NewServiceMonitoringClient(newTestAuthClient(server))
	state, err := svc.GetServiceState(context.Background(), "example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Tld != "example" || state.Status != "Up" {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestGetServiceState_ErrorEnvelopeMapsResultCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"resultCode":"2012","message":"end before start"}`))
	}))
	defer server.Close()

	svc := NewServiceMonitoringClient(newTestAuthClient(server))
	_, err := svc.GetServiceState(context.Background(), "example")
	mErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if mErr.Message != "Date order is invalid: end before start" {
		t.Fatalf("unexpected message: %s", mErr.Message)
	}
}

func TestListAvailableReports_DecodesList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"domainLists":[{"domainListDate":"2026-07-01"},{"domainListDate":"2026-07-02"}]}`))
	}))
	defer server.Close()

	metrica := NewDomainMetricaClient(newTestAuthClient(server))
	infos, err := metrica.ListAvailableReports(context.Background(), "example", "2026-07-01", "2026-07-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 || infos[0].DomainListDate != "2026-07-01" {
		t.Fatalf("unexpected infos: %+v", infos)
	}
}
