package mosapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/icann-compliance/mosapi-client/internal/core/domain"
)

// ServiceMonitoringClient exposes the per-TLD monitoring endpoints as
// typed calls over an AuthenticatedClient, translating MoSAPI's
// not-found sentinels into disabled-monitoring placeholder values.
type ServiceMonitoringClient struct {
	auth *AuthenticatedClient
}

func NewServiceMonitoringClient(auth *AuthenticatedClient) *ServiceMonitoringClient {
	return &ServiceMonitoringClient{auth: auth}
}

// GetServiceState fetches the full monitoring snapshot for a TLD.
func (s *ServiceMonitoringClient) GetServiceState(ctx context.Context, tld string) (*domain.TldServiceState, error) {
	status, body, err := s.auth.ExecuteRequest(ctx, tld, http.MethodGet, "v2/monitoring/state", nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, envelopeError(status, body)
	}
	var state domain.TldServiceState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, newErr(KindParse, "decode TldServiceState", err)
	}
	return &state, nil
}

// GetDowntime fetches the downtime accrual for one service under a
// TLD. A 404 means monitoring is disabled for that service, not an
// error: it is reported as a sentinel ServiceDowntime with
// DisabledMonitoring set.
func (s *ServiceMonitoringClient) GetDowntime(ctx context.Context, tld, service string) (*domain.ServiceDowntime, error) {
	status, body, err := s.auth.ExecuteRequest(ctx, tld, http.MethodGet, fmt.Sprintf("v2/monitoring/%s/downtime", service), nil, nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		var downtime domain.ServiceDowntime
		if err := json.Unmarshal(body, &downtime); err != nil {
			return nil, newErr(KindParse, "decode ServiceDowntime", err)
		}
		return &downtime, nil
	case http.StatusNotFound:
		return &domain.ServiceDowntime{Version: 2, DisabledMonitoring: true}, nil
	default:
		return nil, envelopeError(status, body)
	}
}

// ServiceAlarmed fetches whether a service is currently alarmed. A 404
// again means disabled monitoring, reported as the "Disabled" sentinel.
func (s *ServiceMonitoringClient) ServiceAlarmed(ctx context.Context, tld, service string) (*domain.ServiceAlarm, error) {
	status, body, err := s.auth.ExecuteRequest(ctx, tld, http.MethodGet, fmt.Sprintf("v2/monitoring/%s/alarmed", service), nil, nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		var alarm domain.ServiceAlarm
		if err := json.Unmarshal(body, &alarm); err != nil {
			return nil, newErr(KindParse, "decode ServiceAlarm", err)
		}
		return &alarm, nil
	case http.StatusNotFound:
		return &domain.ServiceAlarm{Version: 2, Alarmed: "Disabled"}, nil
	default:
		return nil, envelopeError(status, body)
	}
}

// ReportInfo is one entry of a listAvailableReports response: enough to
// know a report exists for a date without fetching its domain list.
type ReportInfo struct {
	DomainListDate           string `json:"domainListDate"`
	DomainListGenerationDate string `json:"domainListGenerationDate,omitempty"`
}

// domainListsResponse is the wire envelope of GET v2/metrica/domainLists.
type domainListsResponse struct {
	DomainLists []ReportInfo `json:"domainLists"`
}

// DomainMetricaClient exposes the abuse-domain report endpoints.
type DomainMetricaClient struct {
	auth *AuthenticatedClient
}

func NewDomainMetricaClient(auth *AuthenticatedClient) *DomainMetricaClient {
	return &DomainMetricaClient{auth: auth}
}

// GetLatestReport fetches the most recent abuse report for a TLD.
func (d *DomainMetricaClient) GetLatestReport(ctx context.Context, tld string) (*domain.MetricaReport, error) {
	status, body, err := d.auth.ExecuteRequest(ctx, tld, http.MethodGet, "v2/metrica/domainList/latest", nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, envelopeError(status, body)
	}
	var report domain.MetricaReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, newErr(KindParse, "decode MetricaReport", err)
	}
	return &report, nil
}

// ListAvailableReports lists the reports available for a TLD between
// start and end (inclusive), as YYYY-MM-DD strings.
func (d *DomainMetricaClient) ListAvailableReports(ctx context.Context, tld, startDate, endDate string) ([]ReportInfo, error) {
	query := map[string]string{"startDate": startDate, "endDate": endDate}
	status, body, err := d.auth.ExecuteRequest(ctx, tld, http.MethodGet, "v2/metrica/domainLists", query, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, envelopeError(status, body)
	}
	var resp domainListsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newErr(KindParse, "decode report list", err)
	}
	return resp.DomainLists, nil
}

// GetReportForDate fetches the abuse report for a specific date.
func (d *DomainMetricaClient) GetReportForDate(ctx context.Context, tld, date string) (*domain.MetricaReport, error) {
	status, body, err := d.auth.ExecuteRequest(ctx, tld, http.MethodGet, fmt.Sprintf("v2/metrica/domainList/%s", date), nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, envelopeError(status, body)
	}
	var report domain.MetricaReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, newErr(KindParse, "decode MetricaReport", err)
	}
	return &report, nil
}
