package mosapi

import (
	"context"

	"github.com/icann-compliance/mosapi-client/internal/core/domain"
)

// StateService turns raw TldServiceState snapshots into
// ServiceStateSummary aggregates, one TLD per call. A failed fetch is
// returned to the caller; isolating failures across a batch of TLDs is
// the Orchestrator's job.
type StateService struct {
	monitoring *ServiceMonitoringClient
}

func NewStateService(monitoring *ServiceMonitoringClient) *StateService {
	return &StateService{monitoring: monitoring}
}

// GetServiceStateSummary fetches and summarizes one TLD's state.
func (s *StateService) GetServiceStateSummary(ctx context.Context, tld string) (*domain.ServiceStateSummary, error) {
	_, summary, err := s.GetServiceStateWithSummary(ctx, tld)
	return summary, err
}

// GetServiceStateWithSummary fetches one TLD's full state alongside its
// derived summary, so callers that need per-service detail (e.g. for
// metrics publication) don't have to re-fetch it.
func (s *StateService) GetServiceStateWithSummary(ctx context.Context, tld string) (*domain.TldServiceState, *domain.ServiceStateSummary, error) {
	state, err := s.monitoring.GetServiceState(ctx, tld)
	if err != nil {
		return nil, nil, err
	}
	summary := domain.TransformToSummary(*state)
	return state, &summary, nil
}
