package domain

import "strings"

// Metric values published for a TLD or service status. These mirror the
// three states a monitoring dashboard cares about: down, degraded/
// inconclusive, and up.
const (
	MetricDown         = 0
	MetricUp           = 1
	MetricInconclusive = 2
)

// ParseTldStatus maps a TldServiceState.Status string to a metric value.
// Any status prefixed with "UP-INCONCLUSIVE" (e.g. "UP-INCONCLUSIVE-FOO")
// is treated as inconclusive; everything else that isn't "DOWN" counts
// as up. TLD-level status never arrives as "DISABLED", unlike service
// status, so it is not special-cased here.
func ParseTldStatus(status string) int {
	if status == "" {
		return MetricUp
	}
	upper := strings.ToUpper(status)
	if upper == "DOWN" {
		return MetricDown
	}
	if strings.HasPrefix(upper, "UP-INCONCLUSIVE") {
		return MetricInconclusive
	}
	return MetricUp
}

// ParseServiceStatus maps a ServiceStatus.Status string to a metric
// value. As in ParseTldStatus, any status that *starts with*
// "UP-INCONCLUSIVE" counts as inconclusive; unlike ParseTldStatus, a
// disabled service also counts as inconclusive rather than up.
func ParseServiceStatus(status string) int {
	if status == "" {
		return MetricUp
	}
	upper := strings.ToUpper(status)
	if strings.HasPrefix(upper, "UP-INCONCLUSIVE") {
		return MetricInconclusive
	}
	switch upper {
	case "DOWN":
		return MetricDown
	case "DISABLED":
		return MetricInconclusive
	default:
		return MetricUp
	}
}

// TransformToSummary reduces a full TldServiceState into the leaner
// ServiceStateSummary used by callers that only care about overall
// health and which services currently have open incidents.
func TransformToSummary(state TldServiceState) ServiceStateSummary {
	summary := ServiceStateSummary{
		Tld:           state.Tld,
		OverallStatus: state.Status,
	}
	if !strings.EqualFold(state.Status, "Down") {
		return summary
	}
	for name, svc := range state.TestedServices {
		if len(svc.Incidents) == 0 {
			continue
		}
		summary.ActiveIncidents = append(summary.ActiveIncidents, ActiveIncidentsSummary{
			Service:            name,
			EmergencyThreshold: svc.EmergencyThreshold,
			Incidents:          svc.Incidents,
		})
	}
	return summary
}
