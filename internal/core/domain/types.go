// Package domain holds the value objects exchanged with MoSAPI and the
// aggregates derived from them.
package domain

import "time"

// IncidentSummary describes a single incident reported against a tested
// service.
type IncidentSummary struct {
	IncidentID    string `json:"incidentID"`
	StartTime     int64  `json:"startTime"`
	FalsePositive bool   `json:"falsePositive"`
	State         string `json:"state"`
	EndTime       *int64 `json:"endTime,omitempty"`
}

// ServiceStatus is the per-service entry inside a TldServiceState's
// testedServices map.
type ServiceStatus struct {
	Status             string             `json:"status"`
	EmergencyThreshold float64            `json:"emergencyThreshold"`
	Incidents          []IncidentSummary  `json:"incidents,omitempty"`
}

// TldServiceState is the full per-TLD monitoring snapshot returned by
// GET <entityId>/v2/monitoring/state.
type TldServiceState struct {
	Tld                 string                   `json:"tld"`
	LastUpdateAPIDatabase int64                  `json:"lastUpdateApiDatabase"`
	Status              string                   `json:"status"`
	TestedServices      map[string]ServiceStatus `json:"testedServices"`
}

// ServiceDowntime is the response shape of GET .../downtime.
type ServiceDowntime struct {
	Version               int   `json:"version"`
	LastUpdateAPIDatabase int64 `json:"lastUpdateApiDatabase"`
	Downtime              int   `json:"downtime"`
	DisabledMonitoring    bool  `json:"disabledMonitoring"`
}

// ServiceAlarm is the response shape of GET .../alarmed.
type ServiceAlarm struct {
	Version               int    `json:"version"`
	LastUpdateAPIDatabase int64  `json:"lastUpdateApiDatabase"`
	Alarmed               string `json:"alarmed"`
}

// ActiveIncidentsSummary is the per-service cut of ServiceStateSummary,
// populated only for services currently reporting incidents.
type ActiveIncidentsSummary struct {
	Service            string            `json:"service"`
	EmergencyThreshold float64           `json:"emergencyThreshold"`
	Incidents          []IncidentSummary `json:"incidents"`
}

// ServiceStateSummary is our own aggregate over a TldServiceState,
// computed by TransformToSummary; it is never itself part of the wire
// protocol.
type ServiceStateSummary struct {
	Tld             string                    `json:"tld"`
	OverallStatus   string                    `json:"overallStatus"`
	ActiveIncidents []ActiveIncidentsSummary  `json:"activeIncidents,omitempty"`
}

// ThreatData is one threat-type bucket inside a MetricaReport's
// domainListData array.
type ThreatData struct {
	ThreatType string   `json:"threatType"`
	Count      int      `json:"count"`
	Domains    []string `json:"domains"`
}

// MetricaReport is the response shape of GET .../metrica/domainList/latest
// and .../metrica/domainList/<date>. Entries of the report list are
// decoded into mosapi.ReportInfo instead.
type MetricaReport struct {
	Version             int          `json:"version"`
	Tld                 string       `json:"tld"`
	DomainListDate      string       `json:"domainListDate"`
	UniqueAbuseDomains  int          `json:"uniqueAbuseDomains"`
	DomainListData      []ThreatData `json:"domainListData"`
}

// ErrorEnvelope is the JSON body MoSAPI returns alongside non-2xx status
// codes.
type ErrorEnvelope struct {
	ResultCode  string `json:"resultCode"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// ThreatMatch is one persisted (tld, checkDate, domain) abuse row.
type ThreatMatch struct {
	ID         string    `json:"id"`
	Tld        string    `json:"tld"`
	CheckDate  time.Time `json:"checkDate"`
	DomainName string    `json:"domainName"`
	ThreatType string    `json:"threatType"`
}
