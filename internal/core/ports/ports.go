// Package ports declares the boundaries between the MoSAPI core and its
// collaborators, so adapters can be swapped without touching the core.
package ports

import (
	"context"
	"time"

	"github.com/icann-compliance/mosapi-client/internal/core/domain"
)

// SecretStore resolves named secrets (client certificate, private key,
// MoSAPI basic-auth password) from wherever the host keeps them.
type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SessionCache holds the MoSAPI session cookie per entity, shared across
// a cluster. A miss is reported by returning ("", false, nil), never as
// an error.
type SessionCache interface {
	Get(ctx context.Context, entityID string) (cookie string, ok bool, err error)
	Put(ctx context.Context, entityID, cookie string) error
	Clear(ctx context.Context, entityID string) error
}

// ThreatMatchStore persists the per-(tld, checkDate) abuse domain list
// produced by the Ingester.
type ThreatMatchStore interface {
	MaxCheckDate(ctx context.Context, tld string) (date time.Time, ok bool, err error)
	ReplaceDay(ctx context.Context, tld string, checkDate time.Time, matches []domain.ThreatMatch) error
	LoadDay(ctx context.Context, tld string, checkDate time.Time) ([]domain.ThreatMatch, error)
}

// MetricPoint is one labeled gauge sample published by the Orchestrator.
type MetricPoint struct {
	Name      string
	Labels    map[string]string
	Value     float64
	Timestamp time.Time
}

// MetricsSink accepts batches of metric points. Implementations must
// treat Publish as best-effort: the Orchestrator calls it fire-and-
// forget and does not surface its errors to callers.
type MetricsSink interface {
	Publish(ctx context.Context, points []MetricPoint) error
}

// Mailer sends a single HTML email, used by the abuse-report publisher.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// RequestRouter is the shape of the host's HTTP dispatch layer. It is
// never implemented in this repository (the host framework owns it);
// it documents the interface our handlers are written against.
type RequestRouter interface {
	Dispatch(ctx context.Context, route string, params map[string]string) error
}
