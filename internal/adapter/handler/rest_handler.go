// Package handler implements the admin/trigger HTTP surface: health and
// POST endpoints that invoke the Orchestrator, Ingester, and report
// Publisher on demand. The Prometheus /metrics endpoint is mounted
// separately by the admin binary.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/icann-compliance/mosapi-client/internal/ingester"
	"github.com/icann-compliance/mosapi-client/internal/mosapi"
	"github.com/icann-compliance/mosapi-client/internal/orchestrator"
	"github.com/icann-compliance/mosapi-client/internal/report"
)

// RestHandler exposes the core components over HTTP.
type RestHandler struct {
	orch      *orchestrator.Orchestrator
	ingester  *ingester.Ingester
	publisher *report.Publisher
	tlds      []string
	services  []string
}

func NewRestHandler(orch *orchestrator.Orchestrator, ing *ingester.Ingester, pub *report.Publisher, tlds, services []string) *RestHandler {
	return &RestHandler{orch: orch, ingester: ing, publisher: pub, tlds: tlds, services: services}
}

// Health reports liveness.
func (h *RestHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "mosapi-client",
	})
}

// GetState triggers the Orchestrator's parallel TLD state fan-out and
// returns the aggregate result.
func (h *RestHandler) GetState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	results := h.orch.GetAllServiceStateSummaries(ctx, h.tlds)
	writeJSON(w, http.StatusOK, results)
}

// GetServiceDetails triggers the nested (TLD x service) downtime/alarm
// fan-out and returns the aggregate grid.
func (h *RestHandler) GetServiceDetails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	results := h.orch.GetServiceDetailsForAllTlds(ctx, h.tlds, h.services)
	writeJSON(w, http.StatusOK, results)
}

// TriggerIngest runs one Ingester pass over every configured TLD.
func (h *RestHandler) TriggerIngest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	failures := map[string]string{}
	for _, tld := range h.tlds {
		if err := h.ingester.IngestForTld(ctx, tld); err != nil {
			log.Printf("mosapi ingest: %s failed: %v", tld, err)
			failures[tld] = mosapiMessage(err)
		}
	}
	if len(failures) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "partial_failure", "failures": failures})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// TriggerReport sends the abuse report for yesterday's (UTC) check date.
func (h *RestHandler) TriggerReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	checkDate := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	if err := h.publisher.PublishDaily(ctx, h.tlds, checkDate); err != nil {
		log.Printf("mosapi report: publish failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, mosapiMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func mosapiMessage(err error) string {
	var mErr *mosapi.Error
	if errors.As(err, &mErr) {
		return mErr.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("mosapi admin: error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
