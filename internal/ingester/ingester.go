// Package ingester implements the catch-up abuse-report ingestion state
// machine: find the last persisted check date for a TLD, fetch every
// report published since, and persist each atomically.
package ingester

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/icann-compliance/mosapi-client/internal/core/domain"
	"github.com/icann-compliance/mosapi-client/internal/core/ports"
	"github.com/icann-compliance/mosapi-client/internal/mosapi"
)

const dateLayout = "2006-01-02"

// Ingester drives one catch-up pass per TLD.
type Ingester struct {
	metrica *mosapi.DomainMetricaClient
	store   ports.ThreatMatchStore
}

func New(metrica *mosapi.DomainMetricaClient, store ports.ThreatMatchStore) *Ingester {
	return &Ingester{metrica: metrica, store: store}
}

// IngestForTld runs the full IDLE -> QUERY_MAX -> DECIDE ->
// {UP_TO_DATE, LIST_RANGE, FETCH_LATEST} -> FOR_EACH(FETCH -> PERSIST)
// -> DONE state machine for one TLD.
func (ig *Ingester) IngestForTld(ctx context.Context, tld string) error {
	// QUERY_MAX
	maxDate, hasPrior, err := ig.store.MaxCheckDate(ctx, tld)
	if err != nil {
		return err
	}

	if !hasPrior {
		return ig.fetchLatestAndPersist(ctx, tld)
	}

	// DECIDE
	startDate := maxDate.AddDate(0, 0, 1)
	endDate := time.Now().UTC().Truncate(24 * time.Hour)

	if startDate.After(endDate) {
		log.Printf("mosapi ingest: %s is up to date (last check date %s)", tld, maxDate.Format(dateLayout))
		return nil // UP_TO_DATE
	}

	// LIST_RANGE
	infos, err := ig.metrica.ListAvailableReports(ctx, tld, startDate.Format(dateLayout), endDate.Format(dateLayout))
	if err != nil {
		return err
	}

	for _, info := range infos {
		checkDate, err := time.Parse(dateLayout, info.DomainListDate)
		if err != nil {
			log.Printf("mosapi ingest: %s: skipping unparsable domainListDate %q: %v", tld, info.DomainListDate, err)
			continue
		}
		report, err := ig.metrica.GetReportForDate(ctx, tld, info.DomainListDate)
		if err != nil {
			return err
		}
		if err := ig.persist(ctx, tld, checkDate, report); err != nil {
			return err
		}
	}
	return nil
}

func (ig *Ingester) fetchLatestAndPersist(ctx context.Context, tld string) error {
	report, err := ig.metrica.GetLatestReport(ctx, tld)
	if err != nil {
		return err
	}
	checkDate, err := time.Parse(dateLayout, report.DomainListDate)
	if err != nil {
		return err
	}
	return ig.persist(ctx, tld, checkDate, report)
}

// persist replaces the (tld, checkDate) row set atomically, skipping
// (and logging) any ThreatData entry with an empty domain list: those
// are informational counts, not matches to store.
func (ig *Ingester) persist(ctx context.Context, tld string, checkDate time.Time, report *domain.MetricaReport) error {
	var matches []domain.ThreatMatch
	for _, data := range report.DomainListData {
		if len(data.Domains) == 0 {
			log.Printf("mosapi ingest: %s %s: threat type %s has no domains, skipping", tld, checkDate.Format(dateLayout), data.ThreatType)
			continue
		}
		for _, d := range data.Domains {
			matches = append(matches, domain.ThreatMatch{
				ID:         uuid.NewString(),
				Tld:        tld,
				CheckDate:  checkDate,
				DomainName: d,
				ThreatType: data.ThreatType,
			})
		}
	}
	return ig.store.ReplaceDay(ctx, tld, checkDate, matches)
}
