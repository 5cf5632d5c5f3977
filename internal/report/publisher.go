// Package report builds and sends the daily MoSAPI abuse-domain email,
// grouping matches by threat type per TLD and obfuscating domain names
// before they leave the process.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/icann-compliance/mosapi-client/internal/core/domain"
	"github.com/icann-compliance/mosapi-client/internal/core/ports"
)

const abuseReportSubject = "Daily MoSAPI Abuse Report"

// Publisher composes and sends the abuse report across every
// configured TLD that had matches on the given check date.
type Publisher struct {
	store  ports.ThreatMatchStore
	mailer ports.Mailer
	toAddr string
}

func NewPublisher(store ports.ThreatMatchStore, mailer ports.Mailer, toAddr string) *Publisher {
	return &Publisher{store: store, mailer: mailer, toAddr: toAddr}
}

// PublishDaily loads each TLD's matches for checkDate and, if any TLD
// had data, sends one combined email. It sends nothing when every TLD
// is empty.
func (p *Publisher) PublishDaily(ctx context.Context, tlds []string, checkDate time.Time) error {
	var body strings.Builder
	hasData := false

	for _, tld := range tlds {
		matches, err := p.store.LoadDay(ctx, tld, checkDate)
		if err != nil {
			return fmt.Errorf("load matches for %s: %w", tld, err)
		}
		if len(matches) == 0 {
			continue
		}
		hasData = true
		writeTldSection(&body, tld, checkDate, matches)
	}

	if !hasData {
		return nil
	}
	return p.mailer.Send(ctx, p.toAddr, abuseReportSubject, body.String())
}

func writeTldSection(body *strings.Builder, tld string, checkDate time.Time, matches []domain.ThreatMatch) {
	fmt.Fprintf(body, "<h2>Report for TLD: .%s (Date: %s)</h2>\n", tld, checkDate.Format("2006-01-02"))

	byType := make(map[string][]domain.ThreatMatch)
	var order []string
	for _, m := range matches {
		if _, seen := byType[m.ThreatType]; !seen {
			order = append(order, m.ThreatType)
		}
		byType[m.ThreatType] = append(byType[m.ThreatType], m)
	}

	for _, threatType := range order {
		group := byType[threatType]
		fmt.Fprintf(body, "<h3>Threat Type: %s (%d domains)</h3>\n<ul>\n", threatType, len(group))
		for _, m := range group {
			// Domains are obfuscated so outbound mail filters don't
			// flag the report for listing live abuse domains.
			fmt.Fprintf(body, "<li>%s</li>\n", strings.ReplaceAll(m.DomainName, ".", "[.]"))
		}
		body.WriteString("</ul>\n")
	}
}
