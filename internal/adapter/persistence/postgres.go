// Package persistence implements the ThreatMatchStore port against
// Postgres.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/icann-compliance/mosapi-client/internal/core/domain"
)

// PgThreatMatchStore persists ThreatMatch rows in Postgres.
type PgThreatMatchStore struct {
	db *pgxpool.Pool
}

func NewPgThreatMatchStore(db *pgxpool.Pool) *PgThreatMatchStore {
	return &PgThreatMatchStore{db: db}
}

func (s *PgThreatMatchStore) MaxCheckDate(ctx context.Context, tld string) (time.Time, bool, error) {
	var checkDate *time.Time
	query := `SELECT MAX(check_date) FROM threat_matches WHERE tld = $1`
	if err := s.db.QueryRow(ctx, query, tld).Scan(&checkDate); err != nil {
		return time.Time{}, false, fmt.Errorf("query max check date: %w", err)
	}
	if checkDate == nil {
		return time.Time{}, false, nil
	}
	return *checkDate, true, nil
}

// ReplaceDay deletes any existing rows for (tld, checkDate) and inserts
// matches, all inside one transaction, so a crash mid-ingest never
// leaves a day half-written.
func (s *PgThreatMatchStore) ReplaceDay(ctx context.Context, tld string, checkDate time.Time, matches []domain.ThreatMatch) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM threat_matches WHERE tld = $1 AND check_date = $2`, tld, checkDate); err != nil {
		return fmt.Errorf("delete existing day: %w", err)
	}

	if len(matches) > 0 {
		batch := &pgx.Batch{}
		query := `
			INSERT INTO threat_matches (id, tld, check_date, domain_name, threat_type)
			VALUES ($1, $2, $3, $4, $5)
		`
		for _, m := range matches {
			batch.Queue(query, m.ID, m.Tld, m.CheckDate, m.DomainName, m.ThreatType)
		}
		br := tx.SendBatch(ctx, batch)
		for range matches {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert matches: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PgThreatMatchStore) LoadDay(ctx context.Context, tld string, checkDate time.Time) ([]domain.ThreatMatch, error) {
	query := `
		SELECT id, tld, check_date, domain_name, threat_type
		FROM threat_matches
		WHERE tld = $1 AND check_date = $2
		ORDER BY threat_type, domain_name
	`
	rows, err := s.db.Query(ctx, query, tld, checkDate)
	if err != nil {
		return nil, fmt.Errorf("query threat matches: %w", err)
	}
	defer rows.Close()

	var matches []domain.ThreatMatch
	for rows.Next() {
		var m domain.ThreatMatch
		if err := rows.Scan(&m.ID, &m.Tld, &m.CheckDate, &m.DomainName, &m.ThreatType); err != nil {
			return nil, fmt.Errorf("scan threat match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threat matches: %w", err)
	}
	return matches, nil
}
