package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const createReportsTable = `
CREATE TABLE IF NOT EXISTS scam_reports (
	id               BIGSERIAL PRIMARY KEY,
	conversation_id  TEXT NOT NULL,
	is_threat        BOOLEAN NOT NULL,
	threat_type      TEXT NOT NULL DEFAULT '',
	confidence       DOUBLE PRECISION NOT NULL,
	turn_count       INTEGER NOT NULL,
	duration_seconds INTEGER NOT NULL,
	entities         JSONB,
	exit_reason      TEXT NOT NULL,
	reported_at      TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore persists dispatched reports for downstream analysis.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	if db == nil {
		panic("report: db cannot be nil")
	}
	return &PostgresStore{db: db}
}

// Init creates the reports table when it does not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createReportsTable); err != nil {
		return fmt.Errorf("report: failed to create scam_reports table: %w", err)
	}
	return nil
}

// Insert writes one report row.
func (s *PostgresStore) Insert(ctx context.Context, r FinalReport) error {
	entities, err := json.Marshal(r.ExtractedEntities)
	if err != nil {
		return fmt.Errorf("report: failed to encode entities: %w", err)
	}

	reportedAt := r.ReportedAt
	if reportedAt.IsZero() {
		reportedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scam_reports (
			conversation_id, is_threat, threat_type, confidence,
			turn_count, duration_seconds, entities, exit_reason, reported_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, r.ConversationID, r.IsThreat, r.ThreatType, r.Confidence,
		r.TurnCount, r.DurationSeconds, entities, r.ExitReason, reportedAt)
	if err != nil {
		return fmt.Errorf("report: failed to persist report: %w", err)
	}
	return nil
}
