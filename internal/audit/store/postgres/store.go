// Package postgres persists audit entries in PostgreSQL. The table carries
// only INSERT and SELECT traffic from this package; there is no UPDATE or
// DELETE path. Row expiry is handled externally (a scheduled job over
// expires_at), per the retention design.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adonisja/tyche-finance-sub001/internal/audit"
	"github.com/adonisja/tyche-finance-sub001/pkg/domain"
)

type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store over an open database handle.
// Callers register the driver (lib/pq) and own the pool lifecycle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema is the expected table shape, kept here as the single reference
// for migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id                TEXT PRIMARY KEY,
	tenant_id         TEXT NOT NULL,
	subject_id        TEXT NOT NULL,
	role              TEXT NOT NULL,
	action            TEXT NOT NULL,
	resource          TEXT NOT NULL DEFAULT '',
	resource_id       TEXT NOT NULL DEFAULT '',
	target_subject_id TEXT NOT NULL DEFAULT '',
	details           TEXT NOT NULL DEFAULT '',
	timestamp         TIMESTAMPTZ NOT NULL,
	success           BOOLEAN NOT NULL,
	error_message     TEXT NOT NULL DEFAULT '',
	expires_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_entries_tenant_ts ON audit_entries (tenant_id, timestamp);
CREATE INDEX IF NOT EXISTS audit_entries_expires ON audit_entries (expires_at);
`

// Append inserts one entry. ON CONFLICT (id) DO NOTHING keeps retried
// appends idempotent: the ULID is assigned once per logical entry, so a
// caller retry can never produce a second row or overwrite the first.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	query := `
		INSERT INTO audit_entries (
			id, tenant_id, subject_id, role, action, resource, resource_id,
			target_subject_id, details, timestamp, success, error_message, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.SubjectID,
		string(entry.Role),
		string(entry.Action),
		entry.Resource,
		entry.ResourceID,
		entry.TargetSubjectID,
		entry.Details,
		entry.Timestamp,
		entry.Success,
		entry.ErrorMessage,
		entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns one tenant's entries in [from, to] ordered by id, which is
// timestamp order with the ULID disambiguator breaking ties.
func (s *Store) Query(ctx context.Context, tenantID string, from, to time.Time, filter audit.Filter) ([]audit.Entry, error) {
	query := `
		SELECT id, tenant_id, subject_id, role, action, resource, resource_id,
		       target_subject_id, details, timestamp, success, error_message, expires_at
		FROM audit_entries
		WHERE tenant_id = $1 AND timestamp >= $2 AND timestamp <= $3
	`
	args := []any{tenantID, from, to}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		query += fmt.Sprintf(" AND subject_id = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.Success != nil {
		args = append(args, *filter.Success)
		query += fmt.Sprintf(" AND success = $%d", len(args))
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var (
			e      audit.Entry
			role   string
			action string
		)
		err := rows.Scan(
			&e.ID,
			&e.TenantID,
			&e.SubjectID,
			&role,
			&action,
			&e.Resource,
			&e.ResourceID,
			&e.TargetSubjectID,
			&e.Details,
			&e.Timestamp,
			&e.Success,
			&e.ErrorMessage,
			&e.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Role = domain.Role(role)
		e.Action = audit.Action(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
