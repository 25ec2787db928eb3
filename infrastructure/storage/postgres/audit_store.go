package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcflow/rcflow/domain/audit"
)

// AuditStore is a PostgreSQL-backed implementation of audit.Store.
type AuditStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewAuditStore creates a new PostgreSQL audit log store.
func NewAuditStore(pool *pgxpool.Pool, schema string) *AuditStore {
	if schema == "" {
		schema = "public"
	}
	return &AuditStore{
		pool:   pool,
		schema: schema,
	}
}

func (s *AuditStore) tableName() string {
	return fmt.Sprintf("%s.audit_logs", s.schema)
}

// Migrate creates the audit_logs table if it does not exist.
func (s *AuditStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id                TEXT PRIMARY KEY,
			change_request_id TEXT NOT NULL,
			action            TEXT NOT NULL,
			performed_by      TEXT NOT NULL,
			performed_at      TIMESTAMPTZ NOT NULL,
			details           JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_cr_performed
			ON %s (change_request_id, performed_at DESC);
	`, s.tableName(), s.tableName())

	_, err := s.pool.Exec(ctx, query)
	return s.wrapError(err)
}

// Append persists an audit log entry.
func (s *AuditStore) Append(ctx context.Context, entry *audit.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, change_request_id, action, performed_by, performed_at, details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.tableName())

	_, err := s.pool.Exec(ctx, query,
		entry.ID,
		entry.ChangeRequestID,
		string(entry.Action),
		entry.PerformedBy,
		entry.PerformedAt,
		details,
	)
	if err != nil {
		return s.wrapError(err)
	}

	return nil
}

// List returns audit entries matching the filter, newest first.
func (s *AuditStore) List(ctx context.Context, filter audit.ListFilter) ([]*audit.Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = audit.DefaultListLimit
	}

	var (
		args  []any
		query = fmt.Sprintf(`SELECT id, change_request_id, action, performed_by, performed_at, details FROM %s`, s.tableName())
	)
	if filter.ChangeRequestID != "" {
		args = append(args, filter.ChangeRequestID)
		query += fmt.Sprintf(" WHERE change_request_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY performed_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	entries := []*audit.Entry{}
	for rows.Next() {
		var (
			entry   audit.Entry
			action  string
			details []byte
		)
		if err := rows.Scan(&entry.ID, &entry.ChangeRequestID, &action, &entry.PerformedBy, &entry.PerformedAt, &details); err != nil {
			return nil, s.wrapError(err)
		}
		entry.Action = audit.Action(action)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, s.wrapError(err)
	}

	return entries, nil
}

func (s *AuditStore) wrapError(err error) error {
	if err == nil {
		return nil
	}

	return errors.Join(audit.ErrStoreUnavailable, err)
}

var _ audit.Store = (*AuditStore)(nil)
