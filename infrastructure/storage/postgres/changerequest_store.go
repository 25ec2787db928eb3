package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/remoteconfig"
)

// ChangeRequestStore is a PostgreSQL-backed implementation of
// changerequest.Store. Snapshots, diffs and reviewers are stored as
// JSONB columns; the filterable fields are first-class columns.
type ChangeRequestStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewChangeRequestStore creates a new PostgreSQL change request store.
func NewChangeRequestStore(pool *pgxpool.Pool, schema string) *ChangeRequestStore {
	if schema == "" {
		schema = "public"
	}
	return &ChangeRequestStore{
		pool:   pool,
		schema: schema,
	}
}

// tableName returns the fully qualified table name.
func (s *ChangeRequestStore) tableName() string {
	return fmt.Sprintf("%s.change_requests", s.schema)
}

// Migrate creates the change_requests table if it does not exist.
func (s *ChangeRequestStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			environment      TEXT NOT NULL,
			project_id       TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL,
			created_by_uid   TEXT NOT NULL DEFAULT '',
			created_by_email TEXT NOT NULL DEFAULT '',
			current_config   JSONB NOT NULL,
			new_config       JSONB NOT NULL,
			diff             JSONB NOT NULL,
			summary          TEXT NOT NULL DEFAULT '',
			reviewers        JSONB NOT NULL DEFAULT '[]',
			approved_by      TEXT NOT NULL DEFAULT '',
			approved_at      TIMESTAMPTZ,
			rejected_by      TEXT NOT NULL DEFAULT '',
			rejected_at      TIMESTAMPTZ,
			rejected_reason  TEXT NOT NULL DEFAULT '',
			published_by     TEXT NOT NULL DEFAULT '',
			published_at     TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL,
			version          BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_change_requests_env_created
			ON %s (environment, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_change_requests_status_created
			ON %s (status, created_at DESC);
	`, s.tableName(), s.tableName(), s.tableName())

	_, err := s.pool.Exec(ctx, query)
	return s.wrapError(err)
}

const changeRequestColumns = `id, title, description, environment, project_id,
	status, created_by_uid, created_by_email, current_config, new_config, diff,
	summary, reviewers, approved_by, approved_at, rejected_by, rejected_at,
	rejected_reason, published_by, published_at, created_at, updated_at, version`

// Save persists a new change request.
func (s *ChangeRequestStore) Save(ctx context.Context, cr *changerequest.ChangeRequest) error {
	if cr.ID == "" {
		return changerequest.ErrInvalidRequest
	}

	base, candidate, diffJSON, reviewers, err := marshalParts(cr)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`, s.tableName(), changeRequestColumns)

	_, err = s.pool.Exec(ctx, query,
		cr.ID,
		cr.Title,
		cr.Description,
		string(cr.Env),
		cr.ProjectID,
		string(cr.Status),
		cr.CreatedBy.UID,
		cr.CreatedBy.Email,
		base,
		candidate,
		diffJSON,
		cr.Summary,
		reviewers,
		cr.ApprovedBy,
		cr.ApprovedAt,
		cr.RejectedBy,
		cr.RejectedAt,
		cr.RejectedReason,
		cr.PublishedBy,
		cr.PublishedAt,
		cr.CreatedAt,
		cr.UpdatedAt,
		cr.Version,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return changerequest.ErrExists
		}
		return s.wrapError(err)
	}

	return nil
}

// Get retrieves a change request by ID.
func (s *ChangeRequestStore) Get(ctx context.Context, id string) (*changerequest.ChangeRequest, error) {
	if id == "" {
		return nil, changerequest.ErrInvalidRequest
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, changeRequestColumns, s.tableName())

	cr, err := s.scanRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, changerequest.ErrNotFound
		}
		return nil, s.wrapError(err)
	}

	return cr, nil
}

// Update replaces an existing change request under a version check.
// The WHERE clause matches both id and the caller's version, so a
// stale writer affects zero rows and reports a conflict.
func (s *ChangeRequestStore) Update(ctx context.Context, cr *changerequest.ChangeRequest) error {
	if cr.ID == "" {
		return changerequest.ErrInvalidRequest
	}

	base, candidate, diffJSON, reviewers, err := marshalParts(cr)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			title = $2, description = $3, environment = $4, project_id = $5,
			status = $6, created_by_uid = $7, created_by_email = $8,
			current_config = $9, new_config = $10, diff = $11,
			summary = $12, reviewers = $13,
			approved_by = $14, approved_at = $15,
			rejected_by = $16, rejected_at = $17, rejected_reason = $18,
			published_by = $19, published_at = $20,
			updated_at = $21, version = version + 1
		WHERE id = $1 AND version = $22
	`, s.tableName())

	tag, err := s.pool.Exec(ctx, query,
		cr.ID,
		cr.Title,
		cr.Description,
		string(cr.Env),
		cr.ProjectID,
		string(cr.Status),
		cr.CreatedBy.UID,
		cr.CreatedBy.Email,
		base,
		candidate,
		diffJSON,
		cr.Summary,
		reviewers,
		cr.ApprovedBy,
		cr.ApprovedAt,
		cr.RejectedBy,
		cr.RejectedAt,
		cr.RejectedReason,
		cr.PublishedBy,
		cr.PublishedAt,
		cr.UpdatedAt,
		cr.Version,
	)
	if err != nil {
		return s.wrapError(err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		err := s.pool.QueryRow(ctx,
			fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", s.tableName()),
			cr.ID,
		).Scan(&exists)
		if err != nil {
			return s.wrapError(err)
		}
		if !exists {
			return changerequest.ErrNotFound
		}
		return changerequest.ErrVersionConflict
	}

	cr.Version++
	return nil
}

// List returns change requests matching the filter, newest first.
func (s *ChangeRequestStore) List(ctx context.Context, filter changerequest.ListFilter) ([]*changerequest.ChangeRequest, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.Env != "" {
		args = append(args, string(filter.Env))
		conditions = append(conditions, fmt.Sprintf("environment = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		conditions = append(conditions, fmt.Sprintf("(created_by_uid = $%d OR created_by_email = $%d)", len(args), len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM %s", changeRequestColumns, s.tableName())
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	results := []*changerequest.ChangeRequest{}
	for rows.Next() {
		cr, err := s.scanRow(rows)
		if err != nil {
			return nil, s.wrapError(err)
		}
		results = append(results, cr)
	}

	if err := rows.Err(); err != nil {
		return nil, s.wrapError(err)
	}

	return results, nil
}

// Delete removes a change request by ID.
func (s *ChangeRequestStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return changerequest.ErrInvalidRequest
	}

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName()), id)
	if err != nil {
		return s.wrapError(err)
	}

	if tag.RowsAffected() == 0 {
		return changerequest.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *ChangeRequestStore) scanRow(row rowScanner) (*changerequest.ChangeRequest, error) {
	var (
		cr        changerequest.ChangeRequest
		env       string
		status    string
		base      []byte
		candidate []byte
		diffJSON  []byte
		reviewers []byte
	)

	err := row.Scan(
		&cr.ID,
		&cr.Title,
		&cr.Description,
		&env,
		&cr.ProjectID,
		&status,
		&cr.CreatedBy.UID,
		&cr.CreatedBy.Email,
		&base,
		&candidate,
		&diffJSON,
		&cr.Summary,
		&reviewers,
		&cr.ApprovedBy,
		&cr.ApprovedAt,
		&cr.RejectedBy,
		&cr.RejectedAt,
		&cr.RejectedReason,
		&cr.PublishedBy,
		&cr.PublishedAt,
		&cr.CreatedAt,
		&cr.UpdatedAt,
		&cr.Version,
	)
	if err != nil {
		return nil, err
	}

	cr.Env = remoteconfig.Env(env)
	cr.Status = changerequest.Status(status)

	if err := json.Unmarshal(base, &cr.Base); err != nil {
		return nil, fmt.Errorf("unmarshal current_config: %w", err)
	}
	if err := json.Unmarshal(candidate, &cr.Candidate); err != nil {
		return nil, fmt.Errorf("unmarshal new_config: %w", err)
	}
	if err := json.Unmarshal(diffJSON, &cr.Diff); err != nil {
		return nil, fmt.Errorf("unmarshal diff: %w", err)
	}
	if err := json.Unmarshal(reviewers, &cr.Reviewers); err != nil {
		return nil, fmt.Errorf("unmarshal reviewers: %w", err)
	}
	if cr.Reviewers == nil {
		cr.Reviewers = []changerequest.Reviewer{}
	}

	return &cr, nil
}

func marshalParts(cr *changerequest.ChangeRequest) (base, candidate, diffJSON, reviewers []byte, err error) {
	if base, err = json.Marshal(cr.Base); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal current_config: %w", err)
	}
	if candidate, err = json.Marshal(cr.Candidate); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal new_config: %w", err)
	}
	if diffJSON, err = json.Marshal(cr.Diff); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal diff: %w", err)
	}
	rv := cr.Reviewers
	if rv == nil {
		rv = []changerequest.Reviewer{}
	}
	if reviewers, err = json.Marshal(rv); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal reviewers: %w", err)
	}
	return base, candidate, diffJSON, reviewers, nil
}

// wrapError wraps database errors with domain errors.
func (s *ChangeRequestStore) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(changerequest.ErrOperationTimeout, err)
	}

	return errors.Join(changerequest.ErrStoreUnavailable, err)
}

var _ changerequest.Store = (*ChangeRequestStore)(nil)
