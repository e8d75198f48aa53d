package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
)

// SnapshotRepository stores schema snapshots in PostgreSQL
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// snapshotRow represents the database row structure
type snapshotRow struct {
	ID          uuid.UUID `db:"id"`
	Source      string    `db:"source"`
	Version     string    `db:"schema_version"`
	DOMHash     string    `db:"dom_hash"`
	FieldsFound int       `db:"fields_found"`
	Payload     []byte    `db:"payload"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *snapshotRow) toDomain() (*domain.SchemaSnapshot, error) {
	var schema domain.FormSchema
	if err := json.Unmarshal(r.Payload, &schema); err != nil {
		return nil, err
	}

	return &domain.SchemaSnapshot{
		ID:          r.ID,
		Source:      r.Source,
		Version:     r.Version,
		DOMHash:     r.DOMHash,
		FieldsFound: r.FieldsFound,
		Schema:      &schema,
		CreatedAt:   r.CreatedAt,
	}, nil
}

// Create inserts a new snapshot. A zero ID is assigned on insert.
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *domain.SchemaSnapshot) error {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}

	payload, err := json.Marshal(snapshot.Schema)
	if err != nil {
		return &domain.DomainError{
			Code:    domain.ErrCodeValidation,
			Message: "failed to marshal schema payload",
			Err:     err,
		}
	}

	query := `
		INSERT INTO schema_snapshots (id, source, schema_version, dom_hash, fields_found, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at`

	err = r.db.QueryRowxContext(ctx, query,
		snapshot.ID,
		snapshot.Source,
		snapshot.Version,
		snapshot.DOMHash,
		snapshot.FieldsFound,
		payload,
	).Scan(&snapshot.CreatedAt)
	if err != nil {
		return &domain.DomainError{
			Code:    domain.ErrCodeStorage,
			Message: "failed to create schema snapshot",
			Err:     err,
		}
	}

	return nil
}

// GetByID retrieves a snapshot by ID
func (r *SnapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SchemaSnapshot, error) {
	var row snapshotRow
	query := `SELECT * FROM schema_snapshots WHERE id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.DomainError{
			Code:    domain.ErrCodeNotFound,
			Message: "schema snapshot not found",
		}
	}
	if err != nil {
		return nil, &domain.DomainError{
			Code:    domain.ErrCodeStorage,
			Message: "failed to get schema snapshot",
			Err:     err,
		}
	}

	return row.toDomain()
}

// GetLatest retrieves the most recent snapshot for a source
func (r *SnapshotRepository) GetLatest(ctx context.Context, source string) (*domain.SchemaSnapshot, error) {
	var row snapshotRow
	query := `
		SELECT * FROM schema_snapshots
		WHERE source = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &row, query, source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.DomainError{
			Code:    domain.ErrCodeNotFound,
			Message: "no snapshots for source",
		}
	}
	if err != nil {
		return nil, &domain.DomainError{
			Code:    domain.ErrCodeStorage,
			Message: "failed to get latest snapshot",
			Err:     err,
		}
	}

	return row.toDomain()
}

// List retrieves snapshots for a source, newest first
func (r *SnapshotRepository) List(ctx context.Context, source string, limit int) ([]*domain.SchemaSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []snapshotRow
	query := `
		SELECT * FROM schema_snapshots
		WHERE source = $1
		ORDER BY created_at DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &rows, query, source, limit); err != nil {
		return nil, &domain.DomainError{
			Code:    domain.ErrCodeStorage,
			Message: "failed to list snapshots",
			Err:     err,
		}
	}

	snapshots := make([]*domain.SchemaSnapshot, 0, len(rows))
	for i := range rows {
		snapshot, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

// LatestDOMHash returns the DOM hash of the most recent snapshot for a
// source, or empty when none exists. Used for cheap drift checks before a
// full extraction.
func (r *SnapshotRepository) LatestDOMHash(ctx context.Context, source string) (string, error) {
	var hash string
	query := `
		SELECT dom_hash FROM schema_snapshots
		WHERE source = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &hash, query, source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", &domain.DomainError{
			Code:    domain.ErrCodeStorage,
			Message: "failed to get latest dom hash",
			Err:     err,
		}
	}

	return hash, nil
}

// DeleteOlderThan removes snapshots created before the cutoff, returning the
// number deleted
func (r *SnapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schema_snapshots WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, &domain.DomainError{
			Code:    domain.ErrCodeStorage,
			Message: "failed to prune snapshots",
			Err:     err,
		}
	}
	return result.RowsAffected()
}
