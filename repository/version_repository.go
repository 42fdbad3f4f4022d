package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"teamvault-backend/apperr"
	"teamvault-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresVersionRepository implements VersionRepository on Postgres
type PostgresVersionRepository struct {
	db *pgxpool.Pool
}

// NewPostgresVersionRepository creates a new version repository
func NewPostgresVersionRepository(db *pgxpool.Pool) *PostgresVersionRepository {
	return &PostgresVersionRepository{db: db}
}

// Create inserts a version entry. Entries are never updated afterwards.
func (r *PostgresVersionRepository) Create(ctx context.Context, version *models.FileVersion) error {
	snapshot, err := json.Marshal(version.MetadataSnapshot)
	if err != nil {
		return fmt.Errorf("failed to encode metadata snapshot: %w", err)
	}

	query := `
		INSERT INTO file_versions (
			id, file_id, version, checksum, size, created_by,
			change_summary, change_type, metadata_snapshot
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		version.ID,
		version.FileID,
		version.Version,
		version.Checksum,
		version.Size,
		version.CreatedBy,
		version.ChangeSummary,
		version.ChangeType,
		snapshot,
	).Scan(&version.CreatedAt)
}

// ListByFile returns version history, newest first
func (r *PostgresVersionRepository) ListByFile(ctx context.Context, fileID uuid.UUID, limit, offset int) ([]*models.FileVersion, error) {
	query := `
		SELECT id, file_id, version, checksum, size, created_by,
			change_summary, change_type, metadata_snapshot, created_at
		FROM file_versions
		WHERE file_id = $1
		ORDER BY version DESC, created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, fileID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*models.FileVersion
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

// GetByVersion returns the most recent entry with the given version number
func (r *PostgresVersionRepository) GetByVersion(ctx context.Context, fileID uuid.UUID, version float64) (*models.FileVersion, error) {
	query := `
		SELECT id, file_id, version, checksum, size, created_by,
			change_summary, change_type, metadata_snapshot, created_at
		FROM file_versions
		WHERE file_id = $1 AND version = $2
		ORDER BY created_at DESC
		LIMIT 1`

	entry, err := scanVersion(r.db.QueryRow(ctx, query, fileID, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// DeleteByFile removes all version history for a file (full purge only)
func (r *PostgresVersionRepository) DeleteByFile(ctx context.Context, fileID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM file_versions WHERE file_id = $1`, fileID)
	return err
}

func scanVersion(row pgx.Row) (*models.FileVersion, error) {
	version := &models.FileVersion{}
	var snapshot []byte

	err := row.Scan(
		&version.ID,
		&version.FileID,
		&version.Version,
		&version.Checksum,
		&version.Size,
		&version.CreatedBy,
		&version.ChangeSummary,
		&version.ChangeType,
		&snapshot,
		&version.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &version.MetadataSnapshot); err != nil {
			return nil, fmt.Errorf("failed to decode metadata snapshot: %w", err)
		}
	}
	return version, nil
}
