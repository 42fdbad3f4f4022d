package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"teamvault-backend/apperr"
	"teamvault-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const fileColumns = `id, original_name, storage_key, mime_type, size, checksum,
	category, owner_id, visibility, tags, description, version,
	soft_deleted, deleted_at, deleted_by, download_count, last_accessed,
	expires_at, created_at, updated_at`

// PostgresFileRepository implements FileRepository on Postgres
type PostgresFileRepository struct {
	db *pgxpool.Pool
}

// NewPostgresFileRepository creates a new file repository
func NewPostgresFileRepository(db *pgxpool.Pool) *PostgresFileRepository {
	return &PostgresFileRepository{db: db}
}

// Create inserts a new file record
func (r *PostgresFileRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (
			id, original_name, storage_key, mime_type, size, checksum,
			category, owner_id, visibility, tags, description, version, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		file.ID,
		file.OriginalName,
		file.StorageKey,
		file.MimeType,
		file.Size,
		file.Checksum,
		file.Category,
		file.OwnerID,
		file.Visibility,
		file.Tags,
		file.Description,
		file.Version,
		file.ExpiresAt,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
}

// GetByID retrieves a file record by ID, soft-deleted or not
func (r *PostgresFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns)

	file, err := scanFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return file, nil
}

// List retrieves file records matching the filter
func (r *PostgresFileRepository) List(ctx context.Context, filter FileFilter) ([]*models.File, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE 1=1`, fileColumns)
	args := []any{}
	idx := 1

	if !filter.IncludeDeleted {
		query += " AND NOT soft_deleted"
	}
	if filter.OwnerID != nil {
		query += fmt.Sprintf(" AND owner_id = $%d", idx)
		args = append(args, *filter.OwnerID)
		idx++
	}
	if filter.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", idx)
		args = append(args, *filter.Category)
		idx++
	}
	if filter.Visibility != nil {
		query += fmt.Sprintf(" AND visibility = $%d", idx)
		args = append(args, *filter.Visibility)
		idx++
	}
	if filter.Tag != "" {
		query += fmt.Sprintf(" AND $%d = ANY(tags)", idx)
		args = append(args, filter.Tag)
		idx++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (original_name ILIKE $%d OR description ILIKE $%d)", idx, idx)
		args = append(args, "%"+filter.Search+"%")
		idx++
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, filter.Limit)
		idx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFiles(rows)
}

// Update writes the mutable fields and refreshes updated_at
func (r *PostgresFileRepository) Update(ctx context.Context, file *models.File) error {
	query := `
		UPDATE files SET
			original_name = $2, mime_type = $3, size = $4, checksum = $5,
			category = $6, visibility = $7, tags = $8, description = $9,
			version = $10, expires_at = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(
		ctx, query,
		file.ID,
		file.OriginalName,
		file.MimeType,
		file.Size,
		file.Checksum,
		file.Category,
		file.Visibility,
		file.Tags,
		file.Description,
		file.Version,
		file.ExpiresAt,
	).Scan(&file.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return err
}

// UpdateCAS writes the record only if the stored version is unchanged
func (r *PostgresFileRepository) UpdateCAS(ctx context.Context, file *models.File, expectedVersion float64) error {
	query := `
		UPDATE files SET
			original_name = $3, mime_type = $4, size = $5, checksum = $6,
			category = $7, visibility = $8, tags = $9, description = $10,
			version = $11, expires_at = $12, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING updated_at`

	err := r.db.QueryRow(
		ctx, query,
		file.ID,
		expectedVersion,
		file.OriginalName,
		file.MimeType,
		file.Size,
		file.Checksum,
		file.Category,
		file.Visibility,
		file.Tags,
		file.Description,
		file.Version,
		file.ExpiresAt,
	).Scan(&file.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// Either the row is gone or another writer moved the version
		if _, getErr := r.GetByID(ctx, file.ID); errors.Is(getErr, apperr.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return apperr.ErrConflict
	}
	return err
}

// IncrementDownload bumps download_count and last_accessed atomically
func (r *PostgresFileRepository) IncrementDownload(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE files SET download_count = download_count + 1, last_accessed = $2 WHERE id = $1`,
		id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SoftDelete marks the record deleted; conflicts if already deleted
func (r *PostgresFileRepository) SoftDelete(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE files
		SET soft_deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = NOW()
		WHERE id = $1 AND NOT soft_deleted`,
		id, at, by)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, apperr.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return apperr.ErrConflict
	}
	return nil
}

// Purge removes the record row entirely
func (r *PostgresFileRepository) Purge(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListPurgeable returns soft-deleted records past the retention cutoff
func (r *PostgresFileRepository) ListPurgeable(ctx context.Context, cutoff time.Time) ([]*models.File, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM files WHERE soft_deleted AND deleted_at < $1 ORDER BY deleted_at`,
		fileColumns)

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFiles(rows)
}

// ListExpired returns live records whose expires_at has passed
func (r *PostgresFileRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.File, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM files WHERE NOT soft_deleted AND expires_at IS NOT NULL AND expires_at < $1`,
		fileColumns)

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFiles(rows)
}

func scanFile(row pgx.Row) (*models.File, error) {
	file := &models.File{}
	err := row.Scan(
		&file.ID,
		&file.OriginalName,
		&file.StorageKey,
		&file.MimeType,
		&file.Size,
		&file.Checksum,
		&file.Category,
		&file.OwnerID,
		&file.Visibility,
		&file.Tags,
		&file.Description,
		&file.Version,
		&file.SoftDeleted,
		&file.DeletedAt,
		&file.DeletedBy,
		&file.DownloadCount,
		&file.LastAccessed,
		&file.ExpiresAt,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func scanFiles(rows pgx.Rows) ([]*models.File, error) {
	var files []*models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}
