package repository

import (
	"context"
	"errors"
	"time"

	"teamvault-backend/apperr"
	"teamvault-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const shareColumns = `id, file_id, issuer_id, token, expires_at, max_downloads,
	download_count, password_hash, allowed_domains, require_auth, active, created_at`

// PostgresShareRepository implements ShareRepository on Postgres
type PostgresShareRepository struct {
	db *pgxpool.Pool
}

// NewPostgresShareRepository creates a new share repository
func NewPostgresShareRepository(db *pgxpool.Pool) *PostgresShareRepository {
	return &PostgresShareRepository{db: db}
}

// Create inserts a share token
func (r *PostgresShareRepository) Create(ctx context.Context, share *models.ShareToken) error {
	query := `
		INSERT INTO share_tokens (
			id, file_id, issuer_id, token, expires_at, max_downloads,
			password_hash, allowed_domains, require_auth, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		share.ID,
		share.FileID,
		share.IssuerID,
		share.Token,
		share.ExpiresAt,
		share.MaxDownloads,
		share.PasswordHash,
		share.AllowedDomains,
		share.RequireAuth,
		share.Active,
	).Scan(&share.CreatedAt)
}

// GetByID retrieves a share by ID
func (r *PostgresShareRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ShareToken, error) {
	return r.getOne(ctx, `SELECT `+shareColumns+` FROM share_tokens WHERE id = $1`, id)
}

// GetByToken retrieves a share by its token string
func (r *PostgresShareRepository) GetByToken(ctx context.Context, token string) (*models.ShareToken, error) {
	return r.getOne(ctx, `SELECT `+shareColumns+` FROM share_tokens WHERE token = $1`, token)
}

func (r *PostgresShareRepository) getOne(ctx context.Context, query string, arg any) (*models.ShareToken, error) {
	share, err := scanShare(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return share, nil
}

// ListByFile returns all shares issued for a file, newest first
func (r *PostgresShareRepository) ListByFile(ctx context.Context, fileID uuid.UUID) ([]*models.ShareToken, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+shareColumns+` FROM share_tokens WHERE file_id = $1 ORDER BY created_at DESC`,
		fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []*models.ShareToken
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	return shares, rows.Err()
}

// Deactivate flips a share's active flag off
func (r *PostgresShareRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE share_tokens SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ConsumeDownload takes one download slot. The conditional update makes
// the cap check and the increment a single atomic step, so two
// concurrent downloads against a cap of one yield exactly one success.
func (r *PostgresShareRepository) ConsumeDownload(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE share_tokens
		SET download_count = download_count + 1
		WHERE id = $1 AND active
		  AND (max_downloads IS NULL OR download_count < max_downloads)`,
		id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrLimitReached
	}
	return nil
}

// DeactivateExpired flips active off for every token past its expiry
func (r *PostgresShareRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE share_tokens
		SET active = FALSE
		WHERE active AND expires_at IS NOT NULL AND expires_at < $1`,
		now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeactivateByFile deactivates all of a file's shares
func (r *PostgresShareRepository) DeactivateByFile(ctx context.Context, fileID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE share_tokens SET active = FALSE WHERE file_id = $1 AND active`, fileID)
	return err
}

// DeleteByFile removes all of a file's shares (full purge only)
func (r *PostgresShareRepository) DeleteByFile(ctx context.Context, fileID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM share_tokens WHERE file_id = $1`, fileID)
	return err
}

func scanShare(row pgx.Row) (*models.ShareToken, error) {
	share := &models.ShareToken{}
	err := row.Scan(
		&share.ID,
		&share.FileID,
		&share.IssuerID,
		&share.Token,
		&share.ExpiresAt,
		&share.MaxDownloads,
		&share.DownloadCount,
		&share.PasswordHash,
		&share.AllowedDomains,
		&share.RequireAuth,
		&share.Active,
		&share.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return share, nil
}
