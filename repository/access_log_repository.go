package repository

import (
	"context"

	"teamvault-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAccessLogRepository implements AccessLogRepository on Postgres
type PostgresAccessLogRepository struct {
	db *pgxpool.Pool
}

// NewPostgresAccessLogRepository creates a new access log repository
func NewPostgresAccessLogRepository(db *pgxpool.Pool) *PostgresAccessLogRepository {
	return &PostgresAccessLogRepository{db: db}
}

// Append inserts an audit entry
func (r *PostgresAccessLogRepository) Append(ctx context.Context, entry *models.AccessLogEntry) error {
	query := `
		INSERT INTO access_logs (file_id, actor_id, action, outcome, client_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return r.db.QueryRow(
		ctx, query,
		entry.FileID,
		entry.ActorID,
		entry.Action,
		entry.Outcome,
		entry.ClientIP,
		entry.UserAgent,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListByFile returns a file's audit trail, newest first
func (r *PostgresAccessLogRepository) ListByFile(ctx context.Context, fileID uuid.UUID, limit, offset int) ([]*models.AccessLogEntry, error) {
	query := `
		SELECT id, file_id, actor_id, action, outcome, client_ip, user_agent, created_at
		FROM access_logs
		WHERE file_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, fileID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AccessLogEntry
	for rows.Next() {
		entry := &models.AccessLogEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.FileID,
			&entry.ActorID,
			&entry.Action,
			&entry.Outcome,
			&entry.ClientIP,
			&entry.UserAgent,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteByFile removes a file's audit trail (full purge only)
func (r *PostgresAccessLogRepository) DeleteByFile(ctx context.Context, fileID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM access_logs WHERE file_id = $1`, fileID)
	return err
}
