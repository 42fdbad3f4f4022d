package service

import (
	"context"

	"teamvault-backend/models"
	"teamvault-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientInfo is the request metadata recorded with audit entries
type ClientInfo struct {
	IP        string
	UserAgent string
}

// AccessLogger writes audit entries on a best-effort basis. A failed
// write is logged and swallowed; it must never abort the operation that
// produced it.
type AccessLogger struct {
	repo   repository.AccessLogRepository
	logger *zap.Logger
}

// NewAccessLogger creates an access logger backed by the given sink
func NewAccessLogger(repo repository.AccessLogRepository, logger *zap.Logger) *AccessLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessLogger{repo: repo, logger: logger}
}

// Log appends one audit entry
func (l *AccessLogger) Log(ctx context.Context, fileID, actorID uuid.UUID, action models.LogAction, outcome models.LogOutcome, client ClientInfo) {
	entry := &models.AccessLogEntry{
		FileID:    fileID,
		ActorID:   actorID,
		Action:    action,
		Outcome:   outcome,
		ClientIP:  client.IP,
		UserAgent: client.UserAgent,
	}
	if err := l.repo.Append(ctx, entry); err != nil {
		l.logger.Warn("failed to write access log entry",
			zap.String("file_id", fileID.String()),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// History returns a file's audit trail, newest first
func (l *AccessLogger) History(ctx context.Context, fileID uuid.UUID, limit, offset int) ([]*models.AccessLogEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return l.repo.ListByFile(ctx, fileID, limit, offset)
}
