package service

import (
	"context"
	"time"

	"teamvault-backend/models"
	"teamvault-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// systemActor performs background maintenance with full privileges
var systemActor = models.Principal{ID: uuid.Nil, Role: "admin"}

// Maintenance runs the periodic sweeps: deactivating expired share
// tokens, soft-deleting expired records, and purging soft deletes past
// the retention window. Every step only moves records toward a terminal
// state, so the sweeper needs no coordination with user operations.
type Maintenance struct {
	files       repository.FileRepository
	shares      repository.ShareRepository
	fileService *FileService
	cache       *MetadataCache
	retention   time.Duration
	interval    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewMaintenance creates the maintenance sweeper
func NewMaintenance(
	files repository.FileRepository,
	shares repository.ShareRepository,
	fileService *FileService,
	cache *MetadataCache,
	retention, interval time.Duration,
	logger *zap.Logger,
) *Maintenance {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Maintenance{
		files:       files,
		shares:      shares,
		fileService: fileService,
		cache:       cache,
		retention:   retention,
		interval:    interval,
		logger:      logger,
		now:         time.Now,
	}
}

// Start runs the sweep loop until the context is cancelled
func (m *Maintenance) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce executes a single maintenance sweep
func (m *Maintenance) RunOnce(ctx context.Context) {
	now := m.now()

	deactivated, err := m.shares.DeactivateExpired(ctx, now)
	if err != nil {
		m.logger.Error("failed to deactivate expired shares", zap.Error(err))
	} else if deactivated > 0 {
		m.logger.Info("deactivated expired shares", zap.Int64("count", deactivated))
	}

	expired, err := m.files.ListExpired(ctx, now)
	if err != nil {
		m.logger.Error("failed to list expired files", zap.Error(err))
	}
	for _, file := range expired {
		if err := m.fileService.SoftDelete(ctx, file.ID, systemActor, ClientInfo{}); err != nil {
			m.logger.Warn("failed to soft-delete expired file",
				zap.String("file_id", file.ID.String()), zap.Error(err))
		}
	}

	purgeable, err := m.files.ListPurgeable(ctx, now.Add(-m.retention))
	if err != nil {
		m.logger.Error("failed to list purgeable files", zap.Error(err))
	}
	for _, file := range purgeable {
		if err := m.fileService.Purge(ctx, file.ID, systemActor, ClientInfo{}); err != nil {
			m.logger.Warn("failed to purge file past retention",
				zap.String("file_id", file.ID.String()), zap.Error(err))
		}
	}

	if dropped := m.cache.Sweep(); dropped > 0 {
		m.logger.Debug("swept metadata cache", zap.Int("dropped", dropped))
	}
}
