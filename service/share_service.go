package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"teamvault-backend/apperr"
	"teamvault-backend/config"
	"teamvault-backend/models"
	"teamvault-backend/repository"
	"teamvault-backend/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// shareTokenBytes gives 256 bits of entropy per token
const shareTokenBytes = 32

// ShareService issues and validates constrained access tokens. Once a
// token is deactivated - explicitly, by expiry, or by hitting its cap -
// it never serves the file again.
type ShareService struct {
	files      repository.FileRepository
	shares     repository.ShareRepository
	backend    storage.Backend
	audit      *AccessLogger
	categories map[models.FileCategory]config.CategoryConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewShareService creates the share service
func NewShareService(
	files repository.FileRepository,
	shares repository.ShareRepository,
	backend storage.Backend,
	audit *AccessLogger,
	categories map[models.FileCategory]config.CategoryConfig,
	logger *zap.Logger,
) *ShareService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShareService{
		files:      files,
		shares:     shares,
		backend:    backend,
		audit:      audit,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
}

// ShareConstraints are the optional limits applied to a new share
type ShareConstraints struct {
	ExpiresAt      *time.Time
	MaxDownloads   *int
	Password       string
	AllowedDomains []string
	RequireAuth    bool
}

// CreateShare issues a new token for a file the actor owns
func (s *ShareService) CreateShare(ctx context.Context, fileID uuid.UUID, actor models.Principal, constraints ShareConstraints, client ClientInfo) (*models.ShareToken, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.SoftDeleted && !actor.Privileged() {
		return nil, apperr.ErrNotFound
	}
	if file.SoftDeleted {
		return nil, fmt.Errorf("file is deleted: %w", apperr.ErrConflict)
	}
	if file.OwnerID != actor.ID && !actor.Privileged() {
		return nil, apperr.ErrForbidden
	}
	if cfg, ok := s.categories[file.Category]; ok && !cfg.AllowSharing {
		return nil, apperr.NewValidation("SHARING_DISABLED",
			"category %q does not support sharing", file.Category)
	}

	if constraints.MaxDownloads != nil && *constraints.MaxDownloads <= 0 {
		return nil, apperr.NewValidation("INVALID_MAX_DOWNLOADS", "max downloads must be positive")
	}
	if constraints.ExpiresAt != nil && !constraints.ExpiresAt.After(s.now()) {
		return nil, apperr.NewValidation("INVALID_EXPIRY", "expiry must be in the future")
	}
	for _, domain := range constraints.AllowedDomains {
		if strings.TrimSpace(domain) == "" {
			return nil, apperr.NewValidation("INVALID_DOMAIN", "allowed domains must not be empty")
		}
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate share token: %w", err)
	}

	share := &models.ShareToken{
		ID:             uuid.New(),
		FileID:         fileID,
		IssuerID:       actor.ID,
		Token:          token,
		ExpiresAt:      constraints.ExpiresAt,
		MaxDownloads:   constraints.MaxDownloads,
		AllowedDomains: constraints.AllowedDomains,
		RequireAuth:    constraints.RequireAuth,
		Active:         true,
	}

	if constraints.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(constraints.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash share password: %w", err)
		}
		share.PasswordHash = string(hash)
	}

	if err := s.shares.Create(ctx, share); err != nil {
		return nil, fmt.Errorf("failed to create share: %w", err)
	}

	s.audit.Log(ctx, fileID, actor.ID, models.ActionShareCreate, models.OutcomeSuccess, client)
	return share, nil
}

// AccessContext carries the request-side facts validateAccess checks
type AccessContext struct {
	Origin    string
	Principal *models.Principal
	Client    ClientInfo
}

// ValidateAccess runs the ordered share checks: existence and active
// flag, expiry (deactivating as a side effect), download cap, origin
// domain, authentication, then password.
func (s *ShareService) ValidateAccess(ctx context.Context, token, password string, reqCtx AccessContext) (*models.ShareToken, error) {
	share, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !share.Active {
		return nil, apperr.ErrNotFound
	}

	if share.Expired(s.now()) {
		if err := s.shares.Deactivate(ctx, share.ID); err != nil {
			s.logger.Warn("failed to deactivate expired share",
				zap.String("share_id", share.ID.String()), zap.Error(err))
		}
		return nil, apperr.ErrExpired
	}

	if share.MaxDownloads != nil && share.DownloadCount >= *share.MaxDownloads {
		return nil, apperr.ErrLimitReached
	}

	if len(share.AllowedDomains) > 0 && !domainAllowed(reqCtx.Origin, share.AllowedDomains) {
		return nil, apperr.ErrForbidden
	}

	if share.RequireAuth && reqCtx.Principal == nil {
		return nil, apperr.ErrUnauthorized
	}

	if share.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(share.PasswordHash), []byte(password)); err != nil {
			return nil, apperr.ErrUnauthorized
		}
	}

	return share, nil
}

// DownloadViaShare validates the token, atomically consumes a download
// slot and returns the verified bytes. Two concurrent calls against a
// cap of one yield exactly one success.
func (s *ShareService) DownloadViaShare(ctx context.Context, token, password string, reqCtx AccessContext) (*models.File, []byte, error) {
	share, err := s.ValidateAccess(ctx, token, password, reqCtx)
	if err != nil {
		return nil, nil, err
	}

	file, err := s.files.GetByID(ctx, share.FileID)
	if err != nil {
		return nil, nil, err
	}
	if file.SoftDeleted {
		return nil, nil, apperr.ErrNotFound
	}

	reader, err := s.backend.Get(ctx, file.StorageKey)
	if err != nil {
		s.logShareAccess(ctx, share, reqCtx, models.OutcomeFailure)
		return nil, nil, err
	}
	defer reader.Close()

	data, err := readAndVerify(reader, file)
	if err != nil {
		s.logShareAccess(ctx, share, reqCtx, models.OutcomeFailure)
		return nil, nil, err
	}

	// The conditional increment is the real gate for the download cap;
	// the ValidateAccess check above only fails fast. It runs after the
	// bytes are verified so a storage or integrity failure cannot use up
	// a capped slot.
	if err := s.shares.ConsumeDownload(ctx, share.ID); err != nil {
		return nil, nil, err
	}

	if share.MaxDownloads != nil {
		if updated, err := s.shares.GetByID(ctx, share.ID); err == nil &&
			updated.DownloadCount >= *updated.MaxDownloads {
			if err := s.shares.Deactivate(ctx, share.ID); err != nil {
				s.logger.Warn("failed to deactivate exhausted share",
					zap.String("share_id", share.ID.String()), zap.Error(err))
			}
		}
	}

	if err := s.files.IncrementDownload(ctx, file.ID, s.now()); err != nil {
		s.logger.Warn("failed to bump download count",
			zap.String("file_id", file.ID.String()), zap.Error(err))
	}

	s.logShareAccess(ctx, share, reqCtx, models.OutcomeSuccess)
	return file, data, nil
}

// RevokeShare deactivates a token; only the issuer, the file owner, or
// a privileged caller may revoke.
func (s *ShareService) RevokeShare(ctx context.Context, shareID uuid.UUID, actor models.Principal, client ClientInfo) error {
	share, err := s.shares.GetByID(ctx, shareID)
	if err != nil {
		return err
	}
	if share.IssuerID != actor.ID && !actor.Privileged() {
		file, err := s.files.GetByID(ctx, share.FileID)
		if err != nil || file.OwnerID != actor.ID {
			return apperr.ErrForbidden
		}
	}
	if err := s.shares.Deactivate(ctx, shareID); err != nil {
		return err
	}
	s.audit.Log(ctx, share.FileID, actor.ID, models.ActionShareRevoke, models.OutcomeSuccess, client)
	return nil
}

// ListShares returns all tokens issued for a file
func (s *ShareService) ListShares(ctx context.Context, fileID uuid.UUID, actor models.Principal) ([]*models.ShareToken, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.SoftDeleted && !actor.Privileged() {
		return nil, apperr.ErrNotFound
	}
	if file.OwnerID != actor.ID && !actor.Privileged() {
		return nil, apperr.ErrForbidden
	}
	return s.shares.ListByFile(ctx, fileID)
}

func (s *ShareService) logShareAccess(ctx context.Context, share *models.ShareToken, reqCtx AccessContext, outcome models.LogOutcome) {
	actorID := uuid.Nil // anonymous unless the request carried a principal
	if reqCtx.Principal != nil {
		actorID = reqCtx.Principal.ID
	}
	s.audit.Log(ctx, share.FileID, actorID, models.ActionShareDownload, outcome, reqCtx.Client)
}

// generateToken draws a URL-safe token from a cryptographically secure source
func generateToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// domainAllowed reports whether origin equals or is a subdomain of any
// allowed entry. Origins may arrive as full URLs or bare hostnames.
func domainAllowed(origin string, allowed []string) bool {
	host := origin
	if strings.Contains(origin, "://") {
		if parsed, err := url.Parse(origin); err == nil && parsed.Hostname() != "" {
			host = parsed.Hostname()
		}
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return false
	}
	for _, domain := range allowed {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
