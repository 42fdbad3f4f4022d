package models

import (
	"time"

	"github.com/google/uuid"
)

// ShareToken grants constrained access to a single file.
// The password, if any, is only ever held as a bcrypt hash.
type ShareToken struct {
	ID             uuid.UUID  `json:"id"`
	FileID         uuid.UUID  `json:"file_id"`
	IssuerID       uuid.UUID  `json:"issuer_id"`
	Token          string     `json:"token"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	MaxDownloads   *int       `json:"max_downloads,omitempty"`
	DownloadCount  int        `json:"download_count"`
	PasswordHash   string     `json:"-"`
	AllowedDomains []string   `json:"allowed_domains,omitempty"`
	RequireAuth    bool       `json:"require_auth"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Expired reports whether the token's expiry has passed at now
func (s *ShareToken) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}
