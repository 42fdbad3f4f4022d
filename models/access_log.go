package models

import (
	"time"

	"github.com/google/uuid"
)

// LogAction identifies the operation an access log entry records
type LogAction string

const (
	ActionUpload        LogAction = "upload"
	ActionDownload      LogAction = "download"
	ActionUpdate        LogAction = "update"
	ActionDelete        LogAction = "delete"
	ActionPurge         LogAction = "purge"
	ActionVersionCreate LogAction = "version_create"
	ActionRestore       LogAction = "restore"
	ActionShareCreate   LogAction = "share_create"
	ActionShareDownload LogAction = "share_download"
	ActionShareRevoke   LogAction = "share_revoke"
)

// LogOutcome is the result recorded for an action
type LogOutcome string

const (
	OutcomeSuccess LogOutcome = "success"
	OutcomeDenied  LogOutcome = "denied"
	OutcomeFailure LogOutcome = "failure"
)

// AccessLogEntry is an append-only audit record. Entries are never
// mutated or deleted except by a full purge of the file they belong to.
type AccessLogEntry struct {
	ID        int64      `json:"id"`
	FileID    uuid.UUID  `json:"file_id"`
	ActorID   uuid.UUID  `json:"actor_id"`
	Action    LogAction  `json:"action"`
	Outcome   LogOutcome `json:"outcome"`
	ClientIP  string     `json:"client_ip,omitempty"`
	UserAgent string     `json:"user_agent,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
