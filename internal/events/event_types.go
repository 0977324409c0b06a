package events

import (
	"time"

	"github.com/spec-kit/ims-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventAssetOrphaned     EventType = "asset_orphaned"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AccountID string      `json:"accountId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccountRegisteredPayload payload.
type AccountRegisteredPayload struct {
	Email       string             `json:"email"`
	RoleName    string             `json:"role"`
	ProfileKind domain.ProfileKind `json:"profileKind"`
	HasAvatar   bool               `json:"hasAvatar"`
}

// AssetOrphanedPayload describes an uploaded asset that no account references.
type AssetOrphanedPayload struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Reason   string `json:"reason"`
}
