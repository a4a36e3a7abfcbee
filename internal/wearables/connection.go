package wearables

import "time"

const (
	StatusConnected    = "connected"
	StatusError        = "error"
	StatusDisconnected = "disconnected"
)

// Connection is a user's link to a wearable provider. AccessToken is
// the per-user bearer token used by the provider adapters.
type Connection struct {
	ID          int        `json:"id"`
	UserID      string     `json:"userId"`
	Provider    string     `json:"provider"`
	AccessToken string     `json:"-"`
	Status      string     `json:"status"`
	LastSyncAt  *time.Time `json:"lastSyncAt,omitempty"`
	LastError   *string    `json:"lastError,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
