package domain

import (
	"errors"
	"time"
)

// ErrUnknownMerchant reports an operation against a shop domain that never
// installed the app.
var ErrUnknownMerchant = errors.New("unknown merchant")

// Merchant represents an installed shop. The shop domain is the identity.
// Merchants are never hard-deleted: uninstalling flips Active to false so
// audit history and recorded events survive a reinstall.
type Merchant struct {
	Domain      string     `json:"domain" bson:"domain"`
	AccessToken string     `json:"-" bson:"access_token"` // encrypted at rest
	Scopes      string     `json:"scopes" bson:"scopes"`
	Active      bool       `json:"active" bson:"active"`
	InstalledAt time.Time  `json:"installed_at" bson:"installed_at"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty" bson:"last_sync_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}
