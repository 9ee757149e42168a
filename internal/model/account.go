package model

import "time"

// Account binds one external provider identity to a local user. The pair
// (provider, provider_account_id) identifies the external identity and maps to
// exactly one user for its lifetime; only the token fields are ever updated.
type Account struct {
	ID                string    `bson:"_id"                 json:"id"`
	UserID            string    `bson:"user_id"             json:"user_id"`
	Provider          string    `bson:"provider"            json:"provider"`
	ProviderAccountID string    `bson:"provider_account_id" json:"provider_account_id"`
	Email             string    `bson:"email"               json:"email"`
	AccessToken       string    `bson:"access_token"        json:"-"`
	RefreshToken      *string   `bson:"refresh_token,omitempty" json:"-"`
	ExpiresAt         *int64    `bson:"expires_at,omitempty"    json:"-"`
	CreatedAt         time.Time `bson:"created_at"          json:"created_at"`
}
