package model

import "time"

// User represents a registered user. A user is created exactly once, either
// through the credentials path or through an OAuth provider, and is looked up
// by its unique email afterwards.
type User struct {
	ID            string    `bson:"_id"            json:"id"`
	Name          string    `bson:"name"           json:"name"`
	Email         string    `bson:"email"          json:"email"`
	EmailVerified bool      `bson:"email_verified" json:"email_verified"`
	Password      *string   `bson:"password,omitempty" json:"-"`
	Image         *string   `bson:"image,omitempty"    json:"image"`
	CreatedAt     time.Time `bson:"created_at"     json:"created_at"`
}

// HasPassword reports whether the user can authenticate with a password.
// Users created through an OAuth provider have no password record.
func (u *User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}
