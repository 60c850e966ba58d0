package models

import "time"

// RefreshToken is one login session. Tokens are single use: refreshing revokes the old row.
type RefreshToken struct {
	ID        string     `db:"id" json:"-"`
	UserID    string     `db:"user_id" json:"-"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"-"`
	CreatedAt time.Time  `db:"created_at" json:"-"`
	Revoked   bool       `db:"revoked" json:"-"`
	RevokedAt *time.Time `db:"revoked_at" json:"-"`
	IPAddress string     `db:"ip_address" json:"-"`
	UserAgent string     `db:"user_agent" json:"-"`
}

// Usable reports whether the session can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t != nil && !t.Revoked && now.Before(t.ExpiresAt)
}
