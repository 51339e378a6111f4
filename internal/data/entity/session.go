package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is issued by the identity service; this service only reads it.
type Session struct {
	BaseSimple
	UserID    uuid.UUID  `db:"user_id"`
	Token     uuid.UUID  `db:"token"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}

// ValidAt reports whether the session can authenticate a request at now.
func (s *Session) ValidAt(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
