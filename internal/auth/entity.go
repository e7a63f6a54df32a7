// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// RefreshToken is one link of a rotation chain. Tokens minted from the
// same login share a FamilyID.
type RefreshToken struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	TokenHash    string     `db:"token_hash"`
	FamilyID     string     `db:"family_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	IsUsed       bool       `db:"is_used"`
	UsedAt       *time.Time `db:"used_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	ReplacedByID *string    `db:"replaced_by_id"`
	UserAgent    string     `db:"user_agent"`
	IPAddress    string     `db:"ip_address"`
}

type tokenState int

const (
	tokenLive tokenState = iota
	tokenConsumed
	tokenRevoked
	tokenExpired
)

// state reports where the token is in its lifecycle. A consumed token
// wins over revoked so replays are always detected.
func (t *RefreshToken) state(now time.Time) tokenState {
	switch {
	case t.IsUsed:
		return tokenConsumed
	case t.RevokedAt != nil:
		return tokenRevoked
	case !now.Before(t.ExpiresAt):
		return tokenExpired
	}
	return tokenLive
}
