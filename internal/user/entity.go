// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/carterperez-dev/poin-lunak/internal/core"
)

// User is a member or administrator account. Points and
// MembershipLevel are owned by the loyalty workflows and are only read
// here.
type User struct {
	ID              string    `db:"id"`
	Email           string    `db:"email"`
	PasswordHash    string    `db:"password_hash"`
	Name            string    `db:"name"`
	Role            string    `db:"role"`
	Phone           *string   `db:"phone"`
	Address         *string   `db:"address"`
	JoinDate        time.Time `db:"join_date"`
	Points          int64     `db:"points"`
	MembershipLevel string    `db:"membership_level"`
	Status          string    `db:"status"`
	TokenVersion    int       `db:"token_version"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == core.RoleAdmin
}
