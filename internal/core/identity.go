// AngelaMos | 2026
// identity.go

package core

const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Identity is the authenticated caller. The zero value means anonymous.
type Identity struct {
	ID   string
	Role string
}

func (i Identity) IsAuthenticated() bool {
	return i.ID != ""
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
