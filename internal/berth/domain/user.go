package domain

import "time"

// Role is the closed set of access levels a user can hold.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole validates a stored or submitted role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", ErrValidation
	}
}

// Quota holds the per-user resource ceilings checked before a deploy is
// forwarded to the cluster.
type Quota struct {
	MaxContainers int
	MaxCPUs       float64
	MaxRAMMB      int
	MaxStorageGB  int
}

// DefaultQuota applies to users provisioned on first directory login.
func DefaultQuota() Quota {
	return Quota{
		MaxContainers: 5,
		MaxCPUs:       2.0,
		MaxRAMMB:      1024,
		MaxStorageGB:  10,
	}
}

type User struct {
	ID       string
	Username string
	FullName string

	// PasswordHash is empty for directory-only users; they authenticate
	// through the external directory and have no local credential.
	PasswordHash string

	Role      Role
	Quota     Quota
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin is the single role check consulted by every gated operation.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
