package entities

import apperrors "site-entry/pkg/errors"

type Role string

const (
	RoleOwner Role = "owner"
	RoleBP    Role = "bp"
	RoleEP    Role = "ep"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleOwner, RoleBP, RoleEP, RoleAdmin:
		return r, nil
	}
	return "", apperrors.DataIntegrity("unknown role %q", s)
}

// Actor is the resolved identity of the caller.
type Actor struct {
	UserID    int64 `json:"userId"`
	Role      Role  `json:"role"`
	CompanyID int64 `json:"companyId"`
}

func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
