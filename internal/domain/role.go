package domain

import (
	"fmt"
	"strings"
)

// Role is the authorization tier of a profile. Tiers are totally ordered.
type Role int

const (
	RoleStaff Role = iota + 1
	RoleAdmin
	RoleSuperAdmin
)

var roleNames = map[Role]string{
	RoleStaff:      "staff",
	RoleAdmin:      "admin",
	RoleSuperAdmin: "super-admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r grants every privilege of min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r >= min
}

func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", s)}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
