package authorization

import (
	"errors"
	"strings"
)

// Role is the closed set of actor roles. Roles are totally ordered by
// roleOrder; a higher role holds every permission of the roles below it.
type Role string

const (
	RoleVisitor   Role = "visitor"
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
	RoleStaff     Role = "staff"
	RoleAdmin     Role = "admin"
)

var roleOrder = []Role{
	RoleVisitor,
	RoleDonor,
	RoleVolunteer,
	RoleStaff,
	RoleAdmin,
}

var roleAliases = map[string]Role{
	"internal": RoleStaff,
}

var ErrInvalidRole = errors.New("invalid_role")

// Roles returns the role set in ascending order.
func Roles() []Role {
	out := make([]Role, len(roleOrder))
	copy(out, roleOrder)
	return out
}

// ParseRole normalizes an identity-provider role name.
func ParseRole(raw string) (Role, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := roleAliases[value]; ok {
		return alias, nil
	}
	role := Role(value)
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Rank returns the position of r in the total order, or -1 for unknown roles.
func (r Role) Rank() int {
	for i, candidate := range roleOrder {
		if candidate == r {
			return i
		}
	}
	return -1
}

func (r Role) Valid() bool {
	return r.Rank() >= 0
}

// AtLeast reports whether r is min or above. Unknown roles are never at least anything.
func (r Role) AtLeast(min Role) bool {
	rank := r.Rank()
	if rank < 0 || !min.Valid() {
		return false
	}
	return rank >= min.Rank()
}

func (r Role) String() string {
	return string(r)
}

// Subject is the caller of an operation as supplied by the identity source.
type Subject struct {
	ID   string
	Role Role
}

// Anonymous is the unauthenticated caller.
func Anonymous() Subject {
	return Subject{Role: RoleVisitor}
}

func subjectFor(role Role) string {
	return "role:" + string(role)
}
