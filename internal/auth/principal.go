package auth

import "slices"

// RoleAdmin may upload statements.
const RoleAdmin = "admin"

// Principal is the authenticated caller.
type Principal struct {
	Subject    string
	Name       string
	CustomerID string
	Roles      []string
}

// Actor names the caller in audit records.
func (p Principal) Actor() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.Subject != "":
		return p.Subject
	default:
		return "unknown"
	}
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}
