package models

import "strings"

// Role is the election duty an identity acts under.
type Role string

const (
	RoleNone     Role = ""
	RoleOfficer  Role = "officer"
	RoleVerifier Role = "verifier"
	RoleAdmin    Role = "admin"
)

// roleNames is the complete set of accepted spellings.
var roleNames = map[string]Role{
	"officer":           RoleOfficer,
	"field_officer":     RoleOfficer,
	"presiding_officer": RoleOfficer,
	"verifier":          RoleVerifier,
	"returning_officer": RoleVerifier,
	"admin":             RoleAdmin,
	"administrator":     RoleAdmin,
}

// ParseRole maps a role name to a Role. Unrecognized names map to RoleNone,
// which is permitted to do nothing.
func ParseRole(raw string) Role {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	return roleNames[key]
}

func (r Role) CanSubmit() bool {
	return r == RoleOfficer || r == RoleAdmin
}

func (r Role) CanVerify() bool {
	return r == RoleVerifier || r == RoleAdmin
}
