package models

import "strings"

// Role is the single enumerated role claim carried by a principal.
type Role string

const (
	RoleRequester  Role = "REQUESTER"
	RoleApprover   Role = "APPROVER"
	RoleDispatcher Role = "DISPATCHER"
	RoleHauler     Role = "HAULER"
	RoleProcessor  Role = "PROCESSOR"
)

// ParseRole normalizes a raw claim value into a Role. The bool is false for
// unrecognized values.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleRequester:
		return RoleRequester, true
	case RoleApprover:
		return RoleApprover, true
	case RoleDispatcher:
		return RoleDispatcher, true
	case RoleHauler:
		return RoleHauler, true
	case RoleProcessor:
		return RoleProcessor, true
	}
	return "", false
}

func (r Role) String() string {
	return string(r)
}
