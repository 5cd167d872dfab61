package services

import (
	"slices"

	"skill-wager-system/settlement"
)

const (
	RoleResolver  = "resolver"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Actor is the authenticated caller as asserted by the gateway.
type Actor struct {
	ID    string
	Roles []string
}

func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// IsResolver reports whether the actor may settle wagers it is not part of.
func (a Actor) IsResolver() bool {
	return a.HasRole(RoleResolver) || a.HasRole(RoleModerator) || a.HasRole(RoleAdmin)
}

func (a Actor) caller() settlement.Caller {
	return settlement.Caller{ID: a.ID, Resolver: a.IsResolver()}
}

// SystemActor is the identity the scheduler acts as.
func SystemActor(id string) Actor {
	return Actor{ID: id, Roles: []string{RoleResolver}}
}
