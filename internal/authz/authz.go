// Package authz maps roles to the capabilities they carry. Every permission
// question in the API funnels through Allow or RequireRole instead of ad hoc
// role string comparisons in handlers.
package authz

import (
	"github.com/dharmikvarsani/task-management/internal/apperrors"
	"github.com/dharmikvarsani/task-management/internal/models"
)

// Capability names one action a role may be permitted to perform.
type Capability uint

const (
	CapManageUsers Capability = iota // create, update, delete users
	CapListUsers
	CapCreateTask
	CapUpdateTask // manager field-level task update
	CapDeleteTask
	CapReassignTask
	CapChangeStatus
	CapViewAllTasks
	CapViewOwnDevelopers
)

type capSet map[Capability]struct{}

func caps(cs ...Capability) capSet {
	s := make(capSet, len(cs))
	for _, c := range cs {
		s[c] = struct{}{}
	}
	return s
}

// roleCaps is the single source of truth for what each role variant may do.
var roleCaps = map[models.Role]capSet{
	models.RoleManager: caps(
		CapManageUsers, CapListUsers,
		CapCreateTask, CapUpdateTask, CapDeleteTask,
		CapViewAllTasks,
	),
	models.RoleTL: caps(
		CapReassignTask, CapChangeStatus, CapViewOwnDevelopers,
	),
	models.RoleDeveloper: caps(
		CapChangeStatus,
	),
}

// Allow reports whether the role carries the capability.
func Allow(role models.Role, capability Capability) bool {
	_, ok := roleCaps[role][capability]
	return ok
}

// RequireCapability returns ErrForbidden unless the role carries the capability.
func RequireCapability(role models.Role, capability Capability) error {
	if !Allow(role, capability) {
		return apperrors.ErrForbidden
	}
	return nil
}

// RequireRole returns ErrForbidden unless role is one of the allowed roles.
// A missing identity is the middleware's concern; by the time a handler calls
// this, absence has already been rejected as Unauthorized.
func RequireRole(role models.Role, allowed ...models.Role) error {
	for _, r := range allowed {
		if role == r {
			return nil
		}
	}
	return apperrors.ErrForbidden
}
