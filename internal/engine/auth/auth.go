package auth

import (
	"fmt"
	"sort"

	"zenflow/internal/domain"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

const (
	PermUserList      = "user.list"
	PermUserCreate    = "user.create"
	PermUserDelete    = "user.delete"
	PermProjectCreate = "project.create"
	PermProjectDelete = "project.delete"
	PermTaskCreate    = "task.create"
	PermTaskDelete    = "task.delete"
	PermTaskViewAll   = "task.view_all"
	PermLeadRead      = "lead.read"
	PermLeadWrite     = "lead.write"
	PermAIUse         = "ai.use"
)

var rolePermissions = map[domain.Role][]string{
	domain.RoleAdmin: {
		PermUserList, PermUserCreate, PermUserDelete,
		PermProjectCreate, PermProjectDelete,
		PermTaskCreate, PermTaskDelete, PermTaskViewAll,
		PermLeadRead, PermLeadWrite, PermAIUse,
	},
	domain.RoleManager: {
		PermUserList,
		PermProjectCreate,
		PermTaskCreate, PermTaskDelete, PermTaskViewAll,
		PermLeadRead, PermLeadWrite, PermAIUse,
	},
	domain.RoleSeniorPerformer: {},
	domain.RolePerformer:       {},
}

// Has reports whether role grants perm.
func Has(role domain.Role, perm string) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// Require returns a ForbiddenError when role lacks perm.
func Require(role domain.Role, perm string) error {
	if !Has(role, perm) {
		return ForbiddenError{Permission: perm}
	}
	return nil
}

// Permissions lists the permissions granted to role, sorted.
func Permissions(role domain.Role) []string {
	perms := append([]string{}, rolePermissions[role]...)
	sort.Strings(perms)
	return perms
}
