package authz

import (
	"sort"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
)

// Permission is a named capability gated by a minimum role.
type Permission string

const (
	PermCompanyCreate Permission = "company:create"
	PermCompanyEdit   Permission = "company:edit"
	PermCompanyDelete Permission = "company:delete"

	PermContactCreate Permission = "contact:create"
	PermContactEdit   Permission = "contact:edit"
	PermContactDelete Permission = "contact:delete"

	PermDealView   Permission = "deal:view"
	PermDealCreate Permission = "deal:create"
	PermDealEdit   Permission = "deal:edit"
	PermDealDelete Permission = "deal:delete"

	PermActivityCreate Permission = "activity:create"
	// PermActivityManage allows editing and deleting activities written by others.
	PermActivityManage Permission = "activity:manage"

	PermTaskCreate Permission = "task:create"
	PermTaskEdit   Permission = "task:edit"
	PermTaskDelete Permission = "task:delete"
	PermTaskManage Permission = "task:manage"

	PermDashboardView Permission = "dashboard:view"

	PermMemberInvite   Permission = "member:invite"
	PermMemberEditRole Permission = "member:edit-role"
	PermMemberRemove   Permission = "member:remove"

	PermOrganizationEdit   Permission = "organization:edit"
	PermOrganizationDelete Permission = "organization:delete"
)

var roleLevels = map[models.OrganizationRole]int{
	models.RoleMember: 1,
	models.RoleAdmin:  2,
	models.RoleOwner:  3,
}

// minimumRole is the whole permission model. Adding a permission means adding a row.
var minimumRole = map[Permission]models.OrganizationRole{
	PermCompanyCreate: models.RoleMember,
	PermCompanyEdit:   models.RoleMember,
	PermCompanyDelete: models.RoleAdmin,

	PermContactCreate: models.RoleMember,
	PermContactEdit:   models.RoleMember,
	PermContactDelete: models.RoleAdmin,

	PermDealView:   models.RoleMember,
	PermDealCreate: models.RoleMember,
	PermDealEdit:   models.RoleMember,
	PermDealDelete: models.RoleOwner,

	PermActivityCreate: models.RoleMember,
	PermActivityManage: models.RoleAdmin,

	PermTaskCreate: models.RoleMember,
	PermTaskEdit:   models.RoleMember,
	PermTaskDelete: models.RoleMember,
	PermTaskManage: models.RoleAdmin,

	PermDashboardView: models.RoleMember,

	PermMemberInvite:   models.RoleAdmin,
	PermMemberEditRole: models.RoleAdmin,
	PermMemberRemove:   models.RoleAdmin,

	PermOrganizationEdit:   models.RoleAdmin,
	PermOrganizationDelete: models.RoleOwner,
}

// Level returns the rank of a role; unknown roles rank 0.
func Level(role models.OrganizationRole) int {
	return roleLevels[role]
}

// AtLeast reports whether role ranks at or above min.
func AtLeast(role, min models.OrganizationRole) bool {
	return Level(role) > 0 && Level(role) >= Level(min)
}

// Can reports whether role is granted permission. Unmapped permissions and
// unknown roles are denied.
func Can(role models.OrganizationRole, permission Permission) bool {
	min, ok := minimumRole[permission]
	if !ok {
		return false
	}
	return AtLeast(role, min)
}

// MinimumRole returns the lowest role holding permission.
func MinimumRole(permission Permission) (models.OrganizationRole, bool) {
	role, ok := minimumRole[permission]
	return role, ok
}

// AllPermissions lists every known permission in lexical order.
func AllPermissions() []Permission {
	perms := make([]Permission, 0, len(minimumRole))
	for p := range minimumRole {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// PermissionsForRole lists every permission granted to role in lexical order.
func PermissionsForRole(role models.OrganizationRole) []Permission {
	var perms []Permission
	for _, p := range AllPermissions() {
		if Can(role, p) {
			perms = append(perms, p)
		}
	}
	return perms
}
