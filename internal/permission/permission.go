package permission

// Tenant-scoped roles
const (
	RoleOwner      = "owner"
	RoleManager    = "manager"
	RoleTechnician = "technician"
)

// Global (platform) roles
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
)

// ActionAll matches every action on a resource
const ActionAll = "*"

// Permission grants a set of actions on a single resource
type Permission struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

// RolePermissions attaches a permission list and description to one role
type RolePermissions struct {
	Role        string       `json:"role"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

// rolePermissions is the static table consulted by every permission check.
// Roles and resources not listed here are denied.
var rolePermissions = map[string]RolePermissions{
	RoleOwner: {
		Role:        RoleOwner,
		Description: "Shop owner with full control over the tenant",
		Permissions: []Permission{
			{Resource: "work_orders", Actions: []string{ActionAll}},
			{Resource: "vehicles", Actions: []string{ActionAll}},
			{Resource: "users", Actions: []string{"create", "read", "update", "delete", "manage_roles"}},
			{Resource: "invoices", Actions: []string{ActionAll}},
			{Resource: "reports", Actions: []string{"read", "export"}},
			{Resource: "settings", Actions: []string{"read", "update"}},
			{Resource: "subscription", Actions: []string{"read", "update", "cancel"}},
		},
	},
	RoleManager: {
		Role:        RoleManager,
		Description: "Shop manager handling day-to-day operations",
		Permissions: []Permission{
			{Resource: "work_orders", Actions: []string{"create", "read", "update", "delete", "assign"}},
			{Resource: "vehicles", Actions: []string{"create", "read", "update", "delete"}},
			{Resource: "users", Actions: []string{"create", "read", "update"}},
			{Resource: "invoices", Actions: []string{"create", "read", "update"}},
			{Resource: "reports", Actions: []string{"read"}},
			{Resource: "settings", Actions: []string{"read"}},
			{Resource: "subscription", Actions: []string{"read"}},
		},
	},
	RoleTechnician: {
		Role:        RoleTechnician,
		Description: "Technician working on assigned work orders",
		Permissions: []Permission{
			{Resource: "work_orders", Actions: []string{"read", "update"}},
			{Resource: "vehicles", Actions: []string{"read"}},
			{Resource: "users", Actions: []string{"read"}},
			{Resource: "invoices", Actions: []string{"read"}},
		},
	},
	RoleAdmin: {
		Role:        RoleAdmin,
		Description: "Platform admin operating across tenants",
		Permissions: []Permission{
			{Resource: "work_orders", Actions: []string{ActionAll}},
			{Resource: "vehicles", Actions: []string{ActionAll}},
			{Resource: "users", Actions: []string{ActionAll}},
			{Resource: "invoices", Actions: []string{ActionAll}},
			{Resource: "reports", Actions: []string{ActionAll}},
			{Resource: "settings", Actions: []string{ActionAll}},
			{Resource: "subscription", Actions: []string{ActionAll}},
			{Resource: "tenants", Actions: []string{"read", "update", "suspend"}},
			{Resource: "analytics", Actions: []string{"read"}},
		},
	},
	RoleSuperAdmin: {
		Role:        RoleSuperAdmin,
		Description: "Platform super admin with unrestricted access",
		Permissions: []Permission{
			{Resource: "work_orders", Actions: []string{ActionAll}},
			{Resource: "vehicles", Actions: []string{ActionAll}},
			{Resource: "users", Actions: []string{ActionAll}},
			{Resource: "invoices", Actions: []string{ActionAll}},
			{Resource: "reports", Actions: []string{ActionAll}},
			{Resource: "settings", Actions: []string{ActionAll}},
			{Resource: "subscription", Actions: []string{ActionAll}},
			{Resource: "tenants", Actions: []string{ActionAll}},
			{Resource: "analytics", Actions: []string{ActionAll}},
			{Resource: "billing", Actions: []string{ActionAll}},
		},
	},
}

// roleLevels orders roles for level comparisons. Unknown roles map to 0.
var roleLevels = map[string]int{
	RoleTechnician: 1,
	RoleManager:    2,
	RoleOwner:      3,
	RoleAdmin:      4,
	RoleSuperAdmin: 5,
}

// HasPermission reports whether the role may perform action on resource.
// Unknown roles and resources deny.
func HasPermission(role, resource, action string) bool {
	rp, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range rp.Permissions {
		if p.Resource != resource {
			continue
		}
		for _, a := range p.Actions {
			if a == ActionAll || a == action {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission reports whether the role may perform at least one of the actions
func HasAnyPermission(role, resource string, actions []string) bool {
	for _, action := range actions {
		if HasPermission(role, resource, action) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the role may perform every one of the actions
func HasAllPermissions(role, resource string, actions []string) bool {
	for _, action := range actions {
		if !HasPermission(role, resource, action) {
			return false
		}
	}
	return true
}

// AvailableActions returns the role's action set for a resource, empty if none
func AvailableActions(role, resource string) []string {
	rp, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	for _, p := range rp.Permissions {
		if p.Resource == resource {
			out := make([]string, len(p.Actions))
			copy(out, p.Actions)
			return out
		}
	}
	return nil
}

// RoleLevel returns the numeric level for a role, 0 for unknown roles
func RoleLevel(role string) int {
	return roleLevels[role]
}

// HasRoleLevel reports whether role is at least as privileged as requiredRole
func HasRoleLevel(role, requiredRole string) bool {
	return RoleLevel(role) >= RoleLevel(requiredRole)
}

// Describe returns the RolePermissions record for a role (e.g. for the /me endpoint)
func Describe(role string) (RolePermissions, bool) {
	rp, ok := rolePermissions[role]
	return rp, ok
}

// IsGlobalRole reports whether the role is a platform-level role
func IsGlobalRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}
