package authz

import "github.com/adonisja/tyche-finance-sub001/pkg/domain"

// CheckPermission applies the fine-grained permission rule on top of the
// role check:
//
//   - no required permission: the role check alone suffices
//   - admin: universal access, an explicit short-circuit rather than an
//     emergent property of the permission set
//   - otherwise: exact membership of the resource:action:scope triple
//
// There is no wildcard or prefix matching; see DESIGN.md open questions.
func CheckPermission(p domain.Principal, required domain.Permission) bool {
	if required == "" {
		return true
	}
	if p.Role == domain.RoleAdmin {
		return true
	}
	return p.Permissions.Contains(required)
}
