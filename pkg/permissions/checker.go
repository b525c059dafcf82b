// Package permissions maps ledger roles to permission sets and checks them.
//
// Permission Format:
//   - "*" - Full access
//   - "resource.*" - All actions on a resource (e.g., "ledger.*")
//   - "resource.action" - Specific action (e.g., "ledger.sync")
package permissions

import (
	"strings"

	"github.com/stockledger/stockledger-backend/pkg/actor"
)

// Ledger permissions
const (
	LedgerSync       = "ledger.sync"
	LedgerRead       = "ledger.read"
	LedgerReplace    = "ledger.replace"
	LedgerImport     = "ledger.import"
	LedgerEventsEdit = "ledger.events.edit"
	TransfersCreate  = "transfers.create"
	TransfersRead    = "transfers.read"
	TransfersManage  = "transfers.manage"
	BranchesRead     = "branches.read"
	BranchesManage   = "branches.manage"
)

var rolePermissions = map[actor.Role][]string{
	actor.RoleUser: {
		LedgerSync, LedgerRead,
		TransfersCreate, TransfersRead,
		BranchesRead,
	},
	actor.RoleAdmin: {
		"ledger.*",
		"transfers.*",
		BranchesRead,
	},
	actor.RoleSuperAdmin: {"*"},
}

// ForRole returns the permissions granted to a role
func ForRole(role actor.Role) []string {
	return rolePermissions[role]
}

// Allowed reports whether the actor's role grants the permission
func Allowed(a *actor.Actor, required string) bool {
	if a == nil {
		return false
	}
	return HasPermission(ForRole(a.Role), required)
}

// HasPermission checks if the user's permissions include the required permission.
// Supports wildcard matching:
//   - "*" matches everything
//   - "ledger.*" matches "ledger.sync", "ledger.events.edit", etc.
//   - Exact match for specific permissions
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range userPerms {
		if p == "*" || p == required {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, ".*"); ok && strings.HasPrefix(required, prefix+".") {
			return true
		}
	}
	return false
}

// HasAnyPermission checks if the user has any of the required permissions.
func HasAnyPermission(userPerms []string, required []string) bool {
	for _, req := range required {
		if HasPermission(userPerms, req) {
			return true
		}
	}
	return false
}
