// Package actor carries the authenticated caller through every ledger call.
//
// The identity provider authenticates users; this service only consumes
// the resulting (id, name, role, branch) tuple.
package actor

import (
	"context"
	"fmt"
	"strconv"
)

// Role is the caller's privilege level
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the identity provider's user id
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`

	// BranchID is nil for superadmins, meaning all branches
	BranchID *int64 `json:"branch_id,omitempty"`
}

// IsAdmin reports whether the actor may run administrative operations
func (a *Actor) IsAdmin() bool {
	return a != nil && (a.Role == RoleAdmin || a.Role == RoleSuperAdmin)
}

// IsSuperAdmin reports whether the actor spans all branches
func (a *Actor) IsSuperAdmin() bool {
	return a != nil && a.Role == RoleSuperAdmin
}

// CanAccessBranch reports whether the actor may read or write the given branch
func (a *Actor) CanAccessBranch(branchID int64) bool {
	if a == nil {
		return false
	}
	if a.IsSuperAdmin() {
		return true
	}
	return a.BranchID != nil && *a.BranchID == branchID
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	branch := "all"
	if a.BranchID != nil {
		branch = strconv.FormatInt(*a.BranchID, 10)
	}
	return fmt.Sprintf("%s (%s, branch %s)", a.Name, a.Role, branch)
}

type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present.
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor is used for background jobs and trusted bulk loads.
func SystemActor() *Actor {
	return &Actor{
		ID:   "system",
		Name: "System",
		Role: RoleSuperAdmin,
	}
}

// UserCache is the locally cached copy of an identity provider user,
// kept current from user events.
type UserCache struct {
	UserID   string `json:"user_id" db:"user_id"`
	Name     string `json:"name" db:"name"`
	Role     string `json:"role" db:"role"`
	BranchID *int64 `json:"branch_id" db:"branch_id"`
}

// ToActor converts a UserCache entry to an Actor.
func (uc *UserCache) ToActor() *Actor {
	if uc == nil {
		return nil
	}
	return &Actor{
		ID:       uc.UserID,
		Name:     uc.Name,
		Role:     Role(uc.Role),
		BranchID: uc.BranchID,
	}
}
