package service

import (
	"context"

	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/errors"
)

// resolveWriteBranch picks the branch a write lands in: the requested one,
// else the actor's own, else the lowest-id branch. Only superadmins may
// name a branch other than their own.
func resolveWriteBranch(ctx context.Context, branches BranchStore, a *actor.Actor, requested *int64) (int64, error) {
	if a == nil {
		return 0, errors.Unauthorized("authentication required")
	}
	if requested != nil {
		if !a.CanAccessBranch(*requested) {
			return 0, errors.Forbidden("cannot write to another branch")
		}
		if _, err := branches.GetByID(ctx, *requested); err != nil {
			return 0, err
		}
		return *requested, nil
	}
	if a.BranchID != nil {
		return *a.BranchID, nil
	}
	first, err := branches.First(ctx)
	if err != nil {
		return 0, err
	}
	return first.ID, nil
}

// readScope returns the branch filter for a read. Superadmins may read any
// branch or, with no filter, all of them; everyone else reads their own.
func readScope(a *actor.Actor, requested *int64) (*int64, error) {
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if a.IsSuperAdmin() {
		return requested, nil
	}
	if a.BranchID == nil {
		return nil, errors.Forbidden("no branch assigned")
	}
	if requested != nil && *requested != *a.BranchID {
		return nil, errors.Forbidden("cannot read another branch")
	}
	own := *a.BranchID
	return &own, nil
}

// adminScope returns the branch restriction for administrative edits:
// nil for superadmins, the admin's own branch otherwise.
func adminScope(a *actor.Actor) (*int64, error) {
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if !a.IsAdmin() {
		return nil, errors.Forbidden("administrator role required")
	}
	if a.IsSuperAdmin() {
		return nil, nil
	}
	if a.BranchID == nil {
		return nil, errors.Forbidden("no branch assigned")
	}
	own := *a.BranchID
	return &own, nil
}
