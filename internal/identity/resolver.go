// Package identity decides whose gradebook data a request is allowed to see.
// Every downstream fetch uses the resolved target; permission checks keep
// using the viewer.
package identity

import (
	"context"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/apperrors"
)

// UserLookup is the slice of the user repository the resolver needs.
type UserLookup interface {
	// GetByID returns the user, or nil when no such user exists.
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Resolution is the outcome of resolving a caller: the viewer for audit and
// permission purposes, and the target whose data gets fetched.
type Resolution struct {
	ViewerUserID int64
	TargetUserID int64
	Viewer       *models.User
}

// Resolver turns an authenticated caller into a fetch target.
type Resolver struct {
	users UserLookup
}

// NewResolver creates a Resolver over the given user lookup.
func NewResolver(users UserLookup) *Resolver {
	return &Resolver{users: users}
}

// Resolve applies the visibility rules:
//
//   - no caller identity: NotAuthenticated
//   - admin with an explicit run-as target: target is that user, the viewer
//     stays the admin
//   - non-admin attempting run-as: Forbidden
//   - parent with an active child selected: target is the child
//   - everyone else: target is the caller themselves
//
// The stored active child is trusted as-is; linkage is enforced where the
// profile is mutated, not here.
func (r *Resolver) Resolve(ctx context.Context, viewerUserID, runAsUserID int64) (*Resolution, error) {
	if viewerUserID <= 0 {
		return nil, apperrors.ErrNotAuthenticated
	}

	viewer, err := r.users.GetByID(ctx, viewerUserID)
	if err != nil {
		return nil, err
	}
	if viewer == nil {
		return nil, apperrors.ErrNotAuthenticated
	}

	resolution := &Resolution{
		ViewerUserID: viewer.ID,
		TargetUserID: viewer.ID,
		Viewer:       viewer,
	}

	if runAsUserID > 0 {
		if !viewer.IsAdmin() {
			return nil, apperrors.NewForbiddenError("only admins may run as another user")
		}
		resolution.TargetUserID = runAsUserID
		return resolution, nil
	}

	if viewer.IsParent() && viewer.ActiveChildID != nil {
		resolution.TargetUserID = *viewer.ActiveChildID
	}

	return resolution, nil
}
