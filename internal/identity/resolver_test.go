package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/apperrors"
)

type fakeLookup struct {
	users map[int64]*models.User
	err   error
}

func (f *fakeLookup) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func TestResolve(t *testing.T) {
	childID := int64(20)
	lookup := &fakeLookup{users: map[int64]*models.User{
		1: {ID: 1, RoleType: models.RoleStudent},
		2: {ID: 2, RoleType: models.RoleParent, ActiveChildID: &childID},
		3: {ID: 3, RoleType: models.RoleParent},
		4: {ID: 4, RoleType: models.RoleAdmin},
	}}
	resolver := NewResolver(lookup)
	ctx := context.Background()

	tests := []struct {
		name       string
		viewerID   int64
		runAsID    int64
		wantViewer int64
		wantTarget int64
		wantErr    error
	}{
		{name: "student views self", viewerID: 1, wantViewer: 1, wantTarget: 1},
		{name: "parent with active child", viewerID: 2, wantViewer: 2, wantTarget: 20},
		{name: "parent without active child falls back to self", viewerID: 3, wantViewer: 3, wantTarget: 3},
		{name: "admin run-as keeps admin as viewer", viewerID: 4, runAsID: 99, wantViewer: 4, wantTarget: 99},
		{name: "student run-as is forbidden", viewerID: 1, runAsID: 99, wantErr: apperrors.ErrPermissionDenied},
		{name: "parent run-as is forbidden", viewerID: 2, runAsID: 99, wantErr: apperrors.ErrPermissionDenied},
		{name: "no session", viewerID: 0, wantErr: apperrors.ErrNotAuthenticated},
		{name: "unknown viewer", viewerID: 77, wantErr: apperrors.ErrNotAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := resolver.Resolve(ctx, tt.viewerID, tt.runAsID)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantViewer, res.ViewerUserID)
			assert.Equal(t, tt.wantTarget, res.TargetUserID)
		})
	}
}

func TestResolve_LookupErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	resolver := NewResolver(&fakeLookup{err: boom})

	_, err := resolver.Resolve(context.Background(), 1, 0)
	require.ErrorIs(t, err, boom)
}
