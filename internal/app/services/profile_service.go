package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models/dto"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/repositories"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/apperrors"
)

// ProfileService exposes the viewer's own profile and the parent's
// active-child selection. Child linkage is enforced here, at the mutation
// boundary; the identity resolver trusts whatever is stored.
type ProfileService struct {
	userRepo *repositories.UserRepository
	log      zerolog.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(userRepo *repositories.UserRepository, log zerolog.Logger) *ProfileService {
	return &ProfileService{userRepo: userRepo, log: log}
}

// GetProfile returns the viewer's profile, with linked children for parents
func (s *ProfileService) GetProfile(ctx context.Context, viewerUserID int64) (*dto.ProfileResponse, error) {
	user, err := s.userRepo.GetByID(ctx, viewerUserID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	response := &dto.ProfileResponse{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		RoleType:      string(user.RoleType),
		ActiveChildID: user.ActiveChildID,
	}

	if user.IsParent() {
		children, err := s.userRepo.GetChildren(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("error retrieving children: %w", err)
		}
		for _, child := range children {
			response.Children = append(response.Children, dto.ChildInfo{
				ID:        child.ID,
				FirstName: child.FirstName,
				LastName:  child.LastName,
			})
		}
	}

	return response, nil
}

// SetActiveChild selects which linked child the parent is viewing. Only
// parents may call this, and only for children actually linked to them.
func (s *ProfileService) SetActiveChild(ctx context.Context, viewerUserID, childID int64) error {
	user, err := s.userRepo.GetByID(ctx, viewerUserID)
	if err != nil {
		return fmt.Errorf("error retrieving user: %w", err)
	}
	if user == nil {
		return apperrors.ErrUserNotFound
	}
	if !user.IsParent() {
		return apperrors.NewForbiddenError("only parents can select an active child")
	}

	linked, err := s.userRepo.IsChildLinked(ctx, viewerUserID, childID)
	if err != nil {
		return fmt.Errorf("error checking child link: %w", err)
	}
	if !linked {
		return apperrors.ErrChildNotLinked
	}

	if err := s.userRepo.UpdateActiveChild(ctx, viewerUserID, &childID); err != nil {
		return err
	}

	s.log.Info().Int64("parentID", viewerUserID).Int64("childID", childID).Msg("Active child updated")
	return nil
}
