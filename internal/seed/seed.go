package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/repositories"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/auth"
)

// CreateDefaultData seeds the default admin and a demo family if they do not
// exist yet. Errors are collected rather than aborting, so a partially seeded
// database still starts.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	userRepo := repositories.NewUserRepository(dbPool)

	lgr.Info().Msg("Checking/Creating default data...")
	var finalErr error

	adminID, err := ensureUser(ctx, userRepo, &models.User{
		Email:     "admin@gradeboard.app",
		FirstName: "Site",
		LastName:  "Admin",
		RoleType:  models.RoleAdmin,
	}, "Admin123!")
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating default admin user")
		finalErr = errors.Join(finalErr, err)
	} else if adminID > 0 {
		lgr.Info().Int64("userID", adminID).Msg("Default admin user ready")
	}

	// Demo family: one parent with two linked students.
	firstChildID, err := ensureUser(ctx, userRepo, &models.User{
		Email:     "carlos.garcia@example.com",
		FirstName: "Carlos",
		LastName:  "Garcia",
		RoleType:  models.RoleStudent,
	}, "Student123!")
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating demo student")
		finalErr = errors.Join(finalErr, err)
	}

	secondChildID, err := ensureUser(ctx, userRepo, &models.User{
		Email:     "lily.garcia@example.com",
		FirstName: "Lily",
		LastName:  "Garcia",
		RoleType:  models.RoleStudent,
	}, "Student123!")
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating demo student")
		finalErr = errors.Join(finalErr, err)
	}

	parentID, err := ensureUser(ctx, userRepo, &models.User{
		Email:     "maria.garcia@example.com",
		FirstName: "Maria",
		LastName:  "Garcia",
		RoleType:  models.RoleParent,
	}, "Parent123!")
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating demo parent")
		finalErr = errors.Join(finalErr, err)
	}

	if parentID > 0 {
		for _, childID := range []int64{firstChildID, secondChildID} {
			if childID <= 0 {
				continue
			}
			if err := userRepo.LinkChild(ctx, parentID, childID); err != nil {
				lgr.Error().Err(err).Int64("childID", childID).Msg("Error linking demo child")
				finalErr = errors.Join(finalErr, err)
			}
		}

		// Give the demo parent a starting selection.
		if firstChildID > 0 {
			parent, err := userRepo.GetByID(ctx, parentID)
			if err != nil {
				finalErr = errors.Join(finalErr, err)
			} else if parent != nil && parent.ActiveChildID == nil {
				if err := userRepo.UpdateActiveChild(ctx, parentID, &firstChildID); err != nil {
					lgr.Error().Err(err).Msg("Error setting demo parent's active child")
					finalErr = errors.Join(finalErr, err)
				}
			}
		}
	}

	return finalErr
}

// ensureUser creates the user if absent and returns its ID either way.
func ensureUser(ctx context.Context, userRepo *repositories.UserRepository, user *models.User, password string) (int64, error) {
	existing, err := userRepo.GetByEmail(ctx, user.Email)
	if err != nil {
		return 0, fmt.Errorf("error checking for existing user %s: %w", user.Email, err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("error hashing password for %s: %w", user.Email, err)
	}
	user.PasswordHash = hashed

	id, err := userRepo.CreateUser(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("error creating user %s: %w", user.Email, err)
	}
	return id, nil
}
