package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models/dto"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/repositories"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/apperrors"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/auth"
)

// AuthService handles dashboard session authentication
type AuthService struct {
	userRepo   *repositories.UserRepository
	tokenRepo  *repositories.TokenRepository
	jwtService *auth.JWTService
	refreshExp time.Duration
	log        zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo *repositories.UserRepository, tokenRepo *repositories.TokenRepository, jwtService *auth.JWTService, refreshExp time.Duration, log zerolog.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtService: jwtService,
		refreshExp: refreshExp,
		log:        log,
	}
}

// Login verifies credentials and issues a token pair
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error looking up user: %w", err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// Same error either way so callers cannot probe for accounts.
		return nil, apperrors.ErrInvalidCredentials
	}

	accessToken, refreshToken, expiresIn, refreshExpiresIn, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("error generating tokens: %w", err)
	}

	if err := s.tokenRepo.CreateToken(ctx, refreshToken, user.ID, time.Now().Add(s.refreshExp)); err != nil {
		return nil, fmt.Errorf("error persisting refresh token: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		// Not worth failing the login over.
		s.log.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to update last login")
	}

	return &dto.TokenResponse{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        expiresIn,
		RefreshExpiresIn: refreshExpiresIn,
	}, nil
}

// RefreshToken exchanges a valid refresh token for a new token pair. The old
// refresh token is revoked; refresh tokens are single-use.
func (s *AuthService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	userID, expiryDate, isRevoked, err := s.tokenRepo.GetTokenByValue(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if isRevoked {
		return nil, apperrors.ErrTokenRevoked
	}
	if time.Now().After(expiryDate) {
		return nil, apperrors.ErrTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error looking up user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	if err := s.tokenRepo.RevokeToken(ctx, req.RefreshToken); err != nil {
		return nil, fmt.Errorf("error revoking refresh token: %w", err)
	}

	accessToken, refreshToken, expiresIn, refreshExpiresIn, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("error generating tokens: %w", err)
	}

	if err := s.tokenRepo.CreateToken(ctx, refreshToken, user.ID, time.Now().Add(s.refreshExp)); err != nil {
		return nil, fmt.Errorf("error persisting refresh token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        expiresIn,
		RefreshExpiresIn: refreshExpiresIn,
	}, nil
}
