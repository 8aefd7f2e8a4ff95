package dto

// LoginRequest is the credential payload for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"parent@example.com"`
	Password string `json:"password" binding:"required" example:"secret"`
}

// RefreshTokenRequest asks for a new access token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenResponse carries an issued token pair
type TokenResponse struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	TokenType        string `json:"tokenType" example:"Bearer"`
	ExpiresIn        int    `json:"expiresIn"`
	RefreshExpiresIn int    `json:"refreshExpiresIn"`
}
