package handler

import (
	"time"

	"github.com/google/uuid"
	appidentity "github.com/neuronek/backend/internal/application/identity"
)

// LoginRequest represents the request body for login
type LoginRequest struct {
	// Identifier is a username or an email address
	Identifier string `json:"identifier" binding:"required,max=254" example:"alice"`
	Password   string `json:"password" binding:"required,max=128" example:"correct horse 1"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse represents the token data in auth responses
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type" example:"Bearer"`
}

// AuthAccountResponse represents the authenticated account
type AuthAccountResponse struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Permissions   []string  `json:"permissions"`
	RoleIDs       []string  `json:"role_ids"`
}

// LoginResponse represents the response body for successful login
type LoginResponse struct {
	Token   TokenResponse       `json:"token"`
	Account AuthAccountResponse `json:"account"`
}

// RefreshTokenResponse represents the response body for successful token refresh
type RefreshTokenResponse struct {
	Token TokenResponse `json:"token"`
}

func toTokenResponse(r appidentity.TokenResult) TokenResponse {
	return TokenResponse{
		AccessToken:           r.AccessToken,
		RefreshToken:          r.RefreshToken,
		AccessTokenExpiresAt:  r.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: r.RefreshTokenExpiresAt,
		TokenType:             r.TokenType,
	}
}

func toAuthAccountResponse(info appidentity.AccountInfo) AuthAccountResponse {
	roleIDs := make([]string, len(info.RoleIDs))
	for i, id := range info.RoleIDs {
		roleIDs[i] = id.String()
	}
	permissions := info.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	return AuthAccountResponse{
		ID:            info.ID,
		Username:      info.Username,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Permissions:   permissions,
		RoleIDs:       roleIDs,
	}
}
