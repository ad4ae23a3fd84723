package handler

import (
	"github.com/gin-gonic/gin"
	appidentity "github.com/neuronek/backend/internal/application/identity"
	"github.com/neuronek/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login godoc
// @ID           login
// @Summary      Log in
// @Description  Authenticate with a username or email and a password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} APIResponse[LoginResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), appidentity.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		IP:         c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, LoginResponse{
		Token:   toTokenResponse(result.TokenResult),
		Account: toAuthAccountResponse(result.Account),
	})
}

// Refresh godoc
// @ID           refreshToken
// @Summary      Refresh access token
// @Description  Exchange a refresh token for a new token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} APIResponse[RefreshTokenResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), appidentity.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RefreshTokenResponse{Token: toTokenResponse(*result)})
}

// Logout godoc
// @ID           logout
// @Summary      Log out
// @Description  Revoke the presented access token
// @Tags         auth
// @Produce      json
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	accountID, err := claims.AccountUUID()
	if err != nil {
		h.Unauthorized(c, "Invalid account in token")
		return
	}

	input := appidentity.LogoutInput{
		AccountID: accountID,
		TokenJTI:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		input.ExpiresAt = claims.ExpiresAt.Time
	}
	if err := h.authService.Logout(c.Request.Context(), input); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Me godoc
// @ID           getAuthMe
// @Summary      Current account
// @Description  The authenticated account with its effective permissions
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[AuthAccountResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}

	info, err := h.authService.Me(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAuthAccountResponse(*info))
}
