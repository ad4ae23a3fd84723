package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/neuronek/backend/internal/application/identity"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(svc *mockAuthService, accountID uuid.UUID, expiresAt time.Time) *gin.Engine {
	h := NewAuthHandler(svc)
	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)
	authed := r.Group("/", withAccount(accountID, expiresAt))
	authed.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)
	r.GET("/anonymous/me", h.Me)
	return r
}

func testTokens() appidentity.TokenResult {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return appidentity.TokenResult{
		AccessToken:           "access",
		RefreshToken:          "refresh",
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshTokenExpiresAt: now.Add(7 * 24 * time.Hour),
		TokenType:             "Bearer",
	}
}

func TestAuthHandler_Login(t *testing.T) {
	accountID := uuid.New()
	roleID := uuid.New()

	t.Run("success", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Login", mock.Anything, mock.MatchedBy(func(in appidentity.LoginInput) bool {
			return in.Identifier == "alice" && in.Password == "correct horse 1" && in.IP != ""
		})).Return(&appidentity.LoginResult{
			TokenResult: testTokens(),
			Account: appidentity.AccountInfo{
				ID:            accountID,
				Username:      "alice",
				Email:         "alice@example.com",
				EmailVerified: true,
				RoleIDs:       []uuid.UUID{roleID},
			},
		}, nil)

		w := doJSON(setupAuthRouter(svc, accountID, time.Now()), http.MethodPost, "/auth/login",
			jsonBody(t, LoginRequest{Identifier: "alice", Password: "correct horse 1"}))

		require.Equal(t, http.StatusOK, w.Code)
		var resp LoginResponse
		dataAs(t, w, &resp)
		assert.Equal(t, "access", resp.Token.AccessToken)
		assert.Equal(t, "Bearer", resp.Token.TokenType)
		assert.Equal(t, accountID, resp.Account.ID)
		assert.Equal(t, []string{roleID.String()}, resp.Account.RoleIDs)
		assert.NotNil(t, resp.Account.Permissions)
		svc.AssertExpectations(t)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Login", mock.Anything, mock.Anything).Return(nil, identity.ErrInvalidCredentials)

		w := doJSON(setupAuthRouter(svc, accountID, time.Now()), http.MethodPost, "/auth/login",
			jsonBody(t, LoginRequest{Identifier: "alice", Password: "wrong"}))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeResponse(t, w).Error.Code)
	})

	t.Run("locked account", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Login", mock.Anything, mock.Anything).Return(nil, identity.ErrAccountLocked)

		w := doJSON(setupAuthRouter(svc, accountID, time.Now()), http.MethodPost, "/auth/login",
			jsonBody(t, LoginRequest{Identifier: "alice", Password: "whatever"}))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		svc := new(mockAuthService)

		w := doJSON(setupAuthRouter(svc, accountID, time.Now()), http.MethodPost, "/auth/login",
			jsonBody(t, map[string]string{"identifier": "alice"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
		svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	svc := new(mockAuthService)
	tokens := testTokens()
	svc.On("Refresh", mock.Anything, appidentity.RefreshTokenInput{RefreshToken: "refresh"}).Return(&tokens, nil)

	w := doJSON(setupAuthRouter(svc, uuid.New(), time.Now()), http.MethodPost, "/auth/refresh",
		jsonBody(t, RefreshTokenRequest{RefreshToken: "refresh"}))

	require.Equal(t, http.StatusOK, w.Code)
	var resp RefreshTokenResponse
	dataAs(t, w, &resp)
	assert.Equal(t, "refresh", resp.Token.RefreshToken)
	svc.AssertExpectations(t)
}

func TestAuthHandler_Logout(t *testing.T) {
	accountID := uuid.New()
	expiresAt := time.Now().Add(10 * time.Minute).Truncate(time.Second)

	svc := new(mockAuthService)
	svc.On("Logout", mock.Anything, mock.MatchedBy(func(in appidentity.LogoutInput) bool {
		return in.AccountID == accountID && in.TokenJTI == testJTI && in.ExpiresAt.Equal(expiresAt)
	})).Return(nil)

	w := doJSON(setupAuthRouter(svc, accountID, expiresAt), http.MethodPost, "/auth/logout", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestAuthHandler_Me(t *testing.T) {
	accountID := uuid.New()

	t.Run("authenticated", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Me", mock.Anything, accountID).Return(&appidentity.AccountInfo{
			ID:          accountID,
			Username:    "alice",
			Permissions: []string{"journal:write"},
		}, nil)

		w := doJSON(setupAuthRouter(svc, accountID, time.Now().Add(time.Hour)), http.MethodGet, "/auth/me", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp AuthAccountResponse
		dataAs(t, w, &resp)
		assert.Equal(t, []string{"journal:write"}, resp.Permissions)
		assert.Empty(t, resp.RoleIDs)
	})

	t.Run("no claims", func(t *testing.T) {
		svc := new(mockAuthService)

		w := doJSON(setupAuthRouter(svc, accountID, time.Now()), http.MethodGet, "/anonymous/me", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "Me", mock.Anything, mock.Anything)
	})
}
