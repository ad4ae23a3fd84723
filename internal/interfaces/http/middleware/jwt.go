package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/neuronek/backend/internal/infrastructure/auth"
	"github.com/neuronek/backend/internal/infrastructure/logger"
	"github.com/neuronek/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey    = "jwt_claims"
	JWTAccountIDKey = "jwt_account_id"
	JWTUsernameKey  = "jwt_username"
	JWTRoleIDsKey   = "jwt_role_ids"
	JWTPermissions  = "jwt_permissions"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// TokenBlacklist is optional for checking revoked tokens
	TokenBlacklist auth.TokenBlacklist
	// SkipPaths are exact paths that don't require authentication
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't require authentication
	SkipPathPrefixes []string
	// SkipRoutes are "METHOD path" pairs that don't require authentication,
	// for public endpoints sharing a path with protected ones
	SkipRoutes []string
	// Optional callback if token is invalid (default: return 401)
	OnError func(c *gin.Context, err error)
	Logger  *zap.Logger
}

// DefaultJWTConfig returns the public endpoints of the API
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/health/ready",
			"/metrics",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/accounts/verification/resend",
			"/api/v1/accounts/verification/confirm",
			"/api/v1/accounts/recovery",
			"/api/v1/accounts/recovery/reset",
		},
		SkipPathPrefixes: []string{
			"/swagger",
		},
		SkipRoutes: []string{
			"POST /api/v1/accounts",
		},
	}
}

// JWTAuthMiddleware creates JWT authentication middleware
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig creates JWT authentication middleware with custom config
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipAuth(cfg, c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		tokenString, message := bearerToken(c)
		if tokenString == "" {
			handleAuthError(c, cfg, auth.ErrInvalidToken, message)
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err, "Token validation failed")
			return
		}

		if cfg.TokenBlacklist != nil {
			ctx := c.Request.Context()

			// individual logout
			if claims.ID != "" {
				revoked, err := cfg.TokenBlacklist.IsRevoked(ctx, claims.ID)
				if err != nil {
					// fail open: a blacklist outage must not lock everyone out
					logWarn(cfg, "Failed to check token blacklist", zap.String("jti", claims.ID), zap.Error(err))
				} else if revoked {
					handleAuthError(c, cfg, auth.ErrTokenBlacklisted, "Token has been revoked")
					return
				}
			}

			// password change, account deletion
			revoked, err := cfg.TokenBlacklist.IsAccountRevoked(ctx, claims.AccountID, claims.IssuedAtTime())
			if err != nil {
				logWarn(cfg, "Failed to check account revocation", zap.String("account_id", claims.AccountID), zap.Error(err))
			} else if revoked {
				handleAuthError(c, cfg, auth.ErrTokenBlacklisted, "Session has been invalidated")
				return
			}
		}

		setClaims(c, claims)

		ctx, _ := logger.WithAccountID(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.AccountID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(logger.GinAccountIDKey, claims.AccountID)

		if cfg.Logger != nil {
			cfg.Logger.Debug("JWT authentication successful",
				zap.String("account_id", claims.AccountID),
				zap.String("username", claims.Username))
		}

		c.Next()
	}
}

func skipAuth(cfg JWTMiddlewareConfig, method, path string) bool {
	for _, p := range cfg.SkipPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	route := method + " " + path
	for _, r := range cfg.SkipRoutes {
		if route == r {
			return true
		}
	}
	return false
}

func bearerToken(c *gin.Context) (string, string) {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" {
		return "", "Missing authorization header"
	}
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", "Invalid authorization header format"
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	if token == "" {
		return "", "Missing token"
	}
	return token, ""
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(JWTClaimsKey, claims)
	c.Set(JWTAccountIDKey, claims.AccountID)
	c.Set(JWTUsernameKey, claims.Username)
	c.Set(JWTRoleIDsKey, claims.RoleIDs)
	c.Set(JWTPermissions, claims.Permissions)
}

func logWarn(cfg JWTMiddlewareConfig, msg string, fields ...zap.Field) {
	if cfg.Logger != nil {
		cfg.Logger.Warn(msg, fields...)
	}
}

func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		c.Abort()
		return
	}

	if cfg.Logger != nil {
		cfg.Logger.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("message", message),
			zap.String("path", c.Request.URL.Path))
	}

	code, text := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, text = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		code, text = dto.ErrCodeTokenInvalid, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidTokenType), errors.Is(err, auth.ErrTokenNotYetValid):
		code, text = dto.ErrCodeTokenInvalid, "Invalid token"
	case errors.Is(err, auth.ErrInvalidToken) && message != "Token validation failed":
		text = message
	case errors.Is(err, auth.ErrInvalidToken):
		code, text = dto.ErrCodeTokenInvalid, "Invalid token"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, text, getRequestIDFromContext(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTAccountID retrieves the account ID from JWT claims in context
func GetJWTAccountID(c *gin.Context) string {
	return c.GetString(JWTAccountIDKey)
}

// GetJWTUsername retrieves the username from JWT claims in context
func GetJWTUsername(c *gin.Context) string {
	return c.GetString(JWTUsernameKey)
}

// GetJWTPermissions retrieves the permissions from JWT claims in context
func GetJWTPermissions(c *gin.Context) []string {
	return c.GetStringSlice(JWTPermissions)
}

// OptionalJWTAuthMiddleware extracts claims when a valid token is present
// and lets the request through either way
func OptionalJWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, _ := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}
		if claims, err := jwtService.ValidateAccessToken(tokenString); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}
