package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neuronek/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	// Logger for middleware logging
	Logger *zap.Logger
	// OnDenied is called when permission is denied (optional)
	OnDenied func(c *gin.Context, requiredPerms []string)
}

// RequirePermission creates middleware that requires a specific permission.
// Wildcard grants such as "journal:*" satisfy any action on the resource.
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequirePermissionWithConfig creates middleware with custom config
func RequirePermissionWithConfig(permission string, cfg PermissionConfig) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(cfg, permission)
}

// RequireAnyPermission requires at least one of the listed permissions
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(PermissionConfig{}, permissions...)
}

// RequireAnyPermissionWithConfig requires at least one of the listed permissions with custom config
func RequireAnyPermissionWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			handlePermissionDenied(c, cfg, permissions, "No authentication claims found")
			return
		}
		if !claims.HasAnyPermission(permissions...) {
			handlePermissionDenied(c, cfg, permissions, "Account lacks required permission")
			return
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug("Permission check passed",
				zap.String("account_id", claims.AccountID),
				zap.Strings("required_any", permissions),
			)
		}
		c.Next()
	}
}

// RequireAllPermissions requires every listed permission
func RequireAllPermissions(permissions ...string) gin.HandlerFunc {
	return RequireAllPermissionsWithConfig(PermissionConfig{}, permissions...)
}

// RequireAllPermissionsWithConfig requires every listed permission with custom config
func RequireAllPermissionsWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			handlePermissionDenied(c, cfg, permissions, "No authentication claims found")
			return
		}
		if !claims.HasAllPermissions(permissions...) {
			handlePermissionDenied(c, cfg, permissions, "Account lacks one or more required permissions")
			return
		}
		c.Next()
	}
}

func handlePermissionDenied(c *gin.Context, cfg PermissionConfig, requiredPerms []string, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, requiredPerms)
		c.Abort()
		return
	}

	if cfg.Logger != nil {
		accountID := ""
		var granted []string
		if claims := GetJWTClaims(c); claims != nil {
			accountID = claims.AccountID
			granted = claims.Permissions
		}
		cfg.Logger.Warn("Permission denied",
			zap.String("reason", reason),
			zap.String("account_id", accountID),
			zap.Strings("required_permissions", requiredPerms),
			zap.Strings("account_permissions", granted),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeForbidden, "Access denied: insufficient permissions", getRequestIDFromContext(c)))
}

// HasPermission reports whether the authenticated account holds the permission
func HasPermission(c *gin.Context, permission string) bool {
	claims := GetJWTClaims(c)
	if claims == nil {
		return false
	}
	return claims.HasPermission(permission)
}

// HasAnyPermission reports whether the authenticated account holds any of the permissions
func HasAnyPermission(c *gin.Context, permissions ...string) bool {
	claims := GetJWTClaims(c)
	if claims == nil {
		return false
	}
	return claims.HasAnyPermission(permissions...)
}
