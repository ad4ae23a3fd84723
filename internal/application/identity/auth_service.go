package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: identity.DefaultMaxLoginAttempts,
		LockDuration:     identity.DefaultLockDuration,
	}
}

// LoginRecorder counts login outcomes
type LoginRecorder interface {
	LoginAttempted(success bool)
}

// AuthService handles authentication operations
type AuthService struct {
	accounts   identity.AccountRepository
	roles      identity.RoleRepository
	hasher     identity.PasswordHasher
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	recorder   LoginRecorder
	config     AuthServiceConfig
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service. blacklist and recorder may be nil.
func NewAuthService(
	accounts identity.AccountRepository,
	roles identity.RoleRepository,
	hasher identity.PasswordHasher,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	recorder LoginRecorder,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if config.MaxLoginAttempts <= 0 {
		config.MaxLoginAttempts = identity.DefaultMaxLoginAttempts
	}
	if config.LockDuration <= 0 {
		config.LockDuration = identity.DefaultLockDuration
	}
	return &AuthService{
		accounts:   accounts,
		roles:      roles,
		hasher:     hasher,
		jwtService: jwtService,
		blacklist:  blacklist,
		recorder:   recorder,
		config:     config,
		logger:     logger,
	}
}

// Login authenticates by username or email and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	s.logger.Info("Login attempt", zap.String("identifier", input.Identifier))

	account, err := s.findByIdentifier(ctx, input.Identifier)
	if err != nil {
		s.recordLogin(false)
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Account not found during login", zap.String("identifier", input.Identifier))
			return nil, identity.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := account.CanLogin(); err != nil {
		s.recordLogin(false)
		s.logger.Warn("Login refused",
			zap.String("account_id", account.ID.String()),
			zap.String("status", string(account.Status)))
		return nil, err
	}

	if !account.VerifyPassword(input.Password, s.hasher) {
		s.recordLogin(false)
		locked := account.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.accounts.Update(ctx, account); err != nil {
			s.logger.Error("Failed to update account after login failure", zap.Error(err))
		}

		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("account_id", account.ID.String()),
				zap.Int("attempts", s.config.MaxLoginAttempts))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}

		s.logger.Warn("Invalid password attempt",
			zap.String("account_id", account.ID.String()),
			zap.Int("failed_attempts", account.FailedAttempts))
		return nil, identity.ErrInvalidCredentials
	}

	if upgraded, err := account.RehashPassword(input.Password, s.hasher); err != nil {
		s.logger.Warn("Password rehash failed", zap.Error(err))
	} else if upgraded {
		s.logger.Info("Password hash upgraded", zap.String("account_id", account.ID.String()))
	}

	permissions, err := s.collectPermissions(ctx, account.RoleIDs)
	if err != nil {
		s.logger.Error("Failed to collect account permissions", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load account permissions")
	}

	pair, err := s.jwtService.GenerateTokenPair(tokenInput(account, permissions))
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	account.RecordLoginSuccess(input.IP)
	if err := s.accounts.Update(ctx, account); err != nil {
		s.logger.Error("Failed to update account after successful login", zap.Error(err))
	}
	s.recordLogin(true)

	s.logger.Info("Account logged in", zap.String("account_id", account.ID.String()))

	return &LoginResult{
		TokenResult: toTokenResult(pair),
		Account:     accountInfo(account, permissions),
	}, nil
}

// Refresh rotates a refresh token, reloading the account's current permissions
func (s *AuthService) Refresh(ctx context.Context, input RefreshTokenInput) (*TokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	accountID, err := claims.AccountUUID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid account ID in token")
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
		if err == nil && !revoked {
			revoked, err = s.blacklist.IsAccountRevoked(ctx, claims.AccountID, claims.IssuedAtTime())
		}
		if err != nil {
			s.logger.Error("Failed to check token revocation", zap.Error(err))
			return nil, shared.NewDomainError("TOKEN_ERROR", "Failed to validate refresh token")
		}
		if revoked {
			return nil, shared.NewDomainError("TOKEN_REVOKED", "Refresh token has been revoked")
		}
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, identity.ErrAccountNotFound
		}
		return nil, err
	}
	if err := account.CanLogin(); err != nil {
		return nil, err
	}

	permissions, err := s.collectPermissions(ctx, account.RoleIDs)
	if err != nil {
		s.logger.Error("Failed to collect permissions during refresh", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load account permissions")
	}

	pair, err := s.jwtService.RefreshTokenPair(input.RefreshToken, tokenInput(account, permissions))
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	if s.blacklist != nil {
		// the old refresh token is single use
		if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
			s.logger.Warn("Failed to revoke rotated refresh token", zap.Error(err))
		}
	}

	result := toTokenResult(pair)
	return &result, nil
}

// Logout revokes the presented access token until it expires
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	s.logger.Info("Account logout", zap.String("account_id", input.AccountID.String()))

	if s.blacklist == nil || input.TokenJTI == "" {
		return nil
	}
	ttl := time.Until(input.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.blacklist.Revoke(ctx, input.TokenJTI, ttl)
}

// Me returns the authenticated account with its effective permissions
func (s *AuthService) Me(ctx context.Context, accountID uuid.UUID) (*AccountInfo, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, identity.ErrAccountNotFound
		}
		return nil, err
	}

	permissions, err := s.collectPermissions(ctx, account.RoleIDs)
	if err != nil {
		s.logger.Error("Failed to collect permissions", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load account permissions")
	}

	info := accountInfo(account, permissions)
	return &info, nil
}

func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*identity.Account, error) {
	if strings.Contains(identifier, "@") {
		return s.accounts.FindByEmail(ctx, identity.NormalizeEmail(identifier))
	}
	return s.accounts.FindByUsername(ctx, identity.NormalizeUsername(identifier))
}

// collectPermissions collects the unique permissions of the enabled roles
func (s *AuthService) collectPermissions(ctx context.Context, roleIDs []uuid.UUID) ([]string, error) {
	if len(roleIDs) == 0 {
		return []string{}, nil
	}

	roles, err := s.roles.FindByIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	permissions := make([]string, 0)
	for _, role := range roles {
		if !role.IsEnabled {
			continue
		}
		for _, code := range role.PermissionCodes() {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			permissions = append(permissions, code)
		}
	}
	return permissions, nil
}

func (s *AuthService) recordLogin(success bool) {
	if s.recorder != nil {
		s.recorder.LoginAttempted(success)
	}
}

func tokenInput(a *identity.Account, permissions []string) auth.GenerateTokenInput {
	return auth.GenerateTokenInput{
		AccountID:     a.ID,
		Username:      a.Username,
		EmailVerified: a.EmailVerified,
		RoleIDs:       a.RoleIDs,
		Permissions:   permissions,
	}
}

func toTokenResult(pair *auth.TokenPair) TokenResult {
	return TokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}
}

func accountInfo(a *identity.Account, permissions []string) AccountInfo {
	return AccountInfo{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
		Permissions:   permissions,
		RoleIDs:       a.RoleIDs,
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType), errors.Is(err, auth.ErrInvalidClaims):
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	default:
		return shared.NewDomainError("TOKEN_ERROR", "Failed to validate refresh token")
	}
}
