package auth

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/infrastructure/config"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Common errors
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrTokenNotYetValid   = errors.New("token is not yet valid")
	ErrMissingAccountID   = errors.New("missing account_id in claims")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenBlacklisted   = errors.New("token has been revoked")
)

// Claims are the neuronek JWT claims
type Claims struct {
	jwt.RegisteredClaims
	AccountID     string    `json:"account_id"`
	Username      string    `json:"username"`
	EmailVerified bool      `json:"email_verified"`
	RoleIDs       []string  `json:"role_ids,omitempty"`
	Permissions   []string  `json:"permissions,omitempty"`
	TokenType     TokenType `json:"token_type"`
	RefreshCount  int       `json:"refresh_count,omitempty"`
}

// TokenPair represents an access and refresh token pair
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"` // Bearer
}

// JWTService issues and validates HS256 tokens
type JWTService struct {
	accessSecret      []byte
	refreshSecret     []byte
	accessExpiration  time.Duration
	refreshExpiration time.Duration
	issuer            string
	maxRefreshCount   int
	now               func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	refreshSecret := cfg.RefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.Secret
	}
	return &JWTService{
		accessSecret:      []byte(cfg.Secret),
		refreshSecret:     []byte(refreshSecret),
		accessExpiration:  cfg.AccessTokenExpiration,
		refreshExpiration: cfg.RefreshTokenExpiration,
		issuer:            cfg.Issuer,
		maxRefreshCount:   cfg.MaxRefreshCount,
		now:               time.Now,
	}
}

// GenerateTokenInput contains input for token generation
type GenerateTokenInput struct {
	AccountID     uuid.UUID
	Username      string
	EmailVerified bool
	RoleIDs       []uuid.UUID
	Permissions   []string
}

// GenerateTokenPair issues a fresh access and refresh token
func (s *JWTService) GenerateTokenPair(input GenerateTokenInput) (*TokenPair, error) {
	roleIDs := make([]string, len(input.RoleIDs))
	for i, rid := range input.RoleIDs {
		roleIDs[i] = rid.String()
	}
	return s.issuePair(input.AccountID.String(), input.Username, input.EmailVerified, roleIDs, input.Permissions, 0)
}

// RefreshTokenPair rotates a valid refresh token. The caller supplies the account's
// current state so that role and permission changes take effect on refresh.
func (s *JWTService) RefreshTokenPair(refreshToken string, input GenerateTokenInput) (*TokenPair, error) {
	claims, err := s.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.RefreshCount >= s.maxRefreshCount {
		return nil, ErrMaxRefreshExceeded
	}
	if claims.AccountID != input.AccountID.String() {
		return nil, ErrInvalidClaims
	}

	roleIDs := make([]string, len(input.RoleIDs))
	for i, rid := range input.RoleIDs {
		roleIDs[i] = rid.String()
	}
	return s.issuePair(claims.AccountID, input.Username, input.EmailVerified, roleIDs, input.Permissions, claims.RefreshCount+1)
}

func (s *JWTService) issuePair(accountID, username string, verified bool, roleIDs, permissions []string, refreshCount int) (*TokenPair, error) {
	now := s.now()
	accessExp := now.Add(s.accessExpiration)
	refreshExp := now.Add(s.refreshExpiration)

	accessToken, err := s.sign(&Claims{
		RegisteredClaims: s.registered(accountID, now, accessExp),
		AccountID:        accountID,
		Username:         username,
		EmailVerified:    verified,
		RoleIDs:          roleIDs,
		Permissions:      permissions,
		TokenType:        TokenTypeAccess,
	}, s.accessSecret)
	if err != nil {
		return nil, err
	}

	// refresh tokens carry only what is needed to re-read the account
	refreshToken, err := s.sign(&Claims{
		RegisteredClaims: s.registered(accountID, now, refreshExp),
		AccountID:        accountID,
		TokenType:        TokenTypeRefresh,
		RefreshCount:     refreshCount,
	}, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) registered(subject string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Issuer:    s.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{s.issuer},
		ExpiresAt: jwt.NewNumericDate(exp),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func (s *JWTService) sign(claims *Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, s.accessSecret, TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, s.refreshSecret, TokenTypeRefresh)
}

func (s *JWTService) validate(tokenString string, secret []byte, expected TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != expected {
		return nil, ErrInvalidTokenType
	}
	if claims.AccountID == "" {
		return nil, ErrMissingAccountID
	}
	return claims, nil
}

// AccountUUID parses the account ID from claims
func (c *Claims) AccountUUID() (uuid.UUID, error) {
	return uuid.Parse(c.AccountID)
}

// RoleUUIDs parses the role IDs from claims
func (c *Claims) RoleUUIDs() ([]uuid.UUID, error) {
	roleIDs := make([]uuid.UUID, 0, len(c.RoleIDs))
	for _, rid := range c.RoleIDs {
		id, err := uuid.Parse(rid)
		if err != nil {
			return nil, err
		}
		roleIDs = append(roleIDs, id)
	}
	return roleIDs, nil
}

// HasPermission reports whether the claims grant permission.
// A "resource:*" grant covers every action on the resource.
func (c *Claims) HasPermission(permission string) bool {
	if slices.Contains(c.Permissions, permission) {
		return true
	}
	resource, _, ok := strings.Cut(permission, ":")
	return ok && slices.Contains(c.Permissions, resource+":*")
}

// HasAnyPermission checks if the claims contain any of the specified permissions
func (c *Claims) HasAnyPermission(permissions ...string) bool {
	return slices.ContainsFunc(permissions, c.HasPermission)
}

// HasAllPermissions checks if the claims contain all of the specified permissions
func (c *Claims) HasAllPermissions(permissions ...string) bool {
	for _, required := range permissions {
		if !c.HasPermission(required) {
			return false
		}
	}
	return true
}

// IssuedAtTime returns the issued-at claim, or the zero time
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// RemainingTTL returns the time until the token expires, never negative
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

// AccessTokenExpiration returns the access token lifetime
func (s *JWTService) AccessTokenExpiration() time.Duration {
	return s.accessExpiration
}

// RefreshTokenExpiration returns the refresh token lifetime
func (s *JWTService) RefreshTokenExpiration() time.Duration {
	return s.refreshExpiration
}
