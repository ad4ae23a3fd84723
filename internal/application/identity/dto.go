package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
)

// RegisterInput contains the input for account registration
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateAccountInput contains the editable account fields
type UpdateAccountInput struct {
	AccountID uuid.UUID
	Email     *string
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	AccountID   uuid.UUID
	OldPassword string
	NewPassword string
}

// AccountDTO represents account data returned by the API
type AccountDTO struct {
	ID              uuid.UUID   `json:"id"`
	Username        string      `json:"username"`
	Email           string      `json:"email"`
	Status          string      `json:"status"`
	EmailVerified   bool        `json:"email_verified"`
	EmailVerifiedAt *time.Time  `json:"email_verified_at,omitempty"`
	RoleIDs         []uuid.UUID `json:"role_ids"`
	LastLoginAt     *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ToAccountDTO converts an account; the password hash never leaves the service
func ToAccountDTO(a *identity.Account) AccountDTO {
	roleIDs := a.RoleIDs
	if roleIDs == nil {
		roleIDs = []uuid.UUID{}
	}
	return AccountDTO{
		ID:              a.ID,
		Username:        a.Username,
		Email:           a.Email,
		Status:          string(a.Status),
		EmailVerified:   a.EmailVerified,
		EmailVerifiedAt: a.EmailVerifiedAt,
		RoleIDs:         roleIDs,
		LastLoginAt:     a.LastLoginAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// AccountListResult represents a page of accounts
type AccountListResult struct {
	Accounts   []AccountDTO `json:"accounts"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

// SubjectDTO represents the physiological profile of an account
type SubjectDTO struct {
	AccountID   uuid.UUID        `json:"account_id"`
	FirstName   string           `json:"first_name,omitempty"`
	LastName    string           `json:"last_name,omitempty"`
	DateOfBirth *time.Time       `json:"date_of_birth,omitempty"`
	Weight      *decimal.Decimal `json:"weight,omitempty"`
	Height      *decimal.Decimal `json:"height,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ToSubjectDTO converts a subject profile
func ToSubjectDTO(s *identity.Subject) SubjectDTO {
	return SubjectDTO{
		AccountID:   s.AccountID,
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		DateOfBirth: s.DateOfBirth,
		Weight:      s.Weight,
		Height:      s.Height,
		UpdatedAt:   s.UpdatedAt,
	}
}

// LoginInput contains the input for login; Identifier is a username or an email
type LoginInput struct {
	Identifier string
	Password   string
	IP         string // Client IP for login tracking
}

// TokenResult carries an issued token pair
type TokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	TokenResult
	Account AccountInfo
}

// AccountInfo is the authenticated account with its effective permissions
type AccountInfo struct {
	ID            uuid.UUID
	Username      string
	Email         string
	EmailVerified bool
	Permissions   []string
	RoleIDs       []uuid.UUID
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// LogoutInput identifies the access token to revoke
type LogoutInput struct {
	AccountID uuid.UUID
	TokenJTI  string
	ExpiresAt time.Time
}

// CreateRoleInput contains input for creating a role
type CreateRoleInput struct {
	Code        string
	Name        string
	Description string
	Permissions []string // Permission codes like "substance:write"
}

// UpdateRoleInput contains input for updating a role
type UpdateRoleInput struct {
	ID          uuid.UUID
	Name        *string
	Description *string
	IsEnabled   *bool
}

// RoleDTO represents role data transfer object
type RoleDTO struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	IsSystemRole bool      `json:"is_system_role"`
	IsEnabled    bool      `json:"is_enabled"`
	Permissions  []string  `json:"permissions"`
	AccountCount int64     `json:"account_count,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToRoleDTO converts a role
func ToRoleDTO(r *identity.Role) RoleDTO {
	return RoleDTO{
		ID:           r.ID,
		Code:         r.Code,
		Name:         r.Name,
		Description:  r.Description,
		IsSystemRole: r.IsSystemRole,
		IsEnabled:    r.IsEnabled,
		Permissions:  r.PermissionCodes(),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// RoleListResult represents paginated role list result
type RoleListResult struct {
	Roles      []RoleDTO `json:"roles"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
