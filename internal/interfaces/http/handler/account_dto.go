package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
)

// RegisterRequest represents the request body for account registration
type RegisterRequest struct {
	Username string `json:"username" binding:"required,username" example:"alice"`
	Email    string `json:"email" binding:"required,email,max=254" example:"alice@example.com"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// UpdateAccountRequest represents the editable fields of the own account
type UpdateAccountRequest struct {
	Email *string `json:"email" binding:"omitempty,email,max=254"`
}

// ChangePasswordRequest represents the request body for password change
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// SubjectRequest replaces the physiological profile of the own account
type SubjectRequest struct {
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	// DateOfBirth is a calendar date such as 1990-04-01
	DateOfBirth *string          `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Weight      *decimal.Decimal `json:"weight" swaggertype:"string" example:"72.5"`
	Height      *decimal.Decimal `json:"height" swaggertype:"string" example:"180"`
}

func (r SubjectRequest) toUpdate() identity.SubjectUpdate {
	update := identity.SubjectUpdate{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Weight:    r.Weight,
		Height:    r.Height,
	}
	if r.DateOfBirth != nil {
		// The binding tag guarantees the layout
		dob, _ := time.Parse(time.DateOnly, *r.DateOfBirth)
		update.DateOfBirth = &dob
	}
	return update
}

// ListAccountsQuery represents the query parameters for listing accounts
type ListAccountsQuery struct {
	Keyword   string `form:"keyword" binding:"max=100"`
	Status    string `form:"status" binding:"omitempty,oneof=pending active locked deactivated"`
	RoleID    string `form:"role_id" binding:"omitempty,uuid"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=username email created_at last_login_at"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

func (q ListAccountsQuery) toFilter(page, pageSize int) identity.AccountFilter {
	filter := identity.AccountFilter{
		Keyword:   q.Keyword,
		Page:      page,
		PageSize:  pageSize,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}
	if q.Status != "" {
		status := identity.AccountStatus(q.Status)
		filter.Status = &status
	}
	if q.RoleID != "" {
		roleID := uuid.MustParse(q.RoleID)
		filter.RoleID = &roleID
	}
	return filter
}

// AssignRolesRequest replaces the roles of an account
type AssignRolesRequest struct {
	RoleIDs []uuid.UUID `json:"role_ids" binding:"required"`
}

// EmailRequest carries an email address for verification or recovery mails
type EmailRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

// VerifyEmailRequest confirms an email address
type VerifyEmailRequest struct {
	Code string `json:"code" binding:"required,max=64"`
}

// ResetPasswordRequest consumes a recovery code
type ResetPasswordRequest struct {
	Code        string `json:"code" binding:"required,max=64"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}
