package handler

import (
	"github.com/gin-gonic/gin"
	appidentity "github.com/neuronek/backend/internal/application/identity"
)

// AccountHandler serves registration, the own account and account administration
type AccountHandler struct {
	BaseHandler
	accounts     AccountService
	verification VerificationService
	recovery     RecoveryService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts AccountService, verification VerificationService, recovery RecoveryService) *AccountHandler {
	return &AccountHandler{
		accounts:     accounts,
		verification: verification,
		recovery:     recovery,
	}
}

// Register godoc
// @ID           registerAccount
// @Summary      Register an account
// @Description  Create an account; a verification code is mailed to the address
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Account"
// @Success      201 {object} APIResponse[appidentity.AccountDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse "Registration disabled"
// @Failure      409 {object} ErrorResponse "Username or email taken"
// @Router       /accounts [post]
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), appidentity.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, account)
}

// GetMe godoc
// @ID           getOwnAccount
// @Summary      Get own account
// @Tags         accounts
// @Produce      json
// @Success      200 {object} APIResponse[appidentity.AccountDTO]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/me [get]
func (h *AccountHandler) GetMe(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}

	account, err := h.accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// UpdateMe godoc
// @ID           updateOwnAccount
// @Summary      Update own account
// @Description  Changing the email address resets its verification
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body UpdateAccountRequest true "Changes"
// @Success      200 {object} APIResponse[appidentity.AccountDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/me [patch]
func (h *AccountHandler) UpdateMe(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	var req UpdateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	account, err := h.accounts.Update(c.Request.Context(), appidentity.UpdateAccountInput{
		AccountID: accountID,
		Email:     req.Email,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// DeleteMe godoc
// @ID           deleteOwnAccount
// @Summary      Delete own account
// @Description  Deletes the account with its journal and revokes its tokens
// @Tags         accounts
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/me [delete]
func (h *AccountHandler) DeleteMe(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), accountID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ChangePassword godoc
// @ID           changeOwnPassword
// @Summary      Change password
// @Description  Existing tokens are revoked after the change
// @Tags         accounts
// @Accept       json
// @Param        request body ChangePasswordRequest true "Passwords"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/me/password [put]
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	err := h.accounts.ChangePassword(c.Request.Context(), appidentity.ChangePasswordInput{
		AccountID:   accountID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// GetSubject godoc
// @ID           getOwnSubject
// @Summary      Get subject profile
// @Tags         accounts
// @Produce      json
// @Success      200 {object} APIResponse[appidentity.SubjectDTO]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/me/subject [get]
func (h *AccountHandler) GetSubject(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}

	subject, err := h.accounts.GetSubject(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, subject)
}

// PutSubject godoc
// @ID           putOwnSubject
// @Summary      Replace subject profile
// @Description  Weight feeds per-kilogram dosage classification
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body SubjectRequest true "Profile"
// @Success      200 {object} APIResponse[appidentity.SubjectDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/me/subject [put]
func (h *AccountHandler) PutSubject(c *gin.Context) {
	accountID, ok := h.accountOrAbort(c)
	if !ok {
		return
	}
	var req SubjectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	subject, err := h.accounts.UpsertSubject(c.Request.Context(), accountID, req.toUpdate())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, subject)
}

// List godoc
// @ID           listAccounts
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Param        keyword query string false "Username or email contains"
// @Param        status query string false "Account status" Enums(pending, active, locked, deactivated)
// @Param        role_id query string false "Role ID" format(uuid)
// @Param        sort_by query string false "Sort field" Enums(username, email, created_at, last_login_at)
// @Param        sort_order query string false "Sort order" Enums(asc, desc)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]appidentity.AccountDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	var query ListAccountsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	page, pageSize := pagination(c)

	result, err := h.accounts.List(c.Request.Context(), query.toFilter(page, pageSize))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Accounts, result.Total, result.Page, result.PageSize)
}

// AssignRoles godoc
// @ID           assignAccountRoles
// @Summary      Replace account roles
// @Description  The account's existing tokens are revoked so new permissions apply at once
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        request body AssignRolesRequest true "Roles"
// @Success      200 {object} APIResponse[appidentity.AccountDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/roles [put]
func (h *AccountHandler) AssignRoles(c *gin.Context) {
	accountID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req AssignRolesRequest
	if !h.bindJSON(c, &req) {
		return
	}

	account, err := h.accounts.AssignRoles(c.Request.Context(), accountID, req.RoleIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// ResendVerification godoc
// @ID           resendVerification
// @Summary      Resend the verification code
// @Tags         accounts
// @Accept       json
// @Param        request body EmailRequest true "Email"
// @Success      202 {object} APIResponse[MessageData]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /accounts/verification/resend [post]
func (h *AccountHandler) ResendVerification(c *gin.Context) {
	var req EmailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.verification.Resend(c.Request.Context(), req.Email); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, MessageData{Message: "Verification code sent"})
}

// ConfirmVerification godoc
// @ID           confirmVerification
// @Summary      Confirm an email address
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body VerifyEmailRequest true "Code"
// @Success      200 {object} APIResponse[appidentity.AccountDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse "Unknown or expired code"
// @Router       /accounts/verification/confirm [post]
func (h *AccountHandler) ConfirmVerification(c *gin.Context) {
	var req VerifyEmailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	account, err := h.verification.Verify(c.Request.Context(), req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// RequestRecovery godoc
// @ID           requestRecovery
// @Summary      Request a password reset
// @Description  Always accepted so that addresses cannot be probed
// @Tags         accounts
// @Accept       json
// @Param        request body EmailRequest true "Email"
// @Success      202 {object} APIResponse[MessageData]
// @Failure      400 {object} ErrorResponse
// @Router       /accounts/recovery [post]
func (h *AccountHandler) RequestRecovery(c *gin.Context) {
	var req EmailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.recovery.RequestReset(c.Request.Context(), req.Email); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, MessageData{Message: "If the address is registered, a recovery code has been sent"})
}

// ResetPassword godoc
// @ID           resetPassword
// @Summary      Reset a password with a recovery code
// @Tags         accounts
// @Accept       json
// @Param        request body ResetPasswordRequest true "Code and new password"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse "Unknown or expired code"
// @Router       /accounts/recovery/reset [post]
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.recovery.ResetPassword(c.Request.Context(), req.Code, req.NewPassword); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
