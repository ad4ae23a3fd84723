package identity

import "github.com/neuronek/backend/internal/domain/shared"

// Identity domain errors
var (
	ErrAccountNotFound         = shared.NewDomainError("ACCOUNT_NOT_FOUND", "Account not found")
	ErrInvalidCredentials      = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	ErrVerificationCodeInvalid = shared.NewDomainError("VERIFICATION_CODE_INVALID", "Verification code is invalid or expired")
	ErrRecoveryCodeInvalid     = shared.NewDomainError("RECOVERY_CODE_INVALID", "Recovery code is invalid or expired")
	ErrEmailAlreadyVerified    = shared.NewDomainError("EMAIL_ALREADY_VERIFIED", "Account email is already verified")
	ErrUsernameTaken           = shared.NewDomainError("USERNAME_TAKEN", "Username is already taken")
	ErrEmailTaken              = shared.NewDomainError("EMAIL_TAKEN", "Email is already registered")
	ErrRegistrationDisabled    = shared.NewDomainError("REGISTRATION_DISABLED", "Registration is currently disabled")
	ErrAccountLocked           = shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked")
	ErrAccountDeactivated      = shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account is deactivated")
	ErrRoleNotFound            = shared.NewDomainError("ROLE_NOT_FOUND", "Role not found")
	ErrRoleCodeTaken           = shared.NewDomainError("ROLE_CODE_TAKEN", "Role code already exists")
	ErrSystemRole              = shared.NewDomainError("SYSTEM_ROLE", "System roles cannot be deleted or disabled")
	ErrSubjectNotFound         = shared.NewDomainError("SUBJECT_NOT_FOUND", "Subject profile not found")
	ErrPasswordTooLong         = shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 bytes")
)
