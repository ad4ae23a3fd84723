package identity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
)

// AccountStatus represents the status of an account
type AccountStatus string

const (
	AccountStatusPending     AccountStatus = "pending"     // Created by an administrator, not yet confirmed
	AccountStatusActive      AccountStatus = "active"      // Normal active status
	AccountStatusLocked      AccountStatus = "locked"      // Locked due to failed attempts
	AccountStatusDeactivated AccountStatus = "deactivated" // Closed by the owner or an administrator
)

// Login throttling defaults
const (
	DefaultMaxLoginAttempts = 5
	DefaultLockDuration     = 15 * time.Minute
)

// MaxPasswordBytes is the longest input bcrypt accepts
const MaxPasswordBytes = 72

var (
	usernamePattern  = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
	emailPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	hasLetterPattern = regexp.MustCompile(`[A-Za-z]`)
	hasDigitPattern  = regexp.MustCompile(`[0-9]`)
)

// Account is the aggregate root for authentication and ownership of journal data
type Account struct {
	shared.BaseAggregateRoot
	Username          string
	Email             string
	PasswordHash      string // PHC string produced by the configured KDF
	Status            AccountStatus
	EmailVerified     bool
	EmailVerifiedAt   *time.Time
	RoleIDs           []uuid.UUID // Stored in account_roles, loaded by repository
	FailedAttempts    int
	LockedUntil       *time.Time
	LastLoginAt       *time.Time
	LastLoginIP       string
	PasswordChangedAt *time.Time
}

// NewAccount registers a new account with an unverified email
func NewAccount(username, email, password string, hasher PasswordHasher) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	account := &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          NormalizeUsername(username),
		Email:             NormalizeEmail(email),
		PasswordHash:      hash,
		Status:            AccountStatusActive,
		RoleIDs:           make([]uuid.UUID, 0),
		PasswordChangedAt: &now,
	}

	account.AddDomainEvent(NewAccountRegisteredEvent(account))

	return account, nil
}

// VerifyEmail confirms ownership of the email address
func (a *Account) VerifyEmail() error {
	if a.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	now := time.Now()
	a.EmailVerified = true
	a.EmailVerifiedAt = &now
	if a.Status == AccountStatusPending {
		a.Status = AccountStatusActive
	}
	a.touch()

	a.AddDomainEvent(NewAccountEmailVerifiedEvent(a))

	return nil
}

// UpdateProfile changes the email address; a new address must be verified again
func (a *Account) UpdateProfile(email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	email = NormalizeEmail(email)
	if email == a.Email {
		return nil
	}

	a.Email = email
	a.EmailVerified = false
	a.EmailVerifiedAt = nil
	a.touch()

	a.AddDomainEvent(NewAccountEmailChangedEvent(a))

	return nil
}

// VerifyPassword checks a password against the stored hash
func (a *Account) VerifyPassword(password string, hasher PasswordHasher) bool {
	ok, err := hasher.Verify(password, a.PasswordHash)
	return err == nil && ok
}

// ChangePassword replaces the password after checking the current one
func (a *Account) ChangePassword(oldPassword, newPassword string, hasher PasswordHasher) error {
	if !a.VerifyPassword(oldPassword, hasher) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return a.ResetPassword(newPassword, hasher)
}

// ResetPassword sets a new password without checking the old one
func (a *Account) ResetPassword(newPassword string, hasher PasswordHasher) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	a.PasswordHash = hash
	a.PasswordChangedAt = &now
	a.FailedAttempts = 0
	a.touch()

	a.AddDomainEvent(NewAccountPasswordChangedEvent(a))

	return nil
}

// RehashPassword re-derives the hash with the current default KDF.
// Returns false when the stored hash is already up to date.
func (a *Account) RehashPassword(password string, hasher PasswordHasher) (bool, error) {
	if !hasher.NeedsRehash(a.PasswordHash) {
		return false, nil
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("rehash password: %w", err)
	}
	a.PasswordHash = hash
	a.touch()
	return true, nil
}

// AssignRole assigns a role to the account
func (a *Account) AssignRole(roleID uuid.UUID) error {
	if roleID == uuid.Nil {
		return shared.NewDomainError("INVALID_ROLE_ID", "Role ID cannot be empty")
	}
	if a.HasRole(roleID) {
		return shared.NewDomainError("ROLE_ALREADY_ASSIGNED", "Account already has this role")
	}

	a.RoleIDs = append(a.RoleIDs, roleID)
	a.touch()

	return nil
}

// RemoveRole removes a role from the account
func (a *Account) RemoveRole(roleID uuid.UUID) error {
	for i, rid := range a.RoleIDs {
		if rid == roleID {
			a.RoleIDs = append(a.RoleIDs[:i], a.RoleIDs[i+1:]...)
			a.touch()
			return nil
		}
	}
	return shared.NewDomainError("ROLE_NOT_ASSIGNED", "Account does not have this role")
}

// SetRoles replaces the assigned roles, dropping duplicates
func (a *Account) SetRoles(roleIDs []uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(roleIDs))
	unique := make([]uuid.UUID, 0, len(roleIDs))
	for _, rid := range roleIDs {
		if rid == uuid.Nil {
			return shared.NewDomainError("INVALID_ROLE_ID", "Role ID cannot be empty")
		}
		if !seen[rid] {
			seen[rid] = true
			unique = append(unique, rid)
		}
	}

	a.RoleIDs = unique
	a.touch()
	a.AddDomainEvent(NewAccountRolesChangedEvent(a))

	return nil
}

// HasRole checks if the account has a specific role
func (a *Account) HasRole(roleID uuid.UUID) bool {
	for _, rid := range a.RoleIDs {
		if rid == roleID {
			return true
		}
	}
	return false
}

// Lock locks the account, for duration when positive or indefinitely otherwise
func (a *Account) Lock(duration time.Duration) error {
	if a.Status == AccountStatusDeactivated {
		return ErrAccountDeactivated
	}

	a.Status = AccountStatusLocked
	a.LockedUntil = nil
	if duration > 0 {
		until := time.Now().Add(duration)
		a.LockedUntil = &until
	}
	a.touch()

	return nil
}

// Unlock unlocks the account
func (a *Account) Unlock() error {
	if a.Status != AccountStatusLocked {
		return shared.NewDomainError("NOT_LOCKED", "Account is not locked")
	}

	a.Status = AccountStatusActive
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.touch()

	return nil
}

// Deactivate closes the account
func (a *Account) Deactivate() error {
	if a.Status == AccountStatusDeactivated {
		return shared.NewDomainError("ALREADY_DEACTIVATED", "Account is already deactivated")
	}

	a.Status = AccountStatusDeactivated
	a.touch()

	return nil
}

// MarkDeleted records the deletion of the account
func (a *Account) MarkDeleted() {
	a.AddDomainEvent(NewAccountDeletedEvent(a))
}

// RecordLoginSuccess records a successful login
func (a *Account) RecordLoginSuccess(ip string) {
	now := time.Now()
	a.LastLoginAt = &now
	a.LastLoginIP = ip
	a.FailedAttempts = 0
	if a.Status == AccountStatusLocked {
		// an expired lock is lifted by the next successful login
		a.Status = AccountStatusActive
		a.LockedUntil = nil
	}
	a.touch()
}

// RecordLoginFailure records a failed login attempt.
// Returns true if the account was locked as a result.
func (a *Account) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	if a.Status == AccountStatusLocked && !a.IsLocked() {
		// the lock ran out; the next window starts from zero
		a.Status = AccountStatusActive
		a.LockedUntil = nil
		a.FailedAttempts = 0
	}
	a.FailedAttempts++
	a.touch()

	if a.FailedAttempts >= maxAttempts {
		_ = a.Lock(lockDuration)
		return true
	}
	return false
}

// IsLocked returns true while a lock is in effect
func (a *Account) IsLocked() bool {
	if a.Status != AccountStatusLocked {
		return false
	}
	if a.LockedUntil != nil && time.Now().After(*a.LockedUntil) {
		return false
	}
	return true
}

// CanLogin checks whether the account may authenticate
func (a *Account) CanLogin() error {
	if a.Status == AccountStatusDeactivated {
		return ErrAccountDeactivated
	}
	if a.IsLocked() {
		return ErrAccountLocked
	}
	return nil
}

func (a *Account) touch() {
	a.Touch(time.Now())
}

// NormalizeUsername trims and lowercases a username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername checks length and character set
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) < 4 {
		return shared.NewDomainError("INVALID_USERNAME", "Username must be at least 4 characters")
	}
	if len(username) > 32 {
		return shared.NewDomainError("INVALID_USERNAME", "Username cannot exceed 32 characters")
	}
	if !usernamePattern.MatchString(username) {
		return shared.NewDomainError("INVALID_USERNAME", "Username can only contain letters, numbers, underscores and dots")
	}
	return nil
}

// ValidateEmail checks the email format
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 254 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 254 characters")
	}
	if !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

// ValidatePassword enforces the password policy
func ValidatePassword(password string) error {
	length := utf8.RuneCountInString(password)
	if length < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if length > 128 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 128 characters")
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	if !hasLetterPattern.MatchString(password) || !hasDigitPattern.MatchString(password) {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}
