package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/auth"
	"github.com/neuronek/backend/internal/infrastructure/cache"
	"github.com/neuronek/backend/internal/infrastructure/notification"
	"go.uber.org/zap"
)

const recoveryKeyPrefix = "recovery:"

// RecoveryServiceConfig contains configuration for password recovery
type RecoveryServiceConfig struct {
	CodeTTL       time.Duration
	TokenLifetime time.Duration
}

// RecoveryService resets forgotten passwords through mailed one-time codes
type RecoveryService struct {
	scope     TransactionScope
	accounts  identity.AccountRepository
	codes     cache.CodeStore
	mailer    notification.Mailer
	hasher    identity.PasswordHasher
	blacklist auth.TokenBlacklist
	config    RecoveryServiceConfig
	logger    *zap.Logger
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(
	scope TransactionScope,
	accounts identity.AccountRepository,
	codes cache.CodeStore,
	mailer notification.Mailer,
	hasher identity.PasswordHasher,
	blacklist auth.TokenBlacklist,
	config RecoveryServiceConfig,
	logger *zap.Logger,
) *RecoveryService {
	if config.CodeTTL <= 0 {
		config.CodeTTL = defaultCodeTTL
	}
	return &RecoveryService{
		scope:     scope,
		accounts:  accounts,
		codes:     codes,
		mailer:    mailer,
		hasher:    hasher,
		blacklist: blacklist,
		config:    config,
		logger:    logger,
	}
}

// RequestReset mails a recovery code when an account owns email. Unknown
// addresses succeed silently so callers cannot probe for accounts.
func (s *RecoveryService) RequestReset(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, identity.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Info("Recovery requested for unknown email")
			return nil
		}
		return err
	}

	code := uuid.NewString()
	if err := s.codes.Put(ctx, recoveryKeyPrefix+code, account.ID.String(), s.config.CodeTTL); err != nil {
		return fmt.Errorf("store recovery code: %w", err)
	}
	if err := s.mailer.Send(ctx, notification.RecoveryMail(account.Email, code, s.config.CodeTTL)); err != nil {
		s.logger.Error("Failed to send recovery mail",
			zap.String("account_id", account.ID.String()), zap.Error(err))
		return fmt.Errorf("send recovery mail: %w", err)
	}

	s.logger.Info("Recovery code sent", zap.String("account_id", account.ID.String()))
	return nil
}

// ResetPassword consumes a recovery code, sets the new password and revokes
// every token issued to the account so far
func (s *RecoveryService) ResetPassword(ctx context.Context, code, newPassword string) error {
	if err := identity.ValidatePassword(newPassword); err != nil {
		return err
	}

	value, ok, err := s.codes.Take(ctx, recoveryKeyPrefix+code)
	if err != nil {
		return fmt.Errorf("read recovery code: %w", err)
	}
	if !ok {
		return identity.ErrRecoveryCodeInvalid
	}
	accountID, err := uuid.Parse(value)
	if err != nil {
		return identity.ErrRecoveryCodeInvalid
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.Accounts().FindByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return identity.ErrRecoveryCodeInvalid
			}
			return err
		}
		if err := account.ResetPassword(newPassword, s.hasher); err != nil {
			return err
		}
		if account.Status == identity.AccountStatusLocked {
			_ = account.Unlock()
		}
		if err := repos.Accounts().Update(ctx, account); err != nil {
			return err
		}
		return repos.Events().Record(ctx, account.PullDomainEvents()...)
	})
	if err != nil {
		return err
	}

	if s.blacklist != nil {
		if err := s.blacklist.RevokeAccount(ctx, accountID.String(), s.config.TokenLifetime); err != nil {
			s.logger.Error("Failed to revoke tokens after password reset",
				zap.String("account_id", accountID.String()), zap.Error(err))
		}
	}

	s.logger.Info("Password reset", zap.String("account_id", accountID.String()))
	return nil
}
