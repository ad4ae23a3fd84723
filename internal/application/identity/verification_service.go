package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/cache"
	"github.com/neuronek/backend/internal/infrastructure/notification"
	"go.uber.org/zap"
)

// TestingVerificationCode replaces generated codes when the testing flag is on
const TestingVerificationCode = "verification_code"

const (
	verificationKeyPrefix = "verification:"
	defaultCodeTTL        = 15 * time.Minute
)

// VerificationServiceConfig contains configuration for email verification
type VerificationServiceConfig struct {
	CodeTTL        time.Duration
	BaseURL        string
	UseTestingCode bool
}

// VerificationService issues and checks email verification codes
type VerificationService struct {
	scope    TransactionScope
	accounts identity.AccountRepository
	codes    cache.CodeStore
	mailer   notification.Mailer
	config   VerificationServiceConfig
	logger   *zap.Logger
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	scope TransactionScope,
	accounts identity.AccountRepository,
	codes cache.CodeStore,
	mailer notification.Mailer,
	config VerificationServiceConfig,
	logger *zap.Logger,
) *VerificationService {
	if config.CodeTTL <= 0 {
		config.CodeTTL = defaultCodeTTL
	}
	return &VerificationService{
		scope:    scope,
		accounts: accounts,
		codes:    codes,
		mailer:   mailer,
		config:   config,
		logger:   logger,
	}
}

// SendVerification stores a fresh code for the account and mails it
func (s *VerificationService) SendVerification(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return identity.ErrAccountNotFound
		}
		return err
	}
	if account.EmailVerified {
		return identity.ErrEmailAlreadyVerified
	}
	return s.send(ctx, account)
}

// Resend mails a new code to the owner of email
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, identity.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return identity.ErrAccountNotFound
		}
		return err
	}
	if account.EmailVerified {
		return identity.ErrEmailAlreadyVerified
	}
	return s.send(ctx, account)
}

// Verify confirms the email of the account the code was issued for
func (s *VerificationService) Verify(ctx context.Context, code string) (*AccountDTO, error) {
	key := verificationKeyPrefix + code
	value, ok, err := s.codes.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read verification code: %w", err)
	}
	if !ok {
		return nil, identity.ErrVerificationCodeInvalid
	}
	accountID, err := uuid.Parse(value)
	if err != nil {
		return nil, identity.ErrVerificationCodeInvalid
	}

	var account *identity.Account
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err = repos.Accounts().FindByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return identity.ErrVerificationCodeInvalid
			}
			return err
		}
		if err := account.VerifyEmail(); err != nil {
			return err
		}
		if err := repos.Accounts().Update(ctx, account); err != nil {
			return err
		}
		return repos.Events().Record(ctx, account.PullDomainEvents()...)
	})
	if err != nil {
		return nil, err
	}

	if err := s.codes.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete used verification code", zap.Error(err))
	}

	s.logger.Info("Account email verified", zap.String("account_id", accountID.String()))

	dto := ToAccountDTO(account)
	return &dto, nil
}

// Handle sends the first code when an account registers
func (s *VerificationService) Handle(ctx context.Context, event shared.DomainEvent) error {
	if event.EventType() != identity.EventTypeAccountRegistered {
		return nil
	}
	err := s.SendVerification(ctx, event.AggregateID())
	if errors.Is(err, identity.ErrEmailAlreadyVerified) {
		return nil
	}
	return err
}

// EventTypes returns the events the service reacts to
func (s *VerificationService) EventTypes() []string {
	return []string{identity.EventTypeAccountRegistered}
}

func (s *VerificationService) send(ctx context.Context, account *identity.Account) error {
	code := uuid.NewString()
	if s.config.UseTestingCode {
		code = TestingVerificationCode
	}

	if err := s.codes.Put(ctx, verificationKeyPrefix+code, account.ID.String(), s.config.CodeTTL); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}

	msg := notification.VerificationMail(account.Email, code, s.config.BaseURL, s.config.CodeTTL)
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send verification mail",
			zap.String("account_id", account.ID.String()), zap.Error(err))
		return fmt.Errorf("send verification mail: %w", err)
	}

	s.logger.Info("Verification code sent", zap.String("account_id", account.ID.String()))
	return nil
}

var _ shared.EventHandler = (*VerificationService)(nil)
