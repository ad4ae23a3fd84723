package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AccountServiceConfig contains configuration for the account service
type AccountServiceConfig struct {
	RegistrationEnabled bool
	// TokenLifetime bounds how long an account-wide revocation has to be remembered
	TokenLifetime time.Duration
}

// AccountService handles registration and self-service account management
type AccountService struct {
	scope     TransactionScope
	accounts  identity.AccountRepository
	subjects  identity.SubjectRepository
	roles     identity.RoleRepository
	hasher    identity.PasswordHasher
	blacklist auth.TokenBlacklist
	config    AccountServiceConfig
	logger    *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	scope TransactionScope,
	accounts identity.AccountRepository,
	subjects identity.SubjectRepository,
	roles identity.RoleRepository,
	hasher identity.PasswordHasher,
	blacklist auth.TokenBlacklist,
	config AccountServiceConfig,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		scope:     scope,
		accounts:  accounts,
		subjects:  subjects,
		roles:     roles,
		hasher:    hasher,
		blacklist: blacklist,
		config:    config,
		logger:    logger,
	}
}

// Register creates an account with the default user role
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AccountDTO, error) {
	if !s.config.RegistrationEnabled {
		return nil, identity.ErrRegistrationDisabled
	}

	s.logger.Info("Registering account", zap.String("username", input.Username))

	account, err := identity.NewAccount(input.Username, input.Email, input.Password, s.hasher)
	if err != nil {
		return nil, err
	}

	if role, err := s.roles.FindByCode(ctx, identity.RoleCodeUser); err == nil {
		_ = account.AssignRole(role.ID)
	} else {
		s.logger.Warn("Default role missing, account registered without roles",
			zap.String("role", identity.RoleCodeUser), zap.Error(err))
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		taken, err := repos.Accounts().ExistsByUsername(ctx, account.Username)
		if err != nil {
			return err
		}
		if taken {
			return identity.ErrUsernameTaken
		}
		taken, err = repos.Accounts().ExistsByEmail(ctx, account.Email)
		if err != nil {
			return err
		}
		if taken {
			return identity.ErrEmailTaken
		}

		if err := repos.Accounts().Create(ctx, account); err != nil {
			return err
		}
		return repos.Events().Record(ctx, account.PullDomainEvents()...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account registered",
		zap.String("account_id", account.ID.String()),
		zap.String("username", account.Username))

	dto := ToAccountDTO(account)
	return &dto, nil
}

// Get returns an account by ID
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*AccountDTO, error) {
	account, err := s.findAccount(ctx, s.accounts, id)
	if err != nil {
		return nil, err
	}
	dto := ToAccountDTO(account)
	return &dto, nil
}

// Update changes the account email; a changed email must be verified again
func (s *AccountService) Update(ctx context.Context, input UpdateAccountInput) (*AccountDTO, error) {
	var account *identity.Account
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		account, err = s.findAccount(ctx, repos.Accounts(), input.AccountID)
		if err != nil {
			return err
		}
		if input.Email == nil {
			return nil
		}

		email := identity.NormalizeEmail(*input.Email)
		if email != account.Email {
			taken, err := repos.Accounts().ExistsByEmail(ctx, email)
			if err != nil {
				return err
			}
			if taken {
				return identity.ErrEmailTaken
			}
		}
		if err := account.UpdateProfile(email); err != nil {
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

	dto := ToAccountDTO(account)
	return &dto, nil
}

// Delete removes the account and revokes its tokens; journal data is removed
// by the account.deleted handler
func (s *AccountService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := s.findAccount(ctx, repos.Accounts(), id)
		if err != nil {
			return err
		}
		account.MarkDeleted()
		if err := repos.Accounts().Delete(ctx, id); err != nil {
			return err
		}
		return repos.Events().Record(ctx, account.PullDomainEvents()...)
	})
	if err != nil {
		return err
	}

	s.revokeAll(ctx, id)
	s.logger.Info("Account deleted", zap.String("account_id", id.String()))
	return nil
}

// ChangePassword changes the password after checking the current one
func (s *AccountService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := s.findAccount(ctx, repos.Accounts(), input.AccountID)
		if err != nil {
			return err
		}
		if err := account.ChangePassword(input.OldPassword, input.NewPassword, s.hasher); err != nil {
			return err
		}
		if err := repos.Accounts().Update(ctx, account); err != nil {
			return err
		}
		return repos.Events().Record(ctx, account.PullDomainEvents()...)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Account password changed", zap.String("account_id", input.AccountID.String()))
	return nil
}

// List returns a page of accounts (administration)
func (s *AccountService) List(ctx context.Context, filter identity.AccountFilter) (*AccountListResult, error) {
	accounts, total, err := s.accounts.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list accounts", zap.Error(err))
		return nil, err
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = ToAccountDTO(a)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	return &AccountListResult{
		Accounts:   dtos,
		Total:      total,
		Page:       page,
		PageSize:   filter.Limit(),
		TotalPages: totalPages(total, filter.Limit()),
	}, nil
}

// AssignRoles replaces the roles of an account. The new permissions apply
// from the next token refresh.
func (s *AccountService) AssignRoles(ctx context.Context, accountID uuid.UUID, roleIDs []uuid.UUID) (*AccountDTO, error) {
	if len(roleIDs) > 0 {
		roles, err := s.roles.FindByIDs(ctx, roleIDs)
		if err != nil {
			return nil, err
		}
		found := make(map[uuid.UUID]bool, len(roles))
		for _, r := range roles {
			found[r.ID] = true
		}
		for _, id := range roleIDs {
			if !found[id] {
				return nil, shared.NewDomainError("ROLE_NOT_FOUND", "Role not found: "+id.String())
			}
		}
	}

	var account *identity.Account
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		account, err = s.findAccount(ctx, repos.Accounts(), accountID)
		if err != nil {
			return err
		}
		if err := account.SetRoles(roleIDs); err != nil {
			return err
		}
		if err := repos.Accounts().SaveAccountRoles(ctx, account); err != nil {
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

	s.logger.Info("Account roles assigned",
		zap.String("account_id", accountID.String()),
		zap.Int("role_count", len(account.RoleIDs)))

	dto := ToAccountDTO(account)
	return &dto, nil
}

// GetSubject returns the subject profile of an account
func (s *AccountService) GetSubject(ctx context.Context, accountID uuid.UUID) (*SubjectDTO, error) {
	subject, err := s.subjects.FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, identity.ErrSubjectNotFound
		}
		return nil, err
	}
	dto := ToSubjectDTO(subject)
	return &dto, nil
}

// UpsertSubject creates or replaces the subject profile of an account
func (s *AccountService) UpsertSubject(ctx context.Context, accountID uuid.UUID, update identity.SubjectUpdate) (*SubjectDTO, error) {
	var subject *identity.Subject
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		subject, err = repos.Subjects().FindByAccountID(ctx, accountID)
		if errors.Is(err, shared.ErrNotFound) {
			subject, err = identity.NewSubject(accountID), nil
		}
		if err != nil {
			return err
		}
		if err := subject.Apply(update); err != nil {
			return err
		}
		return repos.Subjects().Save(ctx, subject)
	})
	if err != nil {
		return nil, err
	}

	dto := ToSubjectDTO(subject)
	return &dto, nil
}

func (s *AccountService) findAccount(ctx context.Context, repo identity.AccountRepository, id uuid.UUID) (*identity.Account, error) {
	account, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, identity.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *AccountService) revokeAll(ctx context.Context, id uuid.UUID) {
	if s.blacklist == nil {
		return
	}
	if err := s.blacklist.RevokeAccount(ctx, id.String(), s.config.TokenLifetime); err != nil {
		s.logger.Error("Failed to revoke account tokens",
			zap.String("account_id", id.String()), zap.Error(err))
	}
}
