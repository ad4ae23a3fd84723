package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/neuronek/backend/internal/infrastructure/sanitize"
	"go.uber.org/zap"
)

const sweepBatchSize = 100

// StashService manages an account's stashes
type StashService struct {
	scope      TransactionScope
	stashes    journal.StashRepository
	substances substance.SubstanceRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewStashService creates a new stash service
func NewStashService(
	scope TransactionScope,
	stashes journal.StashRepository,
	substances substance.SubstanceRepository,
	logger *zap.Logger,
) *StashService {
	return &StashService{
		scope:      scope,
		stashes:    stashes,
		substances: substances,
		logger:     logger,
		now:        time.Now,
	}
}

// Create adds a stash for the account
func (s *StashService) Create(ctx context.Context, input CreateStashInput) (*StashDTO, error) {
	sub, err := findSubstance(ctx, s.substances, input.Substance)
	if err != nil {
		return nil, err
	}
	amount, err := substance.ParseMass(input.Amount)
	if err != nil {
		return nil, err
	}

	stash, err := journal.NewStash(input.AccountID, sub, amount, journal.StashParams{
		Purity:    input.Purity,
		ExpiresAt: input.ExpiresAt,
		Notes:     sanitize.Text(input.Notes),
	})
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Stashes().Create(ctx, stash); err != nil {
			return err
		}
		return repos.Events().Record(ctx, stash.PullDomainEvents()...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stash created",
		zap.String("stash_id", stash.ID.String()),
		zap.String("account_id", stash.AccountID.String()),
		zap.String("substance", stash.SubstanceName))

	dto := ToStashDTO(stash, s.now())
	return &dto, nil
}

// Get returns one of the account's stashes
func (s *StashService) Get(ctx context.Context, accountID, id uuid.UUID) (*StashDTO, error) {
	stash, err := ownedStash(ctx, s.stashes, accountID, id)
	if err != nil {
		return nil, err
	}
	dto := ToStashDTO(stash, s.now())
	return &dto, nil
}

// List returns a page of the account's stashes
func (s *StashService) List(ctx context.Context, input ListStashesInput) (*StashListResult, error) {
	filter := journal.StashFilter{
		AccountID:      input.AccountID,
		IncludeExpired: input.IncludeExpired,
	}
	filter.Page, filter.PageSize = normalizePage(input.Page, input.PageSize)

	if input.Substance != "" {
		sub, err := findSubstance(ctx, s.substances, input.Substance)
		if err != nil {
			return nil, err
		}
		filter.SubstanceID = &sub.ID
	}

	items, total, err := s.stashes.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	dtos := make([]StashDTO, len(items))
	for i, item := range items {
		dtos[i] = ToStashDTO(item, now)
	}
	return &StashListResult{
		Stashes:    dtos,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages(total, filter.PageSize),
	}, nil
}

// Update replaces purity, expiry and notes of a stash
func (s *StashService) Update(ctx context.Context, input UpdateStashInput) (*StashDTO, error) {
	var stash *journal.Stash
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		stash, err = ownedStash(ctx, repos.Stashes(), input.AccountID, input.ID)
		if err != nil {
			return err
		}
		if err := stash.Update(journal.StashParams{
			Purity:    input.Purity,
			ExpiresAt: input.ExpiresAt,
			Notes:     sanitize.Text(input.Notes),
		}); err != nil {
			return err
		}
		return repos.Stashes().Update(ctx, stash)
	})
	if err != nil {
		return nil, err
	}
	dto := ToStashDTO(stash, s.now())
	return &dto, nil
}

// Deposit adds an amount to a stash
func (s *StashService) Deposit(ctx context.Context, input DepositInput) (*StashDTO, error) {
	amount, err := substance.ParseMass(input.Amount)
	if err != nil {
		return nil, err
	}

	var stash *journal.Stash
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		stash, err = ownedStash(ctx, repos.Stashes(), input.AccountID, input.ID)
		if err != nil {
			return err
		}
		if err := stash.Deposit(amount); err != nil {
			return err
		}
		if err := repos.Stashes().Update(ctx, stash); err != nil {
			return err
		}
		return repos.Events().Record(ctx, stash.PullDomainEvents()...)
	})
	if err != nil {
		return nil, err
	}
	dto := ToStashDTO(stash, s.now())
	return &dto, nil
}

// Delete removes one of the account's stashes
func (s *StashService) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		stash, err := ownedStash(ctx, repos.Stashes(), accountID, id)
		if err != nil {
			return err
		}
		stash.MarkDeleted()
		if err := repos.Stashes().Delete(ctx, stash.ID); err != nil {
			return err
		}
		return repos.Events().Record(ctx, stash.PullDomainEvents()...)
	})
}

// SweepExpired flags every stash whose expiry passed and returns how many were flagged
func (s *StashService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	swept := 0
	for {
		batch, err := s.stashes.FindExpiredUnmarked(ctx, now, sweepBatchSize)
		if err != nil {
			return swept, err
		}

		marked := 0
		for _, stash := range batch {
			if !stash.MarkExpired(now) {
				continue
			}
			err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
				if err := repos.Stashes().Update(ctx, stash); err != nil {
					return err
				}
				return repos.Events().Record(ctx, stash.PullDomainEvents()...)
			})
			if err != nil {
				return swept, err
			}
			swept++
			marked++
		}

		if len(batch) < sweepBatchSize || marked == 0 {
			return swept, nil
		}
		if err := ctx.Err(); err != nil {
			return swept, err
		}
	}
}
