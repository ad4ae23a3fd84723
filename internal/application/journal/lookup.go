package journal

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/shopspring/decimal"
)

func findSubstance(ctx context.Context, repo substance.SubstanceRepository, ref string) (*substance.Substance, error) {
	ref = strings.TrimSpace(ref)
	var (
		sub *substance.Substance
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		sub, err = repo.FindByID(ctx, id)
	} else {
		sub, err = repo.FindByName(ctx, strings.ToLower(ref))
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, substance.ErrSubstanceNotFound
	}
	return sub, err
}

// ownedIngestion loads an ingestion and hides other accounts' entries
func ownedIngestion(ctx context.Context, repo journal.IngestionRepository, accountID, id uuid.UUID) (*journal.Ingestion, error) {
	ingestion, err := repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, journal.ErrIngestionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !ingestion.IsOwnedBy(accountID) {
		return nil, journal.ErrIngestionNotFound
	}
	return ingestion, nil
}

// ownedStash loads a stash and hides other accounts' stashes
func ownedStash(ctx context.Context, repo journal.StashRepository, accountID, id uuid.UUID) (*journal.Stash, error) {
	stash, err := repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, journal.ErrStashNotFound
	}
	if err != nil {
		return nil, err
	}
	if !stash.IsOwnedBy(accountID) {
		return nil, journal.ErrStashNotFound
	}
	return stash, nil
}

func subjectWeight(ctx context.Context, subjects identity.SubjectRepository, accountID uuid.UUID) *decimal.Decimal {
	if subjects == nil {
		return nil
	}
	subject, err := subjects.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil
	}
	if w, ok := subject.WeightKg(); ok {
		return &w
	}
	return nil
}
