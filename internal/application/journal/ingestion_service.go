package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/neuronek/backend/internal/infrastructure/sanitize"
	"github.com/neuronek/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// activeLookback bounds how far back Active searches; no route's main effects last longer
const activeLookback = 48 * time.Hour

// IngestionService manages an account's journal entries
type IngestionService struct {
	scope      TransactionScope
	ingestions journal.IngestionRepository
	substances substance.SubstanceRepository
	subjects   identity.SubjectRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	scope TransactionScope,
	ingestions journal.IngestionRepository,
	substances substance.SubstanceRepository,
	subjects identity.SubjectRepository,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		scope:      scope,
		ingestions: ingestions,
		substances: substances,
		subjects:   subjects,
		logger:     logger,
		now:        time.Now,
	}
}

// Log records an ingestion, withdrawing the dose from a stash when one is named
func (s *IngestionService) Log(ctx context.Context, input LogIngestionInput) (dto *IngestionDTO, err error) {
	ctx, span := telemetry.StartSpan(ctx, "journal.log_ingestion",
		telemetry.AttrAccountID.String(input.AccountID.String()),
		telemetry.AttrSubstance.String(input.Substance))
	defer func() { telemetry.EndSpan(span, err) }()

	sub, err := findSubstance(ctx, s.substances, input.Substance)
	if err != nil {
		return nil, err
	}
	params, err := ingestionParams(input.Route, input.Dosage, input.DosageStandardDeviation, input.IsEstimatedDosage, input.IngestedAt, input.Notes)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.AttrRoute.String(string(params.Route)))

	ingestion, err := journal.NewIngestion(input.AccountID, sub, input.StashID, params, s.now())
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if input.StashID != nil {
			stash, err := ownedStash(ctx, repos.Stashes(), input.AccountID, *input.StashID)
			if err != nil {
				return err
			}
			if stash.SubstanceID != sub.ID {
				return journal.ErrStashMismatch
			}
			if stash.IsExpired(ingestion.IngestedAt) {
				return journal.ErrStashExpired
			}
			if err := stash.Withdraw(ingestion.Dosage); err != nil {
				return err
			}
			if err := repos.Stashes().Update(ctx, stash); err != nil {
				return err
			}
			if err := repos.Events().Record(ctx, stash.PullDomainEvents()...); err != nil {
				return err
			}
		}

		if err := repos.Ingestions().Create(ctx, ingestion); err != nil {
			return err
		}
		return repos.Events().Record(ctx, ingestion.PullDomainEvents()...)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(telemetry.AttrIngestionID.String(ingestion.ID.String()))
	s.logger.Info("Ingestion logged",
		zap.String("ingestion_id", ingestion.ID.String()),
		zap.String("account_id", ingestion.AccountID.String()),
		zap.String("substance", ingestion.SubstanceName),
		zap.Bool("from_stash", ingestion.StashID != nil))

	result := ToIngestionDTO(ingestion)
	return &result, nil
}

// Get returns one of the account's ingestions
func (s *IngestionService) Get(ctx context.Context, accountID, id uuid.UUID) (*IngestionDTO, error) {
	ingestion, err := ownedIngestion(ctx, s.ingestions, accountID, id)
	if err != nil {
		return nil, err
	}
	dto := ToIngestionDTO(ingestion)
	return &dto, nil
}

// List returns a page of the account's ingestions
func (s *IngestionService) List(ctx context.Context, input ListIngestionsInput) (*IngestionListResult, error) {
	filter := journal.IngestionFilter{
		AccountID: input.AccountID,
		From:      input.From,
		To:        input.To,
	}
	filter.Page, filter.PageSize = normalizePage(input.Page, input.PageSize)

	field, order, err := substance.ParseSort(input.Sort)
	if err != nil {
		return nil, err
	}
	filter.SortBy, filter.SortOrder = field, order

	if input.Substance != "" {
		sub, err := findSubstance(ctx, s.substances, input.Substance)
		if err != nil {
			return nil, err
		}
		filter.SubstanceID = &sub.ID
	}
	if input.Route != "" {
		route, err := substance.ParseRoute(input.Route)
		if err != nil {
			return nil, err
		}
		filter.Route = &route
	}

	items, total, err := s.ingestions.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	dtos := make([]IngestionDTO, len(items))
	for i, item := range items {
		dtos[i] = ToIngestionDTO(item)
	}
	return &IngestionListResult{
		Ingestions: dtos,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages(total, filter.PageSize),
	}, nil
}

// Update replaces an ingestion's fields. A changed dose drawn from a stash
// moves the difference into or out of the stash.
func (s *IngestionService) Update(ctx context.Context, input UpdateIngestionInput) (*IngestionDTO, error) {
	params, err := ingestionParams(input.Route, input.Dosage, input.DosageStandardDeviation, input.IsEstimatedDosage, input.IngestedAt, input.Notes)
	if err != nil {
		return nil, err
	}

	var ingestion *journal.Ingestion
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ingestion, err = ownedIngestion(ctx, repos.Ingestions(), input.AccountID, input.ID)
		if err != nil {
			return err
		}

		previous := ingestion.Dosage
		if err := ingestion.Update(params, s.now()); err != nil {
			return err
		}

		if ingestion.StashID != nil && !previous.Equal(ingestion.Dosage) {
			if err := s.adjustStash(ctx, repos, ingestion, previous); err != nil {
				return err
			}
		}

		if err := repos.Ingestions().Update(ctx, ingestion); err != nil {
			return err
		}
		return repos.Events().Record(ctx, ingestion.PullDomainEvents()...)
	})
	if err != nil {
		return nil, err
	}

	dto := ToIngestionDTO(ingestion)
	return &dto, nil
}

func (s *IngestionService) adjustStash(ctx context.Context, repos TransactionalRepositories, ingestion *journal.Ingestion, previous substance.Mass) error {
	stash, err := repos.Stashes().FindByID(ctx, *ingestion.StashID)
	if errors.Is(err, shared.ErrNotFound) {
		// the stash was deleted after the ingestion was logged
		return nil
	}
	if err != nil {
		return err
	}

	if ingestion.Dosage.Cmp(previous) > 0 {
		err = stash.Withdraw(ingestion.Dosage.Sub(previous))
	} else {
		err = stash.Deposit(previous.Sub(ingestion.Dosage))
	}
	if err != nil {
		return err
	}
	if err := repos.Stashes().Update(ctx, stash); err != nil {
		return err
	}
	return repos.Events().Record(ctx, stash.PullDomainEvents()...)
}

// Delete removes one of the account's ingestions
func (s *IngestionService) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ingestion, err := ownedIngestion(ctx, repos.Ingestions(), accountID, id)
		if err != nil {
			return err
		}
		ingestion.MarkDeleted()
		if err := repos.Ingestions().Delete(ctx, ingestion.ID); err != nil {
			return err
		}
		return repos.Events().Record(ctx, ingestion.PullDomainEvents()...)
	})
}

// Analyze lays out the phase timeline of an ingestion and evaluates it at now
func (s *IngestionService) Analyze(ctx context.Context, accountID, id uuid.UUID, now time.Time) (dto *AnalysisDTO, err error) {
	ctx, span := telemetry.StartSpan(ctx, "journal.analyze_ingestion",
		telemetry.AttrAccountID.String(accountID.String()),
		telemetry.AttrIngestionID.String(id.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	ingestion, err := ownedIngestion(ctx, s.ingestions, accountID, id)
	if err != nil {
		return nil, err
	}
	route, err := s.substances.FindRoute(ctx, ingestion.SubstanceID, ingestion.Route)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, substance.ErrRouteNotFound
	}
	if err != nil {
		return nil, err
	}

	analysis, err := journal.Analyze(ingestion, route, subjectWeight(ctx, s.subjects, accountID))
	if err != nil {
		return nil, err
	}
	result := ToAnalysisDTO(analysis, now)
	return &result, nil
}

type routeKey struct {
	substanceID uuid.UUID
	route       substance.Route
}

// Active returns the account's ingestions whose main effects span now
func (s *IngestionService) Active(ctx context.Context, accountID uuid.UUID, now time.Time) ([]ActiveIngestionDTO, error) {
	ingestions, err := s.ingestions.FindSince(ctx, accountID, now.Add(-activeLookback))
	if err != nil {
		return nil, err
	}

	weight := subjectWeight(ctx, s.subjects, accountID)
	routes := make(map[routeKey]*substance.RouteOfAdministration)
	active := make([]ActiveIngestionDTO, 0)

	for _, ingestion := range ingestions {
		key := routeKey{ingestion.SubstanceID, ingestion.Route}
		route, seen := routes[key]
		if !seen {
			route, err = s.substances.FindRoute(ctx, key.substanceID, key.route)
			if err != nil && !errors.Is(err, substance.ErrRouteNotFound) && !errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
			routes[key] = route
		}
		if route == nil {
			continue
		}

		analysis, err := journal.Analyze(ingestion, route, weight)
		if err != nil {
			// routes without phase data cannot be placed on a timeline
			continue
		}
		if analysis.IsActive(now) {
			active = append(active, ActiveIngestionDTO{
				Ingestion: ToIngestionDTO(ingestion),
				Analysis:  ToAnalysisDTO(analysis, now),
			})
		}
	}
	return active, nil
}

// DeleteAccountJournal removes every ingestion and stash of an account
func (s *IngestionService) DeleteAccountJournal(ctx context.Context, accountID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Ingestions().DeleteByAccount(ctx, accountID); err != nil {
			return err
		}
		return repos.Stashes().DeleteByAccount(ctx, accountID)
	})
}

// Handle removes the journal of deleted accounts
func (s *IngestionService) Handle(ctx context.Context, event shared.DomainEvent) error {
	if event.EventType() != identity.EventTypeAccountDeleted {
		return nil
	}
	if err := s.DeleteAccountJournal(ctx, event.AggregateID()); err != nil {
		return err
	}
	s.logger.Info("Journal removed for deleted account", zap.String("account_id", event.AggregateID().String()))
	return nil
}

// EventTypes returns the events Handle reacts to
func (s *IngestionService) EventTypes() []string {
	return []string{identity.EventTypeAccountDeleted}
}

var _ shared.EventHandler = (*IngestionService)(nil)

func ingestionParams(route, dosage, deviation string, estimated bool, ingestedAt *time.Time, notes string) (journal.IngestionParams, error) {
	r, err := substance.ParseRouteOrDefault(route)
	if err != nil {
		return journal.IngestionParams{}, err
	}
	mass, err := substance.ParseMass(dosage)
	if err != nil {
		return journal.IngestionParams{}, err
	}
	dev, err := parseOptionalMass(deviation)
	if err != nil {
		return journal.IngestionParams{}, err
	}
	return journal.IngestionParams{
		Route:                   r,
		Dosage:                  mass,
		IsEstimatedDosage:       estimated,
		DosageStandardDeviation: dev,
		IngestedAt:              ingestedAt,
		Notes:                   sanitize.Text(notes),
	}, nil
}
