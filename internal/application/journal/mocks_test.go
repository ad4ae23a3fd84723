package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/stretchr/testify/mock"
)

// MockIngestionRepository is a mock implementation of journal.IngestionRepository
type MockIngestionRepository struct {
	mock.Mock
}

func (m *MockIngestionRepository) Create(ctx context.Context, i *journal.Ingestion) error {
	return m.Called(ctx, i).Error(0)
}

func (m *MockIngestionRepository) Update(ctx context.Context, i *journal.Ingestion) error {
	return m.Called(ctx, i).Error(0)
}

func (m *MockIngestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockIngestionRepository) FindByID(ctx context.Context, id uuid.UUID) (*journal.Ingestion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Ingestion), args.Error(1)
}

func (m *MockIngestionRepository) FindAll(ctx context.Context, filter journal.IngestionFilter) ([]*journal.Ingestion, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*journal.Ingestion), args.Get(1).(int64), args.Error(2)
}

func (m *MockIngestionRepository) FindSince(ctx context.Context, accountID uuid.UUID, since time.Time) ([]*journal.Ingestion, error) {
	args := m.Called(ctx, accountID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Ingestion), args.Error(1)
}

func (m *MockIngestionRepository) FindAccountsLoggedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockIngestionRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return m.Called(ctx, accountID).Error(0)
}

// MockStashRepository is a mock implementation of journal.StashRepository
type MockStashRepository struct {
	mock.Mock
}

func (m *MockStashRepository) Create(ctx context.Context, s *journal.Stash) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockStashRepository) Update(ctx context.Context, s *journal.Stash) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockStashRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStashRepository) FindByID(ctx context.Context, id uuid.UUID) (*journal.Stash, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Stash), args.Error(1)
}

func (m *MockStashRepository) FindAll(ctx context.Context, filter journal.StashFilter) ([]*journal.Stash, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*journal.Stash), args.Get(1).(int64), args.Error(2)
}

func (m *MockStashRepository) FindExpiredUnmarked(ctx context.Context, now time.Time, limit int) ([]*journal.Stash, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]*journal.Stash), args.Error(1)
}

func (m *MockStashRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return m.Called(ctx, accountID).Error(0)
}

// fakeSubstances serves a fixed catalogue
type fakeSubstances struct {
	substance.SubstanceRepository
	byID map[uuid.UUID]*substance.Substance
}

func newFakeSubstances(subs ...*substance.Substance) *fakeSubstances {
	f := &fakeSubstances{byID: make(map[uuid.UUID]*substance.Substance)}
	for _, s := range subs {
		f.byID[s.ID] = s
	}
	return f
}

func (f *fakeSubstances) FindByID(_ context.Context, id uuid.UUID) (*substance.Substance, error) {
	if s, ok := f.byID[id]; ok {
		return s, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeSubstances) FindByName(_ context.Context, name string) (*substance.Substance, error) {
	for _, s := range f.byID {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeSubstances) FindRoute(_ context.Context, substanceID uuid.UUID, route substance.Route) (*substance.RouteOfAdministration, error) {
	s, ok := f.byID[substanceID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s.Route(route)
}

// capturePublisher collects published events
type capturePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}
