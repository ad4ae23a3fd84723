package substance

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/stretchr/testify/mock"
)

// MockSubstanceRepository is a mock implementation of substance.SubstanceRepository
type MockSubstanceRepository struct {
	mock.Mock
}

func (m *MockSubstanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*substance.Substance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*substance.Substance), args.Error(1)
}

func (m *MockSubstanceRepository) FindByName(ctx context.Context, name string) (*substance.Substance, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*substance.Substance), args.Error(1)
}

func (m *MockSubstanceRepository) FindAll(ctx context.Context, filter substance.SubstanceFilter) ([]*substance.Substance, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*substance.Substance), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubstanceRepository) Create(ctx context.Context, s *substance.Substance) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSubstanceRepository) Update(ctx context.Context, s *substance.Substance) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSubstanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSubstanceRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubstanceRepository) ListRoutes(ctx context.Context, filter substance.RouteFilter) ([]*substance.RouteOfAdministration, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*substance.RouteOfAdministration), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubstanceRepository) FindRoute(ctx context.Context, substanceID uuid.UUID, route substance.Route) (*substance.RouteOfAdministration, error) {
	args := m.Called(ctx, substanceID, route)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*substance.RouteOfAdministration), args.Error(1)
}

// MockEffectRepository is a mock implementation of substance.EffectRepository
type MockEffectRepository struct {
	mock.Mock
}

func (m *MockEffectRepository) Create(ctx context.Context, e *substance.Effect) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEffectRepository) Update(ctx context.Context, e *substance.Effect) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEffectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEffectRepository) FindByID(ctx context.Context, id uuid.UUID) (*substance.Effect, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*substance.Effect), args.Error(1)
}

func (m *MockEffectRepository) FindBySlug(ctx context.Context, slug string) (*substance.Effect, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*substance.Effect), args.Error(1)
}

func (m *MockEffectRepository) FindAll(ctx context.Context, filter substance.EffectFilter) ([]*substance.Effect, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*substance.Effect), args.Get(1).(int64), args.Error(2)
}

func (m *MockEffectRepository) ListForSubstance(ctx context.Context, substanceID uuid.UUID) ([]*substance.Effect, error) {
	args := m.Called(ctx, substanceID)
	return args.Get(0).([]*substance.Effect), args.Error(1)
}

func (m *MockEffectRepository) Link(ctx context.Context, substanceID, effectID uuid.UUID) error {
	return m.Called(ctx, substanceID, effectID).Error(0)
}

func (m *MockEffectRepository) Unlink(ctx context.Context, substanceID, effectID uuid.UUID) error {
	return m.Called(ctx, substanceID, effectID).Error(0)
}

// stubSubjects serves subjects from a map
type stubSubjects struct {
	byAccount map[uuid.UUID]*identity.Subject
}

func (s *stubSubjects) FindByAccountID(_ context.Context, accountID uuid.UUID) (*identity.Subject, error) {
	if subject, ok := s.byAccount[accountID]; ok {
		return subject, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubSubjects) Save(context.Context, *identity.Subject) error { return nil }

func (s *stubSubjects) DeleteByAccountID(context.Context, uuid.UUID) error { return nil }

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

// dosageCounter records classified bands
type dosageCounter struct {
	bands []string
}

func (c *dosageCounter) DosageClassified(classification string) {
	c.bands = append(c.bands, classification)
}
