package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/notification"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of identity.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *identity.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *identity.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByUsername(ctx context.Context, username string) (*identity.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*identity.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAll(ctx context.Context, filter identity.AccountFilter) ([]*identity.Account, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*identity.Account), args.Get(1).(int64), args.Error(2)
}

func (m *MockAccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) SaveAccountRoles(ctx context.Context, account *identity.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockSubjectRepository is a mock implementation of identity.SubjectRepository
type MockSubjectRepository struct {
	mock.Mock
}

func (m *MockSubjectRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*identity.Subject, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Subject), args.Error(1)
}

func (m *MockSubjectRepository) Save(ctx context.Context, subject *identity.Subject) error {
	args := m.Called(ctx, subject)
	return args.Error(0)
}

func (m *MockSubjectRepository) DeleteByAccountID(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

// MockRoleRepository is a mock implementation of identity.RoleRepository
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) Create(ctx context.Context, role *identity.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) Update(ctx context.Context, role *identity.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Role), args.Error(1)
}

func (m *MockRoleRepository) FindByCode(ctx context.Context, code string) (*identity.Role, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Role), args.Error(1)
}

func (m *MockRoleRepository) FindAll(ctx context.Context, filter identity.RoleFilter) ([]*identity.Role, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*identity.Role), args.Get(1).(int64), args.Error(2)
}

func (m *MockRoleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.Role, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*identity.Role), args.Error(1)
}

func (m *MockRoleRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoleRepository) CountAccountsWithRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	args := m.Called(ctx, roleID)
	return args.Get(0).(int64), args.Error(1)
}

// plainHasher stores passwords in a readable PHC-like form
type plainHasher struct {
	stale bool
}

func (h *plainHasher) Hash(password string) (string, error) {
	return "$plain$" + password, nil
}

func (h *plainHasher) Verify(password, encoded string) (bool, error) {
	return strings.TrimPrefix(encoded, "$plain$") == password, nil
}

func (h *plainHasher) NeedsRehash(string) bool {
	return h.stale
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

// captureMailer records sent messages
type captureMailer struct {
	mu   sync.Mutex
	sent []notification.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg notification.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last() notification.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

func newTestAccount(username string) *identity.Account {
	account, err := identity.NewAccount(username, username+"@example.com", "Password123", &plainHasher{})
	if err != nil {
		panic(err)
	}
	account.ClearDomainEvents()
	return account
}
