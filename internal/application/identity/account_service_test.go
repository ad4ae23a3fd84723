package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/auth"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type accountFixture struct {
	accounts  *MockAccountRepository
	subjects  *MockSubjectRepository
	roles     *MockRoleRepository
	events    *capturePublisher
	blacklist *auth.InMemoryTokenBlacklist
	service   *AccountService
}

func newAccountFixture(registration bool) *accountFixture {
	f := &accountFixture{
		accounts:  new(MockAccountRepository),
		subjects:  new(MockSubjectRepository),
		roles:     new(MockRoleRepository),
		events:    &capturePublisher{},
		blacklist: auth.NewInMemoryTokenBlacklist(),
	}
	scope := NewNoOpTransactionScope(f.accounts, f.subjects, f.events)
	f.service = NewAccountService(scope, f.accounts, f.subjects, f.roles, &plainHasher{}, f.blacklist,
		AccountServiceConfig{RegistrationEnabled: registration, TokenLifetime: time.Hour}, zap.NewNop())
	return f
}

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(true)
	userRole := createTestRole(identity.RoleCodeUser, "journal:read")

	f.roles.On("FindByCode", ctx, identity.RoleCodeUser).Return(userRole, nil)
	f.accounts.On("ExistsByUsername", ctx, "newuser").Return(false, nil)
	f.accounts.On("ExistsByEmail", ctx, "new@example.com").Return(false, nil)
	f.accounts.On("Create", ctx, mock.AnythingOfType("*identity.Account")).Return(nil)

	dto, err := f.service.Register(ctx, RegisterInput{
		Username: "NewUser",
		Email:    "New@Example.com",
		Password: "Password123",
	})

	require.NoError(t, err)
	assert.Equal(t, "newuser", dto.Username)
	assert.Equal(t, "new@example.com", dto.Email)
	assert.Equal(t, "active", dto.Status)
	assert.False(t, dto.EmailVerified)
	assert.Equal(t, []uuid.UUID{userRole.ID}, dto.RoleIDs)
	assert.Equal(t, []string{identity.EventTypeAccountRegistered}, f.events.types())
	f.accounts.AssertExpectations(t)
}

func TestAccountService_Register_Disabled(t *testing.T) {
	f := newAccountFixture(false)

	_, err := f.service.Register(context.Background(), RegisterInput{Username: "newuser", Email: "a@b.io", Password: "Password123"})
	assert.ErrorIs(t, err, identity.ErrRegistrationDisabled)
	f.accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAccountService_Register_Conflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("username taken", func(t *testing.T) {
		f := newAccountFixture(true)
		f.roles.On("FindByCode", ctx, identity.RoleCodeUser).Return(nil, shared.ErrNotFound)
		f.accounts.On("ExistsByUsername", ctx, "newuser").Return(true, nil)

		_, err := f.service.Register(ctx, RegisterInput{Username: "newuser", Email: "a@b.io", Password: "Password123"})
		assert.ErrorIs(t, err, identity.ErrUsernameTaken)
		assert.Empty(t, f.events.types())
	})

	t.Run("email taken", func(t *testing.T) {
		f := newAccountFixture(true)
		f.roles.On("FindByCode", ctx, identity.RoleCodeUser).Return(nil, shared.ErrNotFound)
		f.accounts.On("ExistsByUsername", ctx, "newuser").Return(false, nil)
		f.accounts.On("ExistsByEmail", ctx, "a@b.io").Return(true, nil)

		_, err := f.service.Register(ctx, RegisterInput{Username: "newuser", Email: "a@b.io", Password: "Password123"})
		assert.ErrorIs(t, err, identity.ErrEmailTaken)
	})

	t.Run("weak password", func(t *testing.T) {
		f := newAccountFixture(true)
		_, err := f.service.Register(ctx, RegisterInput{Username: "newuser", Email: "a@b.io", Password: "password"})
		require.Error(t, err)
		f.accounts.AssertNotCalled(t, "ExistsByUsername", mock.Anything, mock.Anything)
	})
}

func TestAccountService_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(true)
	id := uuid.New()
	f.accounts.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

	_, err := f.service.Get(ctx, id)
	assert.ErrorIs(t, err, identity.ErrAccountNotFound)
}

func TestAccountService_Update_EmailResetsVerification(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(true)
	account := newTestAccount("testuser")
	require.NoError(t, account.VerifyEmail())
	account.ClearDomainEvents()

	f.accounts.On("FindByID", ctx, account.ID).Return(account, nil)
	f.accounts.On("ExistsByEmail", ctx, "other@example.com").Return(false, nil)
	f.accounts.On("Update", ctx, account).Return(nil)

	email := "Other@Example.com"
	dto, err := f.service.Update(ctx, UpdateAccountInput{AccountID: account.ID, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "other@example.com", dto.Email)
	assert.False(t, dto.EmailVerified)
	assert.Equal(t, []string{identity.EventTypeAccountEmailChanged}, f.events.types())
}

func TestAccountService_Delete_RevokesTokens(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(true)
	account := newTestAccount("testuser")

	f.accounts.On("FindByID", ctx, account.ID).Return(account, nil)
	f.accounts.On("Delete", ctx, account.ID).Return(nil)

	require.NoError(t, f.service.Delete(ctx, account.ID))
	assert.Equal(t, []string{identity.EventTypeAccountDeleted}, f.events.types())

	revoked, err := f.blacklist.IsAccountRevoked(ctx, account.ID.String(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAccountService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(true)
	account := newTestAccount("testuser")

	f.accounts.On("FindByID", ctx, account.ID).Return(account, nil)
	f.accounts.On("Update", ctx, account).Return(nil)

	err := f.service.ChangePassword(ctx, ChangePasswordInput{
		AccountID:   account.ID,
		OldPassword: "Password123",
		NewPassword: "NewPassword456",
	})
	require.NoError(t, err)
	assert.Equal(t, "$plain$NewPassword456", account.PasswordHash)
	assert.Equal(t, []string{identity.EventTypeAccountPasswordChanged}, f.events.types())

	err = f.service.ChangePassword(ctx, ChangePasswordInput{
		AccountID:   account.ID,
		OldPassword: "Password123",
		NewPassword: "Another789",
	})
	assert.Error(t, err)
}

func TestAccountService_List(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(true)
	filter := identity.NewAccountFilter()
	filter.PageSize = 2

	f.accounts.On("FindAll", ctx, filter).Return([]*identity.Account{newTestAccount("alpha"), newTestAccount("bravo")}, int64(5), nil)

	result, err := f.service.List(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, result.Accounts, 2)
	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 3, result.TotalPages)
}

func TestAccountService_AssignRoles(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(true)
	account := newTestAccount("testuser")
	moderator := createTestRole("moderator", "substance:write")

	f.roles.On("FindByIDs", ctx, []uuid.UUID{moderator.ID}).Return([]*identity.Role{moderator}, nil)
	f.accounts.On("FindByID", ctx, account.ID).Return(account, nil)
	f.accounts.On("SaveAccountRoles", ctx, account).Return(nil)
	f.accounts.On("Update", ctx, account).Return(nil)

	dto, err := f.service.AssignRoles(ctx, account.ID, []uuid.UUID{moderator.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{moderator.ID}, dto.RoleIDs)
	assert.Equal(t, []string{identity.EventTypeAccountRolesChanged}, f.events.types())

	unknown := uuid.New()
	f.roles.On("FindByIDs", ctx, []uuid.UUID{unknown}).Return([]*identity.Role{}, nil)
	_, err = f.service.AssignRoles(ctx, account.ID, []uuid.UUID{unknown})
	assert.ErrorIs(t, err, identity.ErrRoleNotFound)
}

func TestAccountService_Subject(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(true)
	accountID := uuid.New()

	f.subjects.On("FindByAccountID", ctx, accountID).Return(nil, shared.ErrNotFound).Once()
	_, err := f.service.GetSubject(ctx, accountID)
	assert.ErrorIs(t, err, identity.ErrSubjectNotFound)

	f.subjects.On("FindByAccountID", ctx, accountID).Return(nil, shared.ErrNotFound).Once()
	f.subjects.On("Save", ctx, mock.AnythingOfType("*identity.Subject")).Return(nil)

	weight := decimal.NewFromInt(72)
	dto, err := f.service.UpsertSubject(ctx, accountID, identity.SubjectUpdate{FirstName: "Ada", Weight: &weight})
	require.NoError(t, err)
	assert.Equal(t, accountID, dto.AccountID)
	assert.Equal(t, "Ada", dto.FirstName)
	require.NotNil(t, dto.Weight)
	assert.True(t, dto.Weight.Equal(weight))

	heavy := decimal.NewFromInt(900)
	f.subjects.On("FindByAccountID", ctx, accountID).Return(identity.NewSubject(accountID), nil).Once()
	_, err = f.service.UpsertSubject(ctx, accountID, identity.SubjectUpdate{Weight: &heavy})
	assert.Error(t, err)
}
