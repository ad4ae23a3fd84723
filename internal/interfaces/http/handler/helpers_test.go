package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	appevent "github.com/neuronek/backend/internal/application/event"
	appidentity "github.com/neuronek/backend/internal/application/identity"
	appjournal "github.com/neuronek/backend/internal/application/journal"
	appsubstance "github.com/neuronek/backend/internal/application/substance"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/neuronek/backend/internal/infrastructure/auth"
	"github.com/neuronek/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testJTI = "jti-under-test"

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

// withAccount stands in for the JWT middleware
func withAccount(id uuid.UUID, expiresAt time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        testJTI,
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			AccountID: id.String(),
			Username:  "alice",
			TokenType: auth.TokenTypeAccess,
		}
		c.Set(middleware.JWTClaimsKey, claims)
		c.Set(middleware.JWTAccountIDKey, claims.AccountID)
		c.Next()
	}
}

func newTestRouter(accountID uuid.UUID) *gin.Engine {
	r := gin.New()
	if accountID != uuid.Nil {
		r.Use(withAccount(accountID, time.Now().Add(15*time.Minute)))
	}
	return r
}

func doJSON(r http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

// dataAs re-decodes the data member of a success envelope into out
func dataAs(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

// mockAuthService is a mock implementation of AuthService
type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Login(ctx context.Context, input appidentity.LoginInput) (*appidentity.LoginResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.LoginResult), args.Error(1)
}

func (m *mockAuthService) Refresh(ctx context.Context, input appidentity.RefreshTokenInput) (*appidentity.TokenResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.TokenResult), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, input appidentity.LogoutInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *mockAuthService) Me(ctx context.Context, accountID uuid.UUID) (*appidentity.AccountInfo, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.AccountInfo), args.Error(1)
}

// mockAccountService is a mock implementation of AccountService
type mockAccountService struct {
	mock.Mock
}

func (m *mockAccountService) account(args mock.Arguments) (*appidentity.AccountDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.AccountDTO), args.Error(1)
}

func (m *mockAccountService) Register(ctx context.Context, input appidentity.RegisterInput) (*appidentity.AccountDTO, error) {
	return m.account(m.Called(ctx, input))
}

func (m *mockAccountService) Get(ctx context.Context, id uuid.UUID) (*appidentity.AccountDTO, error) {
	return m.account(m.Called(ctx, id))
}

func (m *mockAccountService) Update(ctx context.Context, input appidentity.UpdateAccountInput) (*appidentity.AccountDTO, error) {
	return m.account(m.Called(ctx, input))
}

func (m *mockAccountService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAccountService) ChangePassword(ctx context.Context, input appidentity.ChangePasswordInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *mockAccountService) List(ctx context.Context, filter identity.AccountFilter) (*appidentity.AccountListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.AccountListResult), args.Error(1)
}

func (m *mockAccountService) AssignRoles(ctx context.Context, accountID uuid.UUID, roleIDs []uuid.UUID) (*appidentity.AccountDTO, error) {
	return m.account(m.Called(ctx, accountID, roleIDs))
}

func (m *mockAccountService) GetSubject(ctx context.Context, accountID uuid.UUID) (*appidentity.SubjectDTO, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.SubjectDTO), args.Error(1)
}

func (m *mockAccountService) UpsertSubject(ctx context.Context, accountID uuid.UUID, update identity.SubjectUpdate) (*appidentity.SubjectDTO, error) {
	args := m.Called(ctx, accountID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.SubjectDTO), args.Error(1)
}

// mockVerificationService is a mock implementation of VerificationService
type mockVerificationService struct {
	mock.Mock
}

func (m *mockVerificationService) Resend(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockVerificationService) Verify(ctx context.Context, code string) (*appidentity.AccountDTO, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.AccountDTO), args.Error(1)
}

// mockRecoveryService is a mock implementation of RecoveryService
type mockRecoveryService struct {
	mock.Mock
}

func (m *mockRecoveryService) RequestReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockRecoveryService) ResetPassword(ctx context.Context, code, newPassword string) error {
	return m.Called(ctx, code, newPassword).Error(0)
}

// mockRoleService is a mock implementation of RoleService
type mockRoleService struct {
	mock.Mock
}

func (m *mockRoleService) role(args mock.Arguments) (*appidentity.RoleDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.RoleDTO), args.Error(1)
}

func (m *mockRoleService) Create(ctx context.Context, input appidentity.CreateRoleInput) (*appidentity.RoleDTO, error) {
	return m.role(m.Called(ctx, input))
}

func (m *mockRoleService) Get(ctx context.Context, id uuid.UUID) (*appidentity.RoleDTO, error) {
	return m.role(m.Called(ctx, id))
}

func (m *mockRoleService) List(ctx context.Context, filter identity.RoleFilter) (*appidentity.RoleListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.RoleListResult), args.Error(1)
}

func (m *mockRoleService) Update(ctx context.Context, input appidentity.UpdateRoleInput) (*appidentity.RoleDTO, error) {
	return m.role(m.Called(ctx, input))
}

func (m *mockRoleService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRoleService) SetPermissions(ctx context.Context, id uuid.UUID, permissions []string) (*appidentity.RoleDTO, error) {
	return m.role(m.Called(ctx, id, permissions))
}

// mockSubstanceService is a mock implementation of SubstanceService and EffectService
type mockSubstanceService struct {
	mock.Mock
}

func (m *mockSubstanceService) substance(args mock.Arguments) (*appsubstance.SubstanceDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsubstance.SubstanceDTO), args.Error(1)
}

func (m *mockSubstanceService) effect(args mock.Arguments) (*appsubstance.EffectDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsubstance.EffectDTO), args.Error(1)
}

func (m *mockSubstanceService) Get(ctx context.Context, idOrName string) (*appsubstance.SubstanceDTO, error) {
	return m.substance(m.Called(ctx, idOrName))
}

func (m *mockSubstanceService) List(ctx context.Context, filter substance.SubstanceFilter) (*appsubstance.SubstanceListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsubstance.SubstanceListResult), args.Error(1)
}

func (m *mockSubstanceService) Create(ctx context.Context, input appsubstance.SubstanceInput) (*appsubstance.SubstanceDTO, error) {
	return m.substance(m.Called(ctx, input))
}

func (m *mockSubstanceService) Update(ctx context.Context, idOrName string, input appsubstance.SubstanceInput) (*appsubstance.SubstanceDTO, error) {
	return m.substance(m.Called(ctx, idOrName, input))
}

func (m *mockSubstanceService) Delete(ctx context.Context, idOrName string) error {
	return m.Called(ctx, idOrName).Error(0)
}

func (m *mockSubstanceService) ListRoutes(ctx context.Context, query appsubstance.RouteQuery) (*appsubstance.RouteListResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsubstance.RouteListResult), args.Error(1)
}

func (m *mockSubstanceService) GetRoute(ctx context.Context, idOrName, route string) (*appsubstance.RouteDTO, error) {
	args := m.Called(ctx, idOrName, route)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsubstance.RouteDTO), args.Error(1)
}

func (m *mockSubstanceService) ClassifyDosage(ctx context.Context, input appsubstance.ClassifyInput) (*appsubstance.ClassificationResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsubstance.ClassificationResult), args.Error(1)
}

func (m *mockSubstanceService) CreateEffect(ctx context.Context, input appsubstance.EffectInput) (*appsubstance.EffectDTO, error) {
	return m.effect(m.Called(ctx, input))
}

func (m *mockSubstanceService) GetEffect(ctx context.Context, idOrSlug string) (*appsubstance.EffectDTO, error) {
	return m.effect(m.Called(ctx, idOrSlug))
}

func (m *mockSubstanceService) ListEffects(ctx context.Context, filter substance.EffectFilter) (*appsubstance.EffectListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsubstance.EffectListResult), args.Error(1)
}

func (m *mockSubstanceService) UpdateEffect(ctx context.Context, idOrSlug string, input appsubstance.EffectInput) (*appsubstance.EffectDTO, error) {
	return m.effect(m.Called(ctx, idOrSlug, input))
}

func (m *mockSubstanceService) DeleteEffect(ctx context.Context, idOrSlug string) error {
	return m.Called(ctx, idOrSlug).Error(0)
}

func (m *mockSubstanceService) ListSubstanceEffects(ctx context.Context, idOrName string) ([]appsubstance.EffectDTO, error) {
	args := m.Called(ctx, idOrName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appsubstance.EffectDTO), args.Error(1)
}

func (m *mockSubstanceService) LinkEffect(ctx context.Context, substanceRef, effectRef string) error {
	return m.Called(ctx, substanceRef, effectRef).Error(0)
}

func (m *mockSubstanceService) UnlinkEffect(ctx context.Context, substanceRef, effectRef string) error {
	return m.Called(ctx, substanceRef, effectRef).Error(0)
}

// mockIngestionService is a mock implementation of IngestionService
type mockIngestionService struct {
	mock.Mock
}

func (m *mockIngestionService) ingestion(args mock.Arguments) (*appjournal.IngestionDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appjournal.IngestionDTO), args.Error(1)
}

func (m *mockIngestionService) Log(ctx context.Context, input appjournal.LogIngestionInput) (*appjournal.IngestionDTO, error) {
	return m.ingestion(m.Called(ctx, input))
}

func (m *mockIngestionService) Get(ctx context.Context, accountID, id uuid.UUID) (*appjournal.IngestionDTO, error) {
	return m.ingestion(m.Called(ctx, accountID, id))
}

func (m *mockIngestionService) List(ctx context.Context, input appjournal.ListIngestionsInput) (*appjournal.IngestionListResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appjournal.IngestionListResult), args.Error(1)
}

func (m *mockIngestionService) Update(ctx context.Context, input appjournal.UpdateIngestionInput) (*appjournal.IngestionDTO, error) {
	return m.ingestion(m.Called(ctx, input))
}

func (m *mockIngestionService) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	return m.Called(ctx, accountID, id).Error(0)
}

func (m *mockIngestionService) Analyze(ctx context.Context, accountID, id uuid.UUID, now time.Time) (*appjournal.AnalysisDTO, error) {
	args := m.Called(ctx, accountID, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appjournal.AnalysisDTO), args.Error(1)
}

func (m *mockIngestionService) Active(ctx context.Context, accountID uuid.UUID, now time.Time) ([]appjournal.ActiveIngestionDTO, error) {
	args := m.Called(ctx, accountID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appjournal.ActiveIngestionDTO), args.Error(1)
}

// mockStashService is a mock implementation of StashService
type mockStashService struct {
	mock.Mock
}

func (m *mockStashService) stash(args mock.Arguments) (*appjournal.StashDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appjournal.StashDTO), args.Error(1)
}

func (m *mockStashService) Create(ctx context.Context, input appjournal.CreateStashInput) (*appjournal.StashDTO, error) {
	return m.stash(m.Called(ctx, input))
}

func (m *mockStashService) Get(ctx context.Context, accountID, id uuid.UUID) (*appjournal.StashDTO, error) {
	return m.stash(m.Called(ctx, accountID, id))
}

func (m *mockStashService) List(ctx context.Context, input appjournal.ListStashesInput) (*appjournal.StashListResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appjournal.StashListResult), args.Error(1)
}

func (m *mockStashService) Update(ctx context.Context, input appjournal.UpdateStashInput) (*appjournal.StashDTO, error) {
	return m.stash(m.Called(ctx, input))
}

func (m *mockStashService) Deposit(ctx context.Context, input appjournal.DepositInput) (*appjournal.StashDTO, error) {
	return m.stash(m.Called(ctx, input))
}

func (m *mockStashService) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	return m.Called(ctx, accountID, id).Error(0)
}

// mockExportService is a mock implementation of ExportService
type mockExportService struct {
	mock.Mock
}

func (m *mockExportService) Export(ctx context.Context, accountID uuid.UUID) (*appjournal.ExportResult, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appjournal.ExportResult), args.Error(1)
}

// mockOutboxService is a mock implementation of OutboxService
type mockOutboxService struct {
	mock.Mock
}

func (m *mockOutboxService) ListDead(ctx context.Context, filter appevent.OutboxFilter) (*appevent.OutboxListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appevent.OutboxListResult), args.Error(1)
}

func (m *mockOutboxService) Retry(ctx context.Context, id uuid.UUID) (*appevent.OutboxEntryDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appevent.OutboxEntryDTO), args.Error(1)
}

func (m *mockOutboxService) RetryAllDead(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutboxService) Stats(ctx context.Context) (*appevent.OutboxStatsDTO, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appevent.OutboxStatsDTO), args.Error(1)
}

var (
	_ AuthService         = (*mockAuthService)(nil)
	_ AccountService      = (*mockAccountService)(nil)
	_ VerificationService = (*mockVerificationService)(nil)
	_ RecoveryService     = (*mockRecoveryService)(nil)
	_ RoleService         = (*mockRoleService)(nil)
	_ SubstanceService    = (*mockSubstanceService)(nil)
	_ EffectService       = (*mockSubstanceService)(nil)
	_ IngestionService    = (*mockIngestionService)(nil)
	_ StashService        = (*mockStashService)(nil)
	_ ExportService       = (*mockExportService)(nil)
	_ OutboxService       = (*mockOutboxService)(nil)
)
