package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	appevent "github.com/neuronek/backend/internal/application/event"
	appidentity "github.com/neuronek/backend/internal/application/identity"
	appjournal "github.com/neuronek/backend/internal/application/journal"
	appsubstance "github.com/neuronek/backend/internal/application/substance"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/substance"
)

// The interfaces below are the slices of the application services each
// handler calls. The concrete services satisfy them.

// AuthService issues and revokes tokens
type AuthService interface {
	Login(ctx context.Context, input appidentity.LoginInput) (*appidentity.LoginResult, error)
	Refresh(ctx context.Context, input appidentity.RefreshTokenInput) (*appidentity.TokenResult, error)
	Logout(ctx context.Context, input appidentity.LogoutInput) error
	Me(ctx context.Context, accountID uuid.UUID) (*appidentity.AccountInfo, error)
}

// AccountService manages accounts and their subject profiles
type AccountService interface {
	Register(ctx context.Context, input appidentity.RegisterInput) (*appidentity.AccountDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*appidentity.AccountDTO, error)
	Update(ctx context.Context, input appidentity.UpdateAccountInput) (*appidentity.AccountDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ChangePassword(ctx context.Context, input appidentity.ChangePasswordInput) error
	List(ctx context.Context, filter identity.AccountFilter) (*appidentity.AccountListResult, error)
	AssignRoles(ctx context.Context, accountID uuid.UUID, roleIDs []uuid.UUID) (*appidentity.AccountDTO, error)
	GetSubject(ctx context.Context, accountID uuid.UUID) (*appidentity.SubjectDTO, error)
	UpsertSubject(ctx context.Context, accountID uuid.UUID, update identity.SubjectUpdate) (*appidentity.SubjectDTO, error)
}

// VerificationService confirms account email addresses
type VerificationService interface {
	Resend(ctx context.Context, email string) error
	Verify(ctx context.Context, code string) (*appidentity.AccountDTO, error)
}

// RecoveryService resets forgotten passwords
type RecoveryService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, newPassword string) error
}

// RoleService manages roles and their permissions
type RoleService interface {
	Create(ctx context.Context, input appidentity.CreateRoleInput) (*appidentity.RoleDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*appidentity.RoleDTO, error)
	List(ctx context.Context, filter identity.RoleFilter) (*appidentity.RoleListResult, error)
	Update(ctx context.Context, input appidentity.UpdateRoleInput) (*appidentity.RoleDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetPermissions(ctx context.Context, id uuid.UUID, permissions []string) (*appidentity.RoleDTO, error)
}

// SubstanceService serves the substance catalogue
type SubstanceService interface {
	Get(ctx context.Context, idOrName string) (*appsubstance.SubstanceDTO, error)
	List(ctx context.Context, filter substance.SubstanceFilter) (*appsubstance.SubstanceListResult, error)
	Create(ctx context.Context, input appsubstance.SubstanceInput) (*appsubstance.SubstanceDTO, error)
	Update(ctx context.Context, idOrName string, input appsubstance.SubstanceInput) (*appsubstance.SubstanceDTO, error)
	Delete(ctx context.Context, idOrName string) error
	ListRoutes(ctx context.Context, query appsubstance.RouteQuery) (*appsubstance.RouteListResult, error)
	GetRoute(ctx context.Context, idOrName, route string) (*appsubstance.RouteDTO, error)
	ClassifyDosage(ctx context.Context, input appsubstance.ClassifyInput) (*appsubstance.ClassificationResult, error)
}

// EffectService serves effects and their links to substances
type EffectService interface {
	CreateEffect(ctx context.Context, input appsubstance.EffectInput) (*appsubstance.EffectDTO, error)
	GetEffect(ctx context.Context, idOrSlug string) (*appsubstance.EffectDTO, error)
	ListEffects(ctx context.Context, filter substance.EffectFilter) (*appsubstance.EffectListResult, error)
	UpdateEffect(ctx context.Context, idOrSlug string, input appsubstance.EffectInput) (*appsubstance.EffectDTO, error)
	DeleteEffect(ctx context.Context, idOrSlug string) error
	ListSubstanceEffects(ctx context.Context, idOrName string) ([]appsubstance.EffectDTO, error)
	LinkEffect(ctx context.Context, substanceRef, effectRef string) error
	UnlinkEffect(ctx context.Context, substanceRef, effectRef string) error
}

// IngestionService records and analyzes ingestions
type IngestionService interface {
	Log(ctx context.Context, input appjournal.LogIngestionInput) (*appjournal.IngestionDTO, error)
	Get(ctx context.Context, accountID, id uuid.UUID) (*appjournal.IngestionDTO, error)
	List(ctx context.Context, input appjournal.ListIngestionsInput) (*appjournal.IngestionListResult, error)
	Update(ctx context.Context, input appjournal.UpdateIngestionInput) (*appjournal.IngestionDTO, error)
	Delete(ctx context.Context, accountID, id uuid.UUID) error
	Analyze(ctx context.Context, accountID, id uuid.UUID, now time.Time) (*appjournal.AnalysisDTO, error)
	Active(ctx context.Context, accountID uuid.UUID, now time.Time) ([]appjournal.ActiveIngestionDTO, error)
}

// StashService manages personal stashes
type StashService interface {
	Create(ctx context.Context, input appjournal.CreateStashInput) (*appjournal.StashDTO, error)
	Get(ctx context.Context, accountID, id uuid.UUID) (*appjournal.StashDTO, error)
	List(ctx context.Context, input appjournal.ListStashesInput) (*appjournal.StashListResult, error)
	Update(ctx context.Context, input appjournal.UpdateStashInput) (*appjournal.StashDTO, error)
	Deposit(ctx context.Context, input appjournal.DepositInput) (*appjournal.StashDTO, error)
	Delete(ctx context.Context, accountID, id uuid.UUID) error
}

// ExportService writes journal exports to object storage
type ExportService interface {
	Export(ctx context.Context, accountID uuid.UUID) (*appjournal.ExportResult, error)
}

// OutboxService inspects and replays the transactional outbox
type OutboxService interface {
	ListDead(ctx context.Context, filter appevent.OutboxFilter) (*appevent.OutboxListResult, error)
	Retry(ctx context.Context, id uuid.UUID) (*appevent.OutboxEntryDTO, error)
	RetryAllDead(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*appevent.OutboxStatsDTO, error)
}

var (
	_ AuthService         = (*appidentity.AuthService)(nil)
	_ AccountService      = (*appidentity.AccountService)(nil)
	_ VerificationService = (*appidentity.VerificationService)(nil)
	_ RecoveryService     = (*appidentity.RecoveryService)(nil)
	_ RoleService         = (*appidentity.RoleService)(nil)
	_ SubstanceService    = (*appsubstance.SubstanceService)(nil)
	_ EffectService       = (*appsubstance.SubstanceService)(nil)
	_ IngestionService    = (*appjournal.IngestionService)(nil)
	_ StashService        = (*appjournal.StashService)(nil)
	_ ExportService       = (*appjournal.ExportService)(nil)
	_ OutboxService       = (*appevent.OutboxService)(nil)
)
