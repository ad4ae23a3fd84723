package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the Account aggregate.
type AccountModel struct {
	AggregateModel
	Username          string                 `gorm:"type:varchar(32);not null;uniqueIndex"`
	Email             string                 `gorm:"type:varchar(254);not null;uniqueIndex"`
	PasswordHash      string                 `gorm:"type:varchar(512);not null"`
	Status            identity.AccountStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	EmailVerified     bool                   `gorm:"not null;default:false"`
	EmailVerifiedAt   *time.Time
	FailedAttempts    int `gorm:"not null;default:0"`
	LockedUntil       *time.Time
	LastLoginAt       *time.Time `gorm:"index"`
	LastLoginIP       string     `gorm:"type:varchar(45)"`
	PasswordChangedAt *time.Time
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account.
// RoleIDs are loaded separately by the repository.
func (m *AccountModel) ToDomain() *identity.Account {
	a := &identity.Account{
		Username:          m.Username,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Status:            m.Status,
		EmailVerified:     m.EmailVerified,
		EmailVerifiedAt:   m.EmailVerifiedAt,
		RoleIDs:           make([]uuid.UUID, 0),
		FailedAttempts:    m.FailedAttempts,
		LockedUntil:       m.LockedUntil,
		LastLoginAt:       m.LastLoginAt,
		LastLoginIP:       m.LastLoginIP,
		PasswordChangedAt: m.PasswordChangedAt,
	}
	m.PopulateAggregateRoot(&a.BaseAggregateRoot)
	return a
}

// FromDomain populates the persistence model from a domain Account.
func (m *AccountModel) FromDomain(a *identity.Account) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.Username = a.Username
	m.Email = a.Email
	m.PasswordHash = a.PasswordHash
	m.Status = a.Status
	m.EmailVerified = a.EmailVerified
	m.EmailVerifiedAt = a.EmailVerifiedAt
	m.FailedAttempts = a.FailedAttempts
	m.LockedUntil = a.LockedUntil
	m.LastLoginAt = a.LastLoginAt
	m.LastLoginIP = a.LastLoginIP
	m.PasswordChangedAt = a.PasswordChangedAt
}

// AccountModelFromDomain creates a new persistence model from a domain Account.
func AccountModelFromDomain(a *identity.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// AccountRoleModel links accounts to roles.
type AccountRoleModel struct {
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountRoleModel) TableName() string {
	return "account_roles"
}

// RoleModel is the persistence model for the Role aggregate.
type RoleModel struct {
	AggregateModel
	Code         string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string `gorm:"type:varchar(100);not null"`
	Description  string `gorm:"type:text"`
	IsSystemRole bool   `gorm:"not null;default:false"`
	IsEnabled    bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (RoleModel) TableName() string {
	return "roles"
}

// ToDomain converts the persistence model to a domain Role.
// Permissions are loaded separately by the repository.
func (m *RoleModel) ToDomain() *identity.Role {
	r := &identity.Role{
		Code:         m.Code,
		Name:         m.Name,
		Description:  m.Description,
		IsSystemRole: m.IsSystemRole,
		IsEnabled:    m.IsEnabled,
		Permissions:  make([]identity.Permission, 0),
	}
	m.PopulateAggregateRoot(&r.BaseAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain Role.
func (m *RoleModel) FromDomain(r *identity.Role) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Code = r.Code
	m.Name = r.Name
	m.Description = r.Description
	m.IsSystemRole = r.IsSystemRole
	m.IsEnabled = r.IsEnabled
}

// RoleModelFromDomain creates a new persistence model from a domain Role.
func RoleModelFromDomain(r *identity.Role) *RoleModel {
	m := &RoleModel{}
	m.FromDomain(r)
	return m
}

// RolePermissionModel is the persistence model for role permissions.
type RolePermissionModel struct {
	RoleID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code        string    `gorm:"type:varchar(101);primaryKey"`
	Resource    string    `gorm:"type:varchar(50);not null;index"`
	Action      string    `gorm:"type:varchar(50);not null"`
	Description string    `gorm:"type:varchar(200)"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RolePermissionModel) TableName() string {
	return "role_permissions"
}

// ToDomain converts the persistence model to a domain Permission.
func (m *RolePermissionModel) ToDomain() identity.Permission {
	return identity.Permission{
		Code:        m.Code,
		Resource:    m.Resource,
		Action:      m.Action,
		Description: m.Description,
	}
}

// FromDomain populates the persistence model from a domain Permission.
func (m *RolePermissionModel) FromDomain(roleID uuid.UUID, p identity.Permission) {
	m.RoleID = roleID
	m.Code = p.Code
	m.Resource = p.Resource
	m.Action = p.Action
	m.Description = p.Description
	m.CreatedAt = time.Now()
}

// SubjectModel is the persistence model for an account's subject profile.
type SubjectModel struct {
	BaseModel
	AccountID   uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex"`
	FirstName   string           `gorm:"type:varchar(100)"`
	LastName    string           `gorm:"type:varchar(100)"`
	DateOfBirth *time.Time       `gorm:"type:date"`
	WeightKg    *decimal.Decimal `gorm:"type:decimal(6,2)"`
	HeightCm    *decimal.Decimal `gorm:"type:decimal(6,2)"`
}

// TableName returns the table name for GORM
func (SubjectModel) TableName() string {
	return "subjects"
}

// ToDomain converts the persistence model to a domain Subject.
func (m *SubjectModel) ToDomain() *identity.Subject {
	return &identity.Subject{
		BaseEntity:  m.BaseModel.ToDomain(),
		AccountID:   m.AccountID,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		DateOfBirth: m.DateOfBirth,
		Weight:      m.WeightKg,
		Height:      m.HeightCm,
	}
}

// FromDomain populates the persistence model from a domain Subject.
func (m *SubjectModel) FromDomain(s *identity.Subject) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.AccountID = s.AccountID
	m.FirstName = s.FirstName
	m.LastName = s.LastName
	m.DateOfBirth = s.DateOfBirth
	m.WeightKg = s.Weight
	m.HeightCm = s.Height
}

