package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/shopspring/decimal"
)

// IngestionModel is the persistence model for a journal entry.
type IngestionModel struct {
	AggregateModel
	AccountID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_ingestion_account_time,priority:1"`
	SubstanceID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	SubstanceName  string           `gorm:"type:varchar(200);not null"`
	Route          substance.Route  `gorm:"type:varchar(20);not null"`
	DosageMg       decimal.Decimal  `gorm:"type:decimal(20,6);not null"`
	IsEstimated    bool             `gorm:"column:is_estimated_dosage;not null;default:false"`
	DosageStdDevMg *decimal.Decimal `gorm:"column:dosage_std_dev_mg;type:decimal(20,6)"`
	IngestedAt     time.Time        `gorm:"not null;index:idx_ingestion_account_time,priority:2"`
	StashID        *uuid.UUID       `gorm:"type:uuid;index"`
	Notes          string           `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (IngestionModel) TableName() string {
	return "ingestions"
}

// ToDomain converts the persistence model to a domain Ingestion.
func (m *IngestionModel) ToDomain() *journal.Ingestion {
	i := &journal.Ingestion{
		AccountID:               m.AccountID,
		SubstanceID:             m.SubstanceID,
		SubstanceName:           m.SubstanceName,
		Route:                   m.Route,
		Dosage:                  substance.Milligrams(m.DosageMg),
		IsEstimatedDosage:       m.IsEstimated,
		DosageStandardDeviation: massPtr(m.DosageStdDevMg),
		IngestedAt:              m.IngestedAt.UTC(),
		StashID:                 m.StashID,
		Notes:                   m.Notes,
	}
	m.PopulateAggregateRoot(&i.BaseAggregateRoot)
	return i
}

// FromDomain populates the persistence model from a domain Ingestion.
func (m *IngestionModel) FromDomain(i *journal.Ingestion) {
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	m.AccountID = i.AccountID
	m.SubstanceID = i.SubstanceID
	m.SubstanceName = i.SubstanceName
	m.Route = i.Route
	m.DosageMg = i.Dosage.Milligrams()
	m.IsEstimated = i.IsEstimatedDosage
	m.DosageStdDevMg = milligramsPtr(i.DosageStandardDeviation)
	m.IngestedAt = i.IngestedAt
	m.StashID = i.StashID
	m.Notes = i.Notes
}

// IngestionModelFromDomain creates a new persistence model from a domain Ingestion.
func IngestionModelFromDomain(i *journal.Ingestion) *IngestionModel {
	m := &IngestionModel{}
	m.FromDomain(i)
	return m
}

// StashModel is the persistence model for a stash.
type StashModel struct {
	AggregateModel
	AccountID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	SubstanceID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	SubstanceName string           `gorm:"type:varchar(200);not null"`
	AmountMg      decimal.Decimal  `gorm:"type:decimal(20,6);not null"`
	Purity        *decimal.Decimal `gorm:"type:decimal(5,2)"`
	ExpiresAt     *time.Time       `gorm:"index"`
	ExpiredAt     *time.Time
	Notes         string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (StashModel) TableName() string {
	return "stashes"
}

// ToDomain converts the persistence model to a domain Stash.
func (m *StashModel) ToDomain() *journal.Stash {
	s := &journal.Stash{
		AccountID:     m.AccountID,
		SubstanceID:   m.SubstanceID,
		SubstanceName: m.SubstanceName,
		Amount:        substance.Milligrams(m.AmountMg),
		Purity:        m.Purity,
		ExpiresAt:     m.ExpiresAt,
		ExpiredAt:     m.ExpiredAt,
		Notes:         m.Notes,
	}
	m.PopulateAggregateRoot(&s.BaseAggregateRoot)
	return s
}

// FromDomain populates the persistence model from a domain Stash.
func (m *StashModel) FromDomain(s *journal.Stash) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.AccountID = s.AccountID
	m.SubstanceID = s.SubstanceID
	m.SubstanceName = s.SubstanceName
	m.AmountMg = s.Amount.Milligrams()
	m.Purity = s.Purity
	m.ExpiresAt = s.ExpiresAt
	m.ExpiredAt = s.ExpiredAt
	m.Notes = s.Notes
}

// StashModelFromDomain creates a new persistence model from a domain Stash.
func StashModelFromDomain(s *journal.Stash) *StashModel {
	m := &StashModel{}
	m.FromDomain(s)
	return m
}
