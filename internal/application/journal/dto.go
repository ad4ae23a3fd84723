package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/shopspring/decimal"
)

// LogIngestionInput records a new journal entry. Substance is an id or a name.
type LogIngestionInput struct {
	AccountID               uuid.UUID  `json:"-"`
	Substance               string     `json:"substance" binding:"required"`
	Route                   string     `json:"route"`
	Dosage                  string     `json:"dosage" binding:"required"`
	IsEstimatedDosage       bool       `json:"is_estimated_dosage"`
	DosageStandardDeviation string     `json:"dosage_standard_deviation"`
	IngestedAt              *time.Time `json:"ingested_at"`
	StashID                 *uuid.UUID `json:"stash_id"`
	Notes                   string     `json:"notes" binding:"max=4000"`
}

// UpdateIngestionInput replaces the editable fields of a journal entry
type UpdateIngestionInput struct {
	AccountID               uuid.UUID  `json:"-"`
	ID                      uuid.UUID  `json:"-"`
	Route                   string     `json:"route"`
	Dosage                  string     `json:"dosage" binding:"required"`
	IsEstimatedDosage       bool       `json:"is_estimated_dosage"`
	DosageStandardDeviation string     `json:"dosage_standard_deviation"`
	IngestedAt              *time.Time `json:"ingested_at"`
	Notes                   string     `json:"notes" binding:"max=4000"`
}

// ListIngestionsInput filters an account's journal
type ListIngestionsInput struct {
	AccountID uuid.UUID
	From      *time.Time
	To        *time.Time
	Substance string
	Route     string
	Page      int
	PageSize  int
	Sort      string
}

// IngestionDTO is the response shape of a journal entry
type IngestionDTO struct {
	ID                      uuid.UUID       `json:"id"`
	AccountID               uuid.UUID       `json:"account_id"`
	SubstanceID             uuid.UUID       `json:"substance_id"`
	SubstanceName           string          `json:"substance_name"`
	Route                   string          `json:"route"`
	Dosage                  string          `json:"dosage"`
	DosageMg                decimal.Decimal `json:"dosage_mg"`
	IsEstimatedDosage       bool            `json:"is_estimated_dosage"`
	DosageStandardDeviation *string         `json:"dosage_standard_deviation,omitempty"`
	IngestedAt              time.Time       `json:"ingested_at"`
	StashID                 *uuid.UUID      `json:"stash_id,omitempty"`
	Notes                   string          `json:"notes,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// ToIngestionDTO converts an ingestion to its response shape
func ToIngestionDTO(i *journal.Ingestion) IngestionDTO {
	dto := IngestionDTO{
		ID:                i.ID,
		AccountID:         i.AccountID,
		SubstanceID:       i.SubstanceID,
		SubstanceName:     i.SubstanceName,
		Route:             string(i.Route),
		Dosage:            i.Dosage.String(),
		DosageMg:          i.Dosage.Milligrams(),
		IsEstimatedDosage: i.IsEstimatedDosage,
		IngestedAt:        i.IngestedAt,
		StashID:           i.StashID,
		Notes:             i.Notes,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
	if i.DosageStandardDeviation != nil {
		s := i.DosageStandardDeviation.String()
		dto.DosageStandardDeviation = &s
	}
	return dto
}

// IngestionListResult is a page of journal entries
type IngestionListResult struct {
	Ingestions []IngestionDTO `json:"ingestions"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// AnalysisDTO is the phase timeline of an ingestion at a point in time
type AnalysisDTO struct {
	IngestionID          uuid.UUID             `json:"ingestion_id"`
	SubstanceName        string                `json:"substance_name"`
	Route                string                `json:"route"`
	Dosage               string                `json:"dosage"`
	DosageClassification *string               `json:"dosage_classification,omitempty"`
	Start                time.Time             `json:"start"`
	End                  time.Time             `json:"end"`
	Phases               []journal.PhaseWindow `json:"phases"`
	CurrentPhase         string                `json:"current_phase"`
	Progress             float64               `json:"progress"`
	IsActive             bool                  `json:"is_active"`
}

// ToAnalysisDTO evaluates an analysis at now
func ToAnalysisDTO(a *journal.IngestionAnalysis, now time.Time) AnalysisDTO {
	dto := AnalysisDTO{
		IngestionID:   a.IngestionID,
		SubstanceName: a.SubstanceName,
		Route:         string(a.Route),
		Dosage:        a.Dosage.String(),
		Start:         a.Start,
		End:           a.End,
		Phases:        a.Phases,
		CurrentPhase:  string(a.CurrentPhase(now)),
		Progress:      a.Progress(now),
		IsActive:      a.IsActive(now),
	}
	if a.DosageClassification != nil {
		c := string(*a.DosageClassification)
		dto.DosageClassification = &c
	}
	return dto
}

// ActiveIngestionDTO pairs an ingestion with its analysis
type ActiveIngestionDTO struct {
	Ingestion IngestionDTO `json:"ingestion"`
	Analysis  AnalysisDTO  `json:"analysis"`
}

// CreateStashInput adds a supply of a substance. Substance is an id or a name.
type CreateStashInput struct {
	AccountID uuid.UUID        `json:"-"`
	Substance string           `json:"substance" binding:"required"`
	Amount    string           `json:"amount" binding:"required"`
	Purity    *decimal.Decimal `json:"purity"`
	ExpiresAt *time.Time       `json:"expires_at"`
	Notes     string           `json:"notes" binding:"max=4000"`
}

// UpdateStashInput replaces the editable fields of a stash
type UpdateStashInput struct {
	AccountID uuid.UUID        `json:"-"`
	ID        uuid.UUID        `json:"-"`
	Purity    *decimal.Decimal `json:"purity"`
	ExpiresAt *time.Time       `json:"expires_at"`
	Notes     string           `json:"notes" binding:"max=4000"`
}

// DepositInput adds to a stash
type DepositInput struct {
	AccountID uuid.UUID `json:"-"`
	ID        uuid.UUID `json:"-"`
	Amount    string    `json:"amount" binding:"required"`
}

// ListStashesInput filters an account's stashes
type ListStashesInput struct {
	AccountID      uuid.UUID
	Substance      string
	IncludeExpired bool
	Page           int
	PageSize       int
}

// StashDTO is the response shape of a stash
type StashDTO struct {
	ID            uuid.UUID        `json:"id"`
	AccountID     uuid.UUID        `json:"account_id"`
	SubstanceID   uuid.UUID        `json:"substance_id"`
	SubstanceName string           `json:"substance_name"`
	Amount        string           `json:"amount"`
	AmountMg      decimal.Decimal  `json:"amount_mg"`
	ActiveAmount  string           `json:"active_amount"`
	Purity        *decimal.Decimal `json:"purity,omitempty"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	IsExpired     bool             `json:"is_expired"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ToStashDTO converts a stash to its response shape
func ToStashDTO(s *journal.Stash, now time.Time) StashDTO {
	return StashDTO{
		ID:            s.ID,
		AccountID:     s.AccountID,
		SubstanceID:   s.SubstanceID,
		SubstanceName: s.SubstanceName,
		Amount:        s.Amount.String(),
		AmountMg:      s.Amount.Milligrams(),
		ActiveAmount:  s.ActiveAmount().String(),
		Purity:        s.Purity,
		ExpiresAt:     s.ExpiresAt,
		IsExpired:     s.IsExpired(now),
		Notes:         s.Notes,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// StashListResult is a page of stashes
type StashListResult struct {
	Stashes    []StashDTO `json:"stashes"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// ExportResult locates an uploaded journal export
type ExportResult struct {
	Key         string    `json:"key"`
	URL         string    `json:"url,omitempty"`
	URLExpires  time.Time `json:"url_expires_at,omitempty"`
	Ingestions  int       `json:"ingestions"`
	Stashes     int       `json:"stashes"`
	GeneratedAt time.Time `json:"generated_at"`
}

func parseOptionalMass(s string) (*substance.Mass, error) {
	if s == "" {
		return nil, nil
	}
	m, err := substance.ParseMass(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
