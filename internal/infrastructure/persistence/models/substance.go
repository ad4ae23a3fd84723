package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/shopspring/decimal"
)

// SubstanceModel is the persistence model for the Substance aggregate.
type SubstanceModel struct {
	AggregateModel
	Name                string       `gorm:"type:varchar(200);not null;uniqueIndex"`
	CommonNames         StringList   `gorm:"type:jsonb;not null"`
	BrandNames          StringList   `gorm:"type:jsonb;not null"`
	SystematicName      string       `gorm:"type:text"`
	Unii                string       `gorm:"type:varchar(20)"`
	CasNumber           string       `gorm:"type:varchar(20)"`
	InchiKey            string       `gorm:"type:varchar(27)"`
	Iupac               string       `gorm:"type:text"`
	Smiles              string       `gorm:"type:text"`
	PsychoactiveClasses StringList   `gorm:"type:jsonb;not null"`
	ChemicalClasses     StringList   `gorm:"type:jsonb;not null"`
	Description         string       `gorm:"type:text"`
	Routes              []RouteModel `gorm:"foreignKey:SubstanceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (SubstanceModel) TableName() string {
	return "substances"
}

// ToDomain converts the persistence model to a domain Substance, including any loaded routes.
func (m *SubstanceModel) ToDomain() *substance.Substance {
	s := &substance.Substance{
		Name:                m.Name,
		CommonNames:         cloneStrings(m.CommonNames),
		BrandNames:          cloneStrings(m.BrandNames),
		SystematicName:      m.SystematicName,
		Unii:                m.Unii,
		CasNumber:           m.CasNumber,
		InchiKey:            m.InchiKey,
		Iupac:               m.Iupac,
		Smiles:              m.Smiles,
		PsychoactiveClasses: cloneStrings(m.PsychoactiveClasses),
		ChemicalClasses:     cloneStrings(m.ChemicalClasses),
		Description:         m.Description,
		Routes:              make([]substance.RouteOfAdministration, 0, len(m.Routes)),
	}
	m.PopulateAggregateRoot(&s.BaseAggregateRoot)
	for i := range m.Routes {
		route := m.Routes[i].ToDomain()
		route.SubstanceName = m.Name
		s.Routes = append(s.Routes, route)
	}
	return s
}

// FromDomain populates the persistence model from a domain Substance, routes included.
func (m *SubstanceModel) FromDomain(s *substance.Substance) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.Name = s.Name
	m.CommonNames = cloneStrings(s.CommonNames)
	m.BrandNames = cloneStrings(s.BrandNames)
	m.SystematicName = s.SystematicName
	m.Unii = s.Unii
	m.CasNumber = s.CasNumber
	m.InchiKey = s.InchiKey
	m.Iupac = s.Iupac
	m.Smiles = s.Smiles
	m.PsychoactiveClasses = cloneStrings(s.PsychoactiveClasses)
	m.ChemicalClasses = cloneStrings(s.ChemicalClasses)
	m.Description = s.Description
	m.Routes = make([]RouteModel, len(s.Routes))
	for i := range s.Routes {
		m.Routes[i].FromDomain(&s.Routes[i])
	}
}

// SubstanceModelFromDomain creates a new persistence model from a domain Substance.
func SubstanceModelFromDomain(s *substance.Substance) *SubstanceModel {
	m := &SubstanceModel{}
	m.FromDomain(s)
	return m
}

// RouteModel is the persistence model for a route of administration.
type RouteModel struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	SubstanceID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_route_substance_classification,priority:1"`
	Classification  substance.Route  `gorm:"type:varchar(20);not null;uniqueIndex:idx_route_substance_classification,priority:2"`
	Bioavailability *decimal.Decimal `gorm:"type:decimal(5,2)"`
	SubstanceName   string           `gorm:"->;-:migration"` // filled by joins with substances
	Dosages         []DosageModel    `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE"`
	Phases          []PhaseModel     `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (RouteModel) TableName() string {
	return "routes_of_administration"
}

// ToDomain converts the persistence model to a domain route with any loaded dosages and phases.
func (m *RouteModel) ToDomain() substance.RouteOfAdministration {
	r := substance.RouteOfAdministration{
		ID:              m.ID,
		SubstanceID:     m.SubstanceID,
		SubstanceName:   m.SubstanceName,
		Classification:  m.Classification,
		Bioavailability: m.Bioavailability,
		Dosages:         make([]substance.DosageRange, len(m.Dosages)),
		Phases:          make([]substance.Phase, len(m.Phases)),
	}
	for i := range m.Dosages {
		r.Dosages[i] = m.Dosages[i].ToDomain()
	}
	for i := range m.Phases {
		r.Phases[i] = m.Phases[i].ToDomain()
	}
	return r
}

// FromDomain populates the persistence model from a domain route.
func (m *RouteModel) FromDomain(r *substance.RouteOfAdministration) {
	m.ID = r.ID
	m.SubstanceID = r.SubstanceID
	m.Classification = r.Classification
	m.Bioavailability = r.Bioavailability
	m.Dosages = make([]DosageModel, len(r.Dosages))
	for i, d := range r.Dosages {
		m.Dosages[i].FromDomain(r.ID, d)
	}
	m.Phases = make([]PhaseModel, len(r.Phases))
	for i, p := range r.Phases {
		m.Phases[i].FromDomain(r.ID, p)
	}
}

// DosageModel stores one dosage band of a route; bounds are milligrams.
type DosageModel struct {
	RouteID        uuid.UUID                      `gorm:"type:uuid;primaryKey"`
	Classification substance.DosageClassification `gorm:"type:varchar(20);primaryKey"`
	MinMg          *decimal.Decimal               `gorm:"type:decimal(20,6)"`
	MaxMg          *decimal.Decimal               `gorm:"type:decimal(20,6)"`
	PerKilogram    bool                           `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (DosageModel) TableName() string {
	return "dosages"
}

// ToDomain converts the persistence model to a domain DosageRange.
func (m *DosageModel) ToDomain() substance.DosageRange {
	return substance.DosageRange{
		Classification: m.Classification,
		Min:            massPtr(m.MinMg),
		Max:            massPtr(m.MaxMg),
		PerKilogram:    m.PerKilogram,
	}
}

// FromDomain populates the persistence model from a domain DosageRange.
func (m *DosageModel) FromDomain(routeID uuid.UUID, d substance.DosageRange) {
	m.RouteID = routeID
	m.Classification = d.Classification
	m.MinMg = milligramsPtr(d.Min)
	m.MaxMg = milligramsPtr(d.Max)
	m.PerKilogram = d.PerKilogram
}

// PhaseModel stores the duration of one phase of a route in seconds.
type PhaseModel struct {
	RouteID        uuid.UUID                     `gorm:"type:uuid;primaryKey"`
	Classification substance.PhaseClassification `gorm:"type:varchar(20);primaryKey"`
	MinSeconds     int64                         `gorm:"not null"`
	MaxSeconds     int64                         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PhaseModel) TableName() string {
	return "phases"
}

// ToDomain converts the persistence model to a domain Phase.
func (m *PhaseModel) ToDomain() substance.Phase {
	return substance.Phase{
		Classification: m.Classification,
		Duration: substance.DurationRange{
			Min: time.Duration(m.MinSeconds) * time.Second,
			Max: time.Duration(m.MaxSeconds) * time.Second,
		},
	}
}

// FromDomain populates the persistence model from a domain Phase.
func (m *PhaseModel) FromDomain(routeID uuid.UUID, p substance.Phase) {
	m.RouteID = routeID
	m.Classification = p.Classification
	m.MinSeconds = int64(p.Duration.Min / time.Second)
	m.MaxSeconds = int64(p.Duration.Max / time.Second)
}

// EffectModel is the persistence model for a subjective effect.
type EffectModel struct {
	BaseModel
	Name              string     `gorm:"type:varchar(200);not null"`
	Slug              string     `gorm:"type:varchar(200);not null;uniqueIndex"`
	Category          string     `gorm:"type:varchar(100);index"`
	Type              string     `gorm:"type:varchar(100)"`
	Tags              StringList `gorm:"type:jsonb;not null"`
	Summary           string     `gorm:"type:text"`
	Description       string     `gorm:"type:text"`
	Parameters        StringList `gorm:"type:jsonb;not null"`
	SeeAlso           StringList `gorm:"type:jsonb;not null"`
	EffectIndexURL    string     `gorm:"type:varchar(500)"`
	PsychonautWikiURL string     `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (EffectModel) TableName() string {
	return "effects"
}

// ToDomain converts the persistence model to a domain Effect.
func (m *EffectModel) ToDomain() *substance.Effect {
	return &substance.Effect{
		BaseEntity:        m.BaseModel.ToDomain(),
		Name:              m.Name,
		Slug:              m.Slug,
		Category:          m.Category,
		Type:              m.Type,
		Tags:              cloneStrings(m.Tags),
		Summary:           m.Summary,
		Description:       m.Description,
		Parameters:        cloneStrings(m.Parameters),
		SeeAlso:           cloneStrings(m.SeeAlso),
		EffectIndexURL:    m.EffectIndexURL,
		PsychonautWikiURL: m.PsychonautWikiURL,
	}
}

// FromDomain populates the persistence model from a domain Effect.
func (m *EffectModel) FromDomain(e *substance.Effect) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.Name = e.Name
	m.Slug = e.Slug
	m.Category = e.Category
	m.Type = e.Type
	m.Tags = cloneStrings(e.Tags)
	m.Summary = e.Summary
	m.Description = e.Description
	m.Parameters = cloneStrings(e.Parameters)
	m.SeeAlso = cloneStrings(e.SeeAlso)
	m.EffectIndexURL = e.EffectIndexURL
	m.PsychonautWikiURL = e.PsychonautWikiURL
}

// SubstanceEffectModel links substances to effects.
type SubstanceEffectModel struct {
	SubstanceID uuid.UUID `gorm:"type:uuid;primaryKey"`
	EffectID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SubstanceEffectModel) TableName() string {
	return "substance_effects"
}

func massPtr(mg *decimal.Decimal) *substance.Mass {
	if mg == nil {
		return nil
	}
	m := substance.Milligrams(*mg)
	return &m
}

func milligramsPtr(m *substance.Mass) *decimal.Decimal {
	if m == nil {
		return nil
	}
	mg := m.Milligrams()
	return &mg
}
