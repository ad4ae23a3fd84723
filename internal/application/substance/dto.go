package substance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/neuronek/backend/internal/infrastructure/sanitize"
	"github.com/shopspring/decimal"
)

// SubstanceInput creates or replaces a catalogue entry
type SubstanceInput struct {
	Name                string       `json:"name" binding:"required,max=200"`
	CommonNames         []string     `json:"common_names"`
	BrandNames          []string     `json:"brand_names"`
	SystematicName      string       `json:"systematic_name"`
	Unii                string       `json:"unii"`
	CasNumber           string       `json:"cas_number"`
	InchiKey            string       `json:"inchi_key"`
	Iupac               string       `json:"iupac"`
	Smiles              string       `json:"smiles"`
	PsychoactiveClasses []string     `json:"psychoactive_classes"`
	ChemicalClasses     []string     `json:"chemical_classes"`
	Description         string       `json:"description"`
	Routes              []RouteInput `json:"routes" binding:"dive"`
}

// RouteInput describes one route of administration
type RouteInput struct {
	Route           string           `json:"route" binding:"required"`
	Bioavailability *decimal.Decimal `json:"bioavailability,omitempty"`
	Dosages         []DosageInput    `json:"dosages" binding:"dive"`
	Phases          []PhaseInput     `json:"phases" binding:"dive"`
}

// DosageInput is a dosage band with masses such as "10 mg"
type DosageInput struct {
	Classification string `json:"classification" binding:"required"`
	Min            string `json:"min,omitempty"`
	Max            string `json:"max,omitempty"`
	PerKilogram    bool   `json:"per_kilogram"`
}

// PhaseInput is a phase duration with Go duration strings such as "30m"
type PhaseInput struct {
	Classification string `json:"classification" binding:"required"`
	Min            string `json:"min" binding:"required"`
	Max            string `json:"max" binding:"required"`
}

func (in SubstanceInput) details() substance.Details {
	return substance.Details{
		CommonNames:         sanitize.Strings(in.CommonNames),
		BrandNames:          sanitize.Strings(in.BrandNames),
		SystematicName:      in.SystematicName,
		Unii:                in.Unii,
		CasNumber:           in.CasNumber,
		InchiKey:            in.InchiKey,
		Iupac:               in.Iupac,
		Smiles:              in.Smiles,
		PsychoactiveClasses: sanitize.Strings(in.PsychoactiveClasses),
		ChemicalClasses:     sanitize.Strings(in.ChemicalClasses),
		Description:         sanitize.Text(in.Description),
	}
}

func (in SubstanceInput) routes() ([]substance.RouteOfAdministration, error) {
	routes := make([]substance.RouteOfAdministration, 0, len(in.Routes))
	for _, r := range in.Routes {
		route, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, nil
}

func (in RouteInput) toDomain() (substance.RouteOfAdministration, error) {
	classification, err := substance.ParseRoute(in.Route)
	if err != nil {
		return substance.RouteOfAdministration{}, err
	}
	route := substance.RouteOfAdministration{
		Classification:  classification,
		Bioavailability: in.Bioavailability,
		Dosages:         make([]substance.DosageRange, 0, len(in.Dosages)),
		Phases:          make([]substance.Phase, 0, len(in.Phases)),
	}

	for _, d := range in.Dosages {
		c, err := substance.ParseDosageClassification(d.Classification)
		if err != nil {
			return route, err
		}
		band := substance.DosageRange{Classification: c, PerKilogram: d.PerKilogram}
		if band.Min, err = optionalMass(d.Min); err != nil {
			return route, err
		}
		if band.Max, err = optionalMass(d.Max); err != nil {
			return route, err
		}
		route.Dosages = append(route.Dosages, band)
	}

	for _, p := range in.Phases {
		c, err := substance.ParsePhaseClassification(p.Classification)
		if err != nil {
			return route, err
		}
		lo, err := time.ParseDuration(p.Min)
		if err != nil {
			return route, fmt.Errorf("%w: min %q", substance.ErrInvalidPhase, p.Min)
		}
		hi, err := time.ParseDuration(p.Max)
		if err != nil {
			return route, fmt.Errorf("%w: max %q", substance.ErrInvalidPhase, p.Max)
		}
		route.Phases = append(route.Phases, substance.Phase{
			Classification: c,
			Duration:       substance.DurationRange{Min: lo, Max: hi},
		})
	}
	return route, route.Validate()
}

func optionalMass(s string) (*substance.Mass, error) {
	if s == "" {
		return nil, nil
	}
	m, err := substance.ParseMass(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SubstanceDTO is the response shape of a catalogue entry
type SubstanceDTO struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	DisplayName         string     `json:"display_name"`
	CommonNames         []string   `json:"common_names"`
	BrandNames          []string   `json:"brand_names"`
	SystematicName      string     `json:"systematic_name,omitempty"`
	Unii                string     `json:"unii,omitempty"`
	CasNumber           string     `json:"cas_number,omitempty"`
	InchiKey            string     `json:"inchi_key,omitempty"`
	Iupac               string     `json:"iupac,omitempty"`
	Smiles              string     `json:"smiles,omitempty"`
	PsychoactiveClasses []string   `json:"psychoactive_classes"`
	ChemicalClasses     []string   `json:"chemical_classes"`
	Description         string     `json:"description,omitempty"`
	Routes              []RouteDTO `json:"routes,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// RouteDTO is the response shape of a route of administration
type RouteDTO struct {
	ID              uuid.UUID        `json:"id"`
	SubstanceID     uuid.UUID        `json:"substance_id"`
	SubstanceName   string           `json:"substance_name,omitempty"`
	Route           string           `json:"route"`
	Bioavailability *decimal.Decimal `json:"bioavailability,omitempty"`
	Dosages         []DosageDTO      `json:"dosages,omitempty"`
	Phases          []PhaseDTO       `json:"phases,omitempty"`
}

// DosageDTO is a dosage band with human readable masses
type DosageDTO struct {
	Classification string  `json:"classification"`
	Min            *string `json:"min,omitempty"`
	Max            *string `json:"max,omitempty"`
	PerKilogram    bool    `json:"per_kilogram"`
}

// PhaseDTO is a phase duration
type PhaseDTO struct {
	Classification string `json:"classification"`
	Min            string `json:"min"`
	Max            string `json:"max"`
	MinSeconds     int64  `json:"min_seconds"`
	MaxSeconds     int64  `json:"max_seconds"`
}

// SubstanceListResult is a page of substances
type SubstanceListResult struct {
	Substances []SubstanceDTO `json:"substances"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// RouteListResult is a page of routes
type RouteListResult struct {
	Routes []RouteDTO `json:"routes"`
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// ToSubstanceDTO converts a substance to its response shape
func ToSubstanceDTO(s *substance.Substance) SubstanceDTO {
	dto := SubstanceDTO{
		ID:                  s.ID,
		Name:                s.Name,
		DisplayName:         s.DisplayName(),
		CommonNames:         nonNil(s.CommonNames),
		BrandNames:          nonNil(s.BrandNames),
		SystematicName:      s.SystematicName,
		Unii:                s.Unii,
		CasNumber:           s.CasNumber,
		InchiKey:            s.InchiKey,
		Iupac:               s.Iupac,
		Smiles:              s.Smiles,
		PsychoactiveClasses: nonNil(s.PsychoactiveClasses),
		ChemicalClasses:     nonNil(s.ChemicalClasses),
		Description:         s.Description,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
	for i := range s.Routes {
		dto.Routes = append(dto.Routes, ToRouteDTO(&s.Routes[i]))
	}
	return dto
}

// ToRouteDTO converts a route of administration to its response shape
func ToRouteDTO(r *substance.RouteOfAdministration) RouteDTO {
	dto := RouteDTO{
		ID:              r.ID,
		SubstanceID:     r.SubstanceID,
		SubstanceName:   r.SubstanceName,
		Route:           string(r.Classification),
		Bioavailability: r.Bioavailability,
	}
	for _, d := range r.Dosages {
		band := DosageDTO{Classification: string(d.Classification), PerKilogram: d.PerKilogram}
		if d.Min != nil {
			s := d.Min.String()
			band.Min = &s
		}
		if d.Max != nil {
			s := d.Max.String()
			band.Max = &s
		}
		dto.Dosages = append(dto.Dosages, band)
	}
	for _, p := range r.Phases {
		dto.Phases = append(dto.Phases, PhaseDTO{
			Classification: string(p.Classification),
			Min:            p.Duration.Min.String(),
			Max:            p.Duration.Max.String(),
			MinSeconds:     int64(p.Duration.Min / time.Second),
			MaxSeconds:     int64(p.Duration.Max / time.Second),
		})
	}
	return dto
}

// EffectInput creates or replaces an effect
type EffectInput struct {
	Name              string   `json:"name" binding:"required,max=200"`
	Slug              string   `json:"slug"`
	Category          string   `json:"category"`
	Type              string   `json:"type"`
	Tags              []string `json:"tags"`
	Summary           string   `json:"summary"`
	Description       string   `json:"description"`
	Parameters        []string `json:"parameters"`
	SeeAlso           []string `json:"see_also"`
	EffectIndexURL    string   `json:"effectindex_url" binding:"omitempty,url"`
	PsychonautWikiURL string   `json:"psychonautwiki_url" binding:"omitempty,url"`
}

func (in EffectInput) details() substance.EffectDetails {
	return substance.EffectDetails{
		Category:          sanitize.Text(in.Category),
		Type:              sanitize.Text(in.Type),
		Tags:              sanitize.Strings(in.Tags),
		Summary:           sanitize.Text(in.Summary),
		Description:       sanitize.Text(in.Description),
		Parameters:        sanitize.Strings(in.Parameters),
		SeeAlso:           sanitize.Strings(in.SeeAlso),
		EffectIndexURL:    in.EffectIndexURL,
		PsychonautWikiURL: in.PsychonautWikiURL,
	}
}

// EffectDTO is the response shape of an effect
type EffectDTO struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Slug              string    `json:"slug"`
	Category          string    `json:"category,omitempty"`
	Type              string    `json:"type,omitempty"`
	Tags              []string  `json:"tags"`
	Summary           string    `json:"summary,omitempty"`
	Description       string    `json:"description,omitempty"`
	Parameters        []string  `json:"parameters"`
	SeeAlso           []string  `json:"see_also"`
	EffectIndexURL    string    `json:"effectindex_url,omitempty"`
	PsychonautWikiURL string    `json:"psychonautwiki_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// EffectListResult is a page of effects
type EffectListResult struct {
	Effects    []EffectDTO `json:"effects"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// ToEffectDTO converts an effect to its response shape
func ToEffectDTO(e *substance.Effect) EffectDTO {
	return EffectDTO{
		ID:                e.ID,
		Name:              e.Name,
		Slug:              e.Slug,
		Category:          e.Category,
		Type:              e.Type,
		Tags:              nonNil(e.Tags),
		Summary:           e.Summary,
		Description:       e.Description,
		Parameters:        nonNil(e.Parameters),
		SeeAlso:           nonNil(e.SeeAlso),
		EffectIndexURL:    e.EffectIndexURL,
		PsychonautWikiURL: e.PsychonautWikiURL,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

// ClassifyInput asks which dosage band a mass falls into
type ClassifyInput struct {
	Substance string    `json:"-"`
	Route     string    `json:"route"`
	Dosage    string    `json:"dosage" binding:"required"`
	AccountID uuid.UUID `json:"-"`
}

// ClassificationResult is the outcome of ClassifyDosage
type ClassificationResult struct {
	SubstanceID    uuid.UUID        `json:"substance_id"`
	Substance      string           `json:"substance"`
	Route          string           `json:"route"`
	Dosage         string           `json:"dosage"`
	Classification string           `json:"classification,omitempty"`
	Classified     bool             `json:"classified"`
	WeightKg       *decimal.Decimal `json:"weight_kg,omitempty"`
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
