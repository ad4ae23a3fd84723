package substance

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Substance is the catalogue aggregate root: a psychoactive compound and its routes
type Substance struct {
	shared.BaseAggregateRoot
	Name                string
	CommonNames         []string
	BrandNames          []string
	SystematicName      string
	Unii                string
	CasNumber           string
	InchiKey            string
	Iupac               string
	Smiles              string
	PsychoactiveClasses []string
	ChemicalClasses     []string
	Description         string
	Routes              []RouteOfAdministration
}

// Details holds the descriptive fields of a substance
type Details struct {
	CommonNames         []string
	BrandNames          []string
	SystematicName      string
	Unii                string
	CasNumber           string
	InchiKey            string
	Iupac               string
	Smiles              string
	PsychoactiveClasses []string
	ChemicalClasses     []string
	Description         string
}

// NewSubstance creates a substance with a normalized name
func NewSubstance(name string, details Details) (*Substance, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	s := &Substance{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Routes:            make([]RouteOfAdministration, 0),
	}
	s.applyDetails(details)

	s.AddDomainEvent(NewSubstanceCreatedEvent(s))

	return s, nil
}

// Update renames the substance and replaces its details
func (s *Substance) Update(name string, details Details) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}

	s.Name = name
	s.applyDetails(details)
	s.touch()

	s.AddDomainEvent(NewSubstanceUpdatedEvent(s))

	return nil
}

func (s *Substance) applyDetails(d Details) {
	s.CommonNames = cleanList(d.CommonNames)
	s.BrandNames = cleanList(d.BrandNames)
	s.SystematicName = strings.TrimSpace(d.SystematicName)
	s.Unii = strings.TrimSpace(d.Unii)
	s.CasNumber = strings.TrimSpace(d.CasNumber)
	s.InchiKey = strings.TrimSpace(d.InchiKey)
	s.Iupac = strings.TrimSpace(d.Iupac)
	s.Smiles = strings.TrimSpace(d.Smiles)
	s.PsychoactiveClasses = cleanList(d.PsychoactiveClasses)
	s.ChemicalClasses = cleanList(d.ChemicalClasses)
	s.Description = d.Description
}

// DisplayName returns the name in title case
func (s *Substance) DisplayName() string {
	return cases.Title(language.English).String(s.Name)
}

// AddRoute attaches a route of administration; each classification appears once
func (s *Substance) AddRoute(route RouteOfAdministration) (*RouteOfAdministration, error) {
	if _, err := s.Route(route.Classification); err == nil {
		return nil, ErrRouteExists
	}
	if err := route.Validate(); err != nil {
		return nil, err
	}
	if route.ID == uuid.Nil {
		route.ID = uuid.New()
	}
	route.SubstanceID = s.ID

	s.Routes = append(s.Routes, route)
	s.touch()

	return &s.Routes[len(s.Routes)-1], nil
}

// ReplaceRoutes swaps the full route list, validating each
func (s *Substance) ReplaceRoutes(routes []RouteOfAdministration) error {
	seen := make(map[Route]bool, len(routes))
	for i := range routes {
		if seen[routes[i].Classification] {
			return ErrRouteExists
		}
		seen[routes[i].Classification] = true
		if err := routes[i].Validate(); err != nil {
			return err
		}
		if routes[i].ID == uuid.Nil {
			routes[i].ID = uuid.New()
		}
		routes[i].SubstanceID = s.ID
	}
	s.Routes = routes
	s.touch()
	return nil
}

// Route returns the route of administration with the given classification
func (s *Substance) Route(classification Route) (*RouteOfAdministration, error) {
	for i := range s.Routes {
		if s.Routes[i].Classification == classification {
			return &s.Routes[i], nil
		}
	}
	return nil, ErrRouteNotFound
}

// MarkDeleted records the deletion of the substance
func (s *Substance) MarkDeleted() {
	s.AddDomainEvent(NewSubstanceDeletedEvent(s))
}

func (s *Substance) touch() {
	s.Touch(time.Now())
}

// RouteOfAdministration holds the dosage bands and phase durations of one route
type RouteOfAdministration struct {
	ID              uuid.UUID
	SubstanceID     uuid.UUID
	SubstanceName   string // populated by route listings
	Classification  Route
	Bioavailability *decimal.Decimal // percent
	Dosages         []DosageRange
	Phases          []Phase
}

// Validate checks the route, bioavailability, dosages and phases
func (r RouteOfAdministration) Validate() error {
	if !r.Classification.IsValid() {
		return ErrInvalidRoute
	}
	if r.Bioavailability != nil && (r.Bioavailability.IsNegative() || r.Bioavailability.GreaterThan(decimal.NewFromInt(100))) {
		return shared.NewDomainError("INVALID_BIOAVAILABILITY", "Bioavailability must be between 0 and 100 percent")
	}
	for _, d := range r.Dosages {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	seen := make(map[PhaseClassification]bool, len(r.Phases))
	for _, p := range r.Phases {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Classification] {
			return shared.NewDomainError("DUPLICATE_PHASE", "Each phase may appear once per route")
		}
		seen[p.Classification] = true
	}
	return nil
}

// Phase returns the phase with the given classification
func (r RouteOfAdministration) Phase(c PhaseClassification) (Phase, bool) {
	for _, p := range r.Phases {
		if p.Classification == c {
			return p, true
		}
	}
	return Phase{}, false
}

// ClassifyDosage classifies a mass against this route's dosage bands
func (r RouteOfAdministration) ClassifyDosage(m Mass, weightKg *decimal.Decimal) (DosageClassification, bool) {
	return ClassifyDosage(m, r.Dosages, weightKg)
}

func normalizeName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", shared.NewDomainError("INVALID_SUBSTANCE_NAME", "Substance name cannot be empty")
	}
	if len(name) > 200 {
		return "", shared.NewDomainError("INVALID_SUBSTANCE_NAME", "Substance name cannot exceed 200 characters")
	}
	return name, nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}
