package substance

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
)

// SubstanceFilter contains filter options for listing substances
type SubstanceFilter struct {
	Keyword           string // matches name and common names
	PsychoactiveClass string
	Page              int
	PageSize          int
	SortBy            string
	SortOrder         string
}

// Offset returns the offset for pagination
func (f SubstanceFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the limit for pagination
func (f SubstanceFilter) Limit() int {
	if f.PageSize <= 0 {
		return 20
	}
	if f.PageSize > 100 {
		return 100
	}
	return f.PageSize
}

// RouteFilter selects routes of administration across substances
type RouteFilter struct {
	SubstanceID   *uuid.UUID
	SubstanceName string
	IncludeDosage bool
	IncludePhase  bool
	Limit         int
	Offset        int
	SortField     string
	SortOrder     string
}

// ErrInvalidSort is returned for malformed sort expressions
var ErrInvalidSort = shared.NewDomainError("INVALID_SORT", "Sort must be in the form field:asc or field:desc")

// ParseSort splits "field:dir" into its parts, defaulting the direction to asc
func ParseSort(expr string) (field, order string, err error) {
	if expr == "" {
		return "", "", nil
	}
	field, order, found := strings.Cut(expr, ":")
	field = strings.TrimSpace(field)
	order = strings.ToLower(strings.TrimSpace(order))
	if !found {
		order = "asc"
	}
	if field == "" || (order != "asc" && order != "desc") {
		return "", "", ErrInvalidSort
	}
	return field, order, nil
}

// ParseIncludes reads a comma separated include list such as "dosage,phase"
func ParseIncludes(expr string) (dosage, phase bool) {
	for _, part := range strings.Split(expr, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "dosage", "dosages":
			dosage = true
		case "phase", "phases":
			phase = true
		}
	}
	return dosage, phase
}

// SubstanceRepository defines persistence for the substance catalogue
type SubstanceRepository interface {
	// FindByID loads a substance with its routes, dosages and phases
	FindByID(ctx context.Context, id uuid.UUID) (*Substance, error)

	// FindByName loads a substance by case-insensitive name
	FindByName(ctx context.Context, name string) (*Substance, error)

	// FindAll lists substances without their routes
	FindAll(ctx context.Context, filter SubstanceFilter) ([]*Substance, int64, error)

	// Create persists a substance with its routes
	Create(ctx context.Context, s *Substance) error

	// Update persists a substance and replaces its routes
	Update(ctx context.Context, s *Substance) error

	// Delete removes a substance and everything attached to it
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsByName checks for a case-insensitive name match
	ExistsByName(ctx context.Context, name string) (bool, error)

	// ListRoutes lists routes across substances
	ListRoutes(ctx context.Context, filter RouteFilter) ([]*RouteOfAdministration, int64, error)

	// FindRoute loads one route of a substance with dosages and phases
	FindRoute(ctx context.Context, substanceID uuid.UUID, route Route) (*RouteOfAdministration, error)
}

// EffectFilter contains filter options for listing effects
type EffectFilter struct {
	Keyword  string
	Category string
	Page     int
	PageSize int
}

// EffectRepository defines persistence for effects and their substance links
type EffectRepository interface {
	Create(ctx context.Context, e *Effect) error
	Update(ctx context.Context, e *Effect) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Effect, error)
	FindBySlug(ctx context.Context, slug string) (*Effect, error)
	FindAll(ctx context.Context, filter EffectFilter) ([]*Effect, int64, error)
	ListForSubstance(ctx context.Context, substanceID uuid.UUID) ([]*Effect, error)
	Link(ctx context.Context, substanceID, effectID uuid.UUID) error
	Unlink(ctx context.Context, substanceID, effectID uuid.UUID) error
}
