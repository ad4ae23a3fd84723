package substance

import "github.com/neuronek/backend/internal/domain/shared"

// Catalogue errors
var (
	ErrSubstanceNotFound = shared.NewDomainError("SUBSTANCE_NOT_FOUND", "Substance not found")
	ErrRouteNotFound     = shared.NewDomainError("ROUTE_OF_ADMINISTRATION_NOT_FOUND", "Route of administration not found for substance")
	ErrSubstanceExists   = shared.NewDomainError("SUBSTANCE_ALREADY_EXISTS", "A substance with this name already exists")
	ErrRouteExists       = shared.NewDomainError("ROUTE_ALREADY_EXISTS", "Substance already has this route of administration")
	ErrEffectNotFound    = shared.NewDomainError("EFFECT_NOT_FOUND", "Effect not found")
	ErrEffectExists      = shared.NewDomainError("EFFECT_ALREADY_EXISTS", "An effect with this slug already exists")
)
