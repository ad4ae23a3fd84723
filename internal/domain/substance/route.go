package substance

import (
	"fmt"
	"strings"

	"github.com/neuronek/backend/internal/domain/shared"
)

// Route classifies how a substance is administered
type Route string

const (
	RouteBuccal        Route = "buccal"
	RouteInhaled       Route = "inhaled"
	RouteInsufflated   Route = "insufflated"
	RouteIntramuscular Route = "intramuscular"
	RouteIntravenous   Route = "intravenous"
	RouteOral          Route = "oral"
	RouteRectal        Route = "rectal"
	RouteSmoked        Route = "smoked"
	RouteSublingual    Route = "sublingual"
	RouteTransdermal   Route = "transdermal"
)

// DefaultRoute is used when an ingestion does not name a route
const DefaultRoute = RouteOral

// ErrInvalidRoute is returned for unknown route names
var ErrInvalidRoute = shared.NewDomainError("INVALID_ROUTE", "Unknown route of administration")

var allRoutes = []Route{
	RouteBuccal, RouteInhaled, RouteInsufflated, RouteIntramuscular, RouteIntravenous,
	RouteOral, RouteRectal, RouteSmoked, RouteSublingual, RouteTransdermal,
}

// AllRoutes lists every route classification
func AllRoutes() []Route {
	return append([]Route(nil), allRoutes...)
}

// ParseRoute parses a route name case-insensitively
func ParseRoute(s string) (Route, error) {
	r := Route(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allRoutes {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRoute, s)
}

// ParseRouteOrDefault parses a route and falls back to oral when s is empty
func ParseRouteOrDefault(s string) (Route, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultRoute, nil
	}
	return ParseRoute(s)
}

// IsValid reports whether r is a known route
func (r Route) IsValid() bool {
	_, err := ParseRoute(string(r))
	return err == nil
}
