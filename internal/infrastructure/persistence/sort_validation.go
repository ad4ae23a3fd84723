package persistence

import (
	"strings"
)

// SortSpec whitelists the sort keys a list query accepts. Keys come from
// clients and are never interpolated; only the mapped column reaches SQL.
type SortSpec struct {
	Columns      map[string]string
	DefaultKey   string
	DefaultOrder string
}

// OrderBy resolves a client sort key and direction into an ORDER BY clause.
// Unknown keys fall back to DefaultKey and unknown directions to DefaultOrder.
func (s SortSpec) OrderBy(key, order string) string {
	column, ok := s.Columns[strings.TrimSpace(key)]
	if !ok {
		column = s.Columns[s.DefaultKey]
	}
	return column + " " + s.direction(order)
}

func (s SortSpec) direction(order string) string {
	switch strings.ToUpper(strings.TrimSpace(order)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	if s.DefaultOrder == "ASC" {
		return "ASC"
	}
	return "DESC"
}

var accountSort = SortSpec{
	Columns: map[string]string{
		"id":            "accounts.id",
		"created_at":    "accounts.created_at",
		"updated_at":    "accounts.updated_at",
		"username":      "accounts.username",
		"email":         "accounts.email",
		"status":        "accounts.status",
		"last_login_at": "accounts.last_login_at",
	},
	DefaultKey:   "created_at",
	DefaultOrder: "DESC",
}

var substanceSort = SortSpec{
	Columns: map[string]string{
		"id":         "id",
		"created_at": "created_at",
		"updated_at": "updated_at",
		"name":       "name",
	},
	DefaultKey:   "name",
	DefaultOrder: "ASC",
}

var routeSort = SortSpec{
	Columns: map[string]string{
		"name":            "substances.name",
		"classification":  "routes_of_administration.classification",
		"bioavailability": "routes_of_administration.bioavailability",
	},
	DefaultKey:   "name",
	DefaultOrder: "ASC",
}

var ingestionSort = SortSpec{
	Columns: map[string]string{
		"id":             "id",
		"created_at":     "created_at",
		"updated_at":     "updated_at",
		"ingested_at":    "ingested_at",
		"substance_name": "substance_name",
		"route":          "route",
		"dosage_mg":      "dosage_mg",
	},
	DefaultKey:   "ingested_at",
	DefaultOrder: "DESC",
}
