// Package models holds the GORM persistence models. Domain types stay free of
// ORM tags; each model converts to and from its domain type with ToDomain and
// FromDomain.
//
// Masses are stored as decimal milligrams and phase durations as whole seconds.
// String lists use the StringList JSON column so the same models work on
// postgres (jsonb) and sqlite (text).
package models

// All returns every persisted model, in dependency order
func All() []any {
	return []any{
		&RoleModel{},
		&RolePermissionModel{},
		&AccountModel{},
		&AccountRoleModel{},
		&SubjectModel{},
		&SubstanceModel{},
		&RouteModel{},
		&DosageModel{},
		&PhaseModel{},
		&EffectModel{},
		&SubstanceEffectModel{},
		&IngestionModel{},
		&StashModel{},
		&OutboxEntryModel{},
	}
}
