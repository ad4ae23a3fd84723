// Package seeder installs the system roles and the bundled substance
// knowledge base into an empty database. Every step skips records that
// already exist, so running it repeatedly is safe.
package seeder

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	substanceapp "github.com/neuronek/backend/internal/application/substance"
	"github.com/neuronek/backend/internal/domain/identity"
	"github.com/neuronek/backend/internal/domain/substance"
	"go.uber.org/zap"
)

//go:embed data/catalogue.json
var catalogueJSON []byte

// RoleDefinition is a role installed by the seeder
type RoleDefinition struct {
	Code        string
	Name        string
	Description string
	System      bool
	Permissions []string
}

// DefaultRoles are the roles every deployment starts with
var DefaultRoles = []RoleDefinition{
	{
		Code:        identity.RoleCodeAdministrator,
		Name:        "Administrator",
		Description: "Full access to accounts, roles, the catalogue and system operations",
		System:      true,
		Permissions: []string{"account:*", "role:*", "substance:*", "journal:*", "system:*"},
	},
	{
		Code:        identity.RoleCodeUser,
		Name:        "User",
		Description: "Reads the catalogue and keeps a personal journal",
		System:      true,
		Permissions: []string{"substance:read", "journal:read", "journal:write", "journal:export"},
	},
	{
		Code:        identity.RoleCodeModerator,
		Name:        "Moderator",
		Description: "Maintains substances, routes and effects",
		Permissions: []string{"substance:read", "substance:write", "journal:read", "journal:write", "journal:export"},
	},
}

// Catalogue is the write side of the substance catalogue
type Catalogue interface {
	Create(ctx context.Context, input substanceapp.SubstanceInput) (*substanceapp.SubstanceDTO, error)
	CreateEffect(ctx context.Context, input substanceapp.EffectInput) (*substanceapp.EffectDTO, error)
	LinkEffect(ctx context.Context, substanceRef, effectRef string) error
}

// CatalogueEntry is a substance with the slugs of the effects it produces
type CatalogueEntry struct {
	substanceapp.SubstanceInput
	Effects []string `json:"effects"`
}

// KnowledgeBase is the bundled catalogue document
type KnowledgeBase struct {
	Effects    []substanceapp.EffectInput `json:"effects"`
	Substances []CatalogueEntry           `json:"substances"`
}

// LoadKnowledgeBase decodes the embedded catalogue
func LoadKnowledgeBase() (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if err := json.Unmarshal(catalogueJSON, &kb); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	return &kb, nil
}

// Result counts what a run created and skipped
type Result struct {
	RolesCreated      int `json:"roles_created"`
	RolesSkipped      int `json:"roles_skipped"`
	EffectsCreated    int `json:"effects_created"`
	EffectsSkipped    int `json:"effects_skipped"`
	SubstancesCreated int `json:"substances_created"`
	SubstancesSkipped int `json:"substances_skipped"`
	Links             int `json:"links"`
}

// Seeder installs roles and catalogue data
type Seeder struct {
	roles     identity.RoleRepository
	catalogue Catalogue
	logger    *zap.Logger
}

// New creates a seeder
func New(roles identity.RoleRepository, catalogue Catalogue, logger *zap.Logger) *Seeder {
	return &Seeder{
		roles:     roles,
		catalogue: catalogue,
		logger:    logger,
	}
}

// Run seeds roles first, then the knowledge base
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	result := &Result{}
	if err := s.SeedRoles(ctx, DefaultRoles, result); err != nil {
		return result, err
	}
	kb, err := LoadKnowledgeBase()
	if err != nil {
		return result, err
	}
	if err := s.SeedCatalogue(ctx, kb, result); err != nil {
		return result, err
	}

	s.logger.Info("Seed completed",
		zap.Int("roles_created", result.RolesCreated),
		zap.Int("effects_created", result.EffectsCreated),
		zap.Int("substances_created", result.SubstancesCreated),
		zap.Int("links", result.Links))
	return result, nil
}

// SeedRoles creates the given roles unless their code is taken
func (s *Seeder) SeedRoles(ctx context.Context, defs []RoleDefinition, result *Result) error {
	for _, def := range defs {
		exists, err := s.roles.ExistsByCode(ctx, def.Code)
		if err != nil {
			return fmt.Errorf("check role %s: %w", def.Code, err)
		}
		if exists {
			result.RolesSkipped++
			continue
		}

		newRole := identity.NewRole
		if def.System {
			newRole = identity.NewSystemRole
		}
		role, err := newRole(def.Code, def.Name)
		if err != nil {
			return err
		}
		role.Description = def.Description
		if err := role.SetPermissions(def.Permissions); err != nil {
			return fmt.Errorf("role %s: %w", def.Code, err)
		}
		if err := s.roles.Create(ctx, role); err != nil {
			return fmt.Errorf("create role %s: %w", def.Code, err)
		}
		result.RolesCreated++
		s.logger.Info("Role seeded", zap.String("code", role.Code), zap.Strings("permissions", role.PermissionCodes()))
	}
	return nil
}

// SeedCatalogue creates missing effects and substances and links them
func (s *Seeder) SeedCatalogue(ctx context.Context, kb *KnowledgeBase, result *Result) error {
	for _, effect := range kb.Effects {
		_, err := s.catalogue.CreateEffect(ctx, effect)
		switch {
		case errors.Is(err, substance.ErrEffectExists):
			result.EffectsSkipped++
		case err != nil:
			return fmt.Errorf("effect %s: %w", effect.Name, err)
		default:
			result.EffectsCreated++
		}
	}

	for _, entry := range kb.Substances {
		_, err := s.catalogue.Create(ctx, entry.SubstanceInput)
		switch {
		case errors.Is(err, substance.ErrSubstanceExists):
			result.SubstancesSkipped++
		case err != nil:
			return fmt.Errorf("substance %s: %w", entry.Name, err)
		default:
			result.SubstancesCreated++
		}

		for _, slug := range entry.Effects {
			if err := s.catalogue.LinkEffect(ctx, entry.Name, slug); err != nil {
				return fmt.Errorf("link %s to %s: %w", entry.Name, slug, err)
			}
			result.Links++
		}
	}
	return nil
}
