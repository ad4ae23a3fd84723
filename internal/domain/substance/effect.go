package substance

import (
	"regexp"
	"strings"
	"time"

	"github.com/neuronek/backend/internal/domain/shared"
)

var slugSeparator = regexp.MustCompile(`[^a-z0-9]+`)

// Effect is a subjective effect that substances can produce
type Effect struct {
	shared.BaseEntity
	Name              string
	Slug              string
	Category          string
	Type              string
	Tags              []string
	Summary           string
	Description       string
	Parameters        []string
	SeeAlso           []string
	EffectIndexURL    string
	PsychonautWikiURL string
}

// EffectDetails holds the descriptive fields of an effect
type EffectDetails struct {
	Category          string
	Type              string
	Tags              []string
	Summary           string
	Description       string
	Parameters        []string
	SeeAlso           []string
	EffectIndexURL    string
	PsychonautWikiURL string
}

// NewEffect creates an effect; the slug is derived from the name when empty
func NewEffect(name, slug string, details EffectDetails) (*Effect, error) {
	e := &Effect{BaseEntity: shared.NewBaseEntity()}
	if err := e.Update(name, slug, details); err != nil {
		return nil, err
	}
	return e, nil
}

// Update replaces the effect's fields
func (e *Effect) Update(name, slug string, details EffectDetails) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return shared.NewDomainError("INVALID_EFFECT_NAME", "Effect name must be 1-200 characters")
	}
	if slug == "" {
		slug = name
	}
	slug = Slugify(slug)
	if slug == "" {
		return shared.NewDomainError("INVALID_EFFECT_SLUG", "Effect slug must contain letters or numbers")
	}

	e.Name = name
	e.Slug = slug
	e.Category = strings.TrimSpace(details.Category)
	e.Type = strings.TrimSpace(details.Type)
	e.Tags = cleanList(details.Tags)
	e.Summary = details.Summary
	e.Description = details.Description
	e.Parameters = cleanList(details.Parameters)
	e.SeeAlso = cleanList(details.SeeAlso)
	e.EffectIndexURL = strings.TrimSpace(details.EffectIndexURL)
	e.PsychonautWikiURL = strings.TrimSpace(details.PsychonautWikiURL)
	e.UpdatedAt = time.Now()
	return nil
}

// Slugify lowercases s and joins alphanumeric runs with hyphens
func Slugify(s string) string {
	return strings.Trim(slugSeparator.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
