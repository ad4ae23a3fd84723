package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/substance"
	"github.com/shopspring/decimal"
)

// PhaseWindow is the expected time span of one phase
type PhaseWindow struct {
	Classification substance.PhaseClassification `json:"classification"`
	Start          time.Time                     `json:"start"`
	End            time.Time                     `json:"end"`
}

// Contains reports whether t lies in [Start, End)
func (w PhaseWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// IngestionAnalysis projects an ingestion onto its route's phase timeline
type IngestionAnalysis struct {
	IngestionID          uuid.UUID
	SubstanceName        string
	Route                substance.Route
	Dosage               substance.Mass
	DosageClassification *substance.DosageClassification
	Start                time.Time
	End                  time.Time // end of the last phase before afterglow
	Phases               []PhaseWindow
}

// Analyze lays out the route's phases in order starting at the ingestion time.
// Each phase lasts its minimum duration; phases the route lacks are skipped.
func Analyze(i *Ingestion, route *substance.RouteOfAdministration, weightKg *decimal.Decimal) (*IngestionAnalysis, error) {
	if route == nil {
		return nil, substance.ErrRouteNotFound
	}
	if len(route.Phases) == 0 {
		return nil, ErrNoPhaseData
	}

	a := &IngestionAnalysis{
		IngestionID:   i.ID,
		SubstanceName: i.SubstanceName,
		Route:         i.Route,
		Dosage:        i.Dosage,
		Start:         i.IngestedAt,
		End:           i.IngestedAt,
		Phases:        make([]PhaseWindow, 0, len(substance.PhaseOrder)),
	}

	cursor := i.IngestedAt
	for _, c := range substance.PhaseOrder {
		phase, ok := route.Phase(c)
		if !ok {
			continue
		}
		window := PhaseWindow{Classification: c, Start: cursor, End: cursor.Add(phase.Duration.Min)}
		a.Phases = append(a.Phases, window)
		cursor = window.End
		if c != substance.PhaseAfterglow {
			a.End = window.End
		}
	}

	if c, ok := route.ClassifyDosage(i.Dosage, weightKg); ok {
		a.DosageClassification = &c
	}

	return a, nil
}

// CurrentPhase returns the phase whose window contains now, or unknown
func (a *IngestionAnalysis) CurrentPhase(now time.Time) substance.PhaseClassification {
	for _, w := range a.Phases {
		if w.Contains(now) {
			return w.Classification
		}
	}
	return substance.PhaseUnknown
}

// Progress returns how far now is through [Start, End], clamped to 0..1
func (a *IngestionAnalysis) Progress(now time.Time) float64 {
	total := a.End.Sub(a.Start)
	if total <= 0 {
		if now.Before(a.Start) {
			return 0
		}
		return 1
	}
	p := float64(now.Sub(a.Start)) / float64(total)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// IsActive reports whether now falls between the start and the end of the main effects
func (a *IngestionAnalysis) IsActive(now time.Time) bool {
	return !now.Before(a.Start) && now.Before(a.End)
}
