package substance

import (
	"fmt"
	"strings"
	"time"

	"github.com/neuronek/backend/internal/domain/shared"
)

// PhaseClassification names a time segment of an ingestion's effects
type PhaseClassification string

const (
	PhaseOnset     PhaseClassification = "onset"
	PhaseComeup    PhaseClassification = "comeup"
	PhasePeak      PhaseClassification = "peak"
	PhaseComedown  PhaseClassification = "comedown"
	PhaseAfterglow PhaseClassification = "afterglow"
	PhaseUnknown   PhaseClassification = "unknown"
)

// PhaseOrder is the sequence in which phases follow each other
var PhaseOrder = []PhaseClassification{PhaseOnset, PhaseComeup, PhasePeak, PhaseComedown, PhaseAfterglow}

// ErrInvalidPhase is returned for unknown phase names
var ErrInvalidPhase = shared.NewDomainError("INVALID_PHASE", "Unknown phase classification")

// ParsePhaseClassification parses a phase name; "offset" is accepted for comedown
func ParsePhaseClassification(s string) (PhaseClassification, error) {
	switch c := PhaseClassification(strings.ToLower(strings.TrimSpace(s))); c {
	case PhaseOnset, PhaseComeup, PhasePeak, PhaseComedown, PhaseAfterglow, PhaseUnknown:
		return c, nil
	case "offset":
		return PhaseComedown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPhase, s)
}

// DurationRange is the expected duration of a phase
type DurationRange struct {
	Min time.Duration
	Max time.Duration
}

// Phase is the duration of one phase on a route of administration
type Phase struct {
	Classification PhaseClassification
	Duration       DurationRange
}

// Validate checks the classification and duration bounds
func (p Phase) Validate() error {
	if p.Classification == PhaseUnknown {
		return fmt.Errorf("%w: unknown cannot be stored", ErrInvalidPhase)
	}
	if _, err := ParsePhaseClassification(string(p.Classification)); err != nil {
		return err
	}
	if p.Duration.Min < 0 || p.Duration.Max < p.Duration.Min {
		return shared.NewDomainError("INVALID_PHASE_DURATION", "Phase duration must satisfy 0 <= min <= max")
	}
	return nil
}
