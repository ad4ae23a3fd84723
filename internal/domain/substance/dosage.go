package substance

import (
	"fmt"
	"strings"

	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DosageClassification names the intensity band of a dose
type DosageClassification string

const (
	DosageThreshold DosageClassification = "threshold"
	DosageLight     DosageClassification = "light"
	DosageMedium    DosageClassification = "medium"
	DosageStrong    DosageClassification = "strong"
	DosageHeavy     DosageClassification = "heavy"
)

// DosageOrder lists classifications from weakest to strongest
var DosageOrder = []DosageClassification{DosageThreshold, DosageLight, DosageMedium, DosageStrong, DosageHeavy}

// ErrInvalidDosageClassification is returned for unknown classification names
var ErrInvalidDosageClassification = shared.NewDomainError("INVALID_DOSAGE_CLASSIFICATION", "Unknown dosage classification")

// ParseDosageClassification parses a classification; "common" is accepted for medium
func ParseDosageClassification(s string) (DosageClassification, error) {
	c := DosageClassification(strings.ToLower(strings.TrimSpace(s)))
	if c == "common" {
		return DosageMedium, nil
	}
	if c.rank() < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidDosageClassification, s)
	}
	return c, nil
}

func (c DosageClassification) rank() int {
	for i, known := range DosageOrder {
		if c == known {
			return i
		}
	}
	return -1
}

// DosageRange is the band of masses that produce a classification.
// A nil bound is open; PerKilogram bounds are multiplied by body weight.
type DosageRange struct {
	Classification DosageClassification
	Min            *Mass
	Max            *Mass
	PerKilogram    bool
}

// Contains reports whether m lies within the range, bounds inclusive
func (r DosageRange) Contains(m Mass) bool {
	if r.Min != nil && m.Cmp(*r.Min) < 0 {
		return false
	}
	if r.Max != nil && m.Cmp(*r.Max) > 0 {
		return false
	}
	return true
}

// ForWeight scales per-kilogram bounds to absolute masses
func (r DosageRange) ForWeight(weightKg decimal.Decimal) DosageRange {
	if !r.PerKilogram {
		return r
	}
	scaled := DosageRange{Classification: r.Classification}
	if r.Min != nil {
		lo := r.Min.Mul(weightKg)
		scaled.Min = &lo
	}
	if r.Max != nil {
		hi := r.Max.Mul(weightKg)
		scaled.Max = &hi
	}
	return scaled
}

// Validate checks the classification and bound order
func (r DosageRange) Validate() error {
	if r.Classification.rank() < 0 {
		return ErrInvalidDosageClassification
	}
	if r.Min != nil && r.Max != nil && r.Min.Cmp(*r.Max) > 0 {
		return shared.NewDomainError("INVALID_DOSAGE_RANGE", "Dosage range minimum exceeds maximum")
	}
	return nil
}

// ClassifyDosage finds the classification of m among ranges.
// Per-kilogram ranges are skipped when weightKg is nil.
// When no range contains m, a mass above any lower bound is heavy and
// a mass below any upper bound is threshold.
func ClassifyDosage(m Mass, ranges []DosageRange, weightKg *decimal.Decimal) (DosageClassification, bool) {
	effective := make([]DosageRange, 0, len(ranges))
	for _, r := range ranges {
		if r.PerKilogram {
			if weightKg == nil {
				continue
			}
			r = r.ForWeight(*weightKg)
		}
		effective = append(effective, r)
	}

	for _, c := range DosageOrder {
		for _, r := range effective {
			if r.Classification == c && r.Contains(m) {
				return c, true
			}
		}
	}

	for _, r := range effective {
		if r.Min != nil && m.Cmp(*r.Min) >= 0 {
			return DosageHeavy, true
		}
	}
	for _, r := range effective {
		if r.Max != nil && m.Cmp(*r.Max) <= 0 {
			return DosageThreshold, true
		}
	}
	return "", false
}
