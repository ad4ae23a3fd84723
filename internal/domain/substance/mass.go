package substance

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MassUnit is a unit accepted when parsing masses
type MassUnit string

const (
	UnitMicrogram MassUnit = "ug"
	UnitMilligram MassUnit = "mg"
	UnitGram      MassUnit = "g"
	UnitKilogram  MassUnit = "kg"
)

var (
	massPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?|\.\d+)\s*([a-zA-Zµμ]+)\s*$`)

	// milligrams per unit
	unitFactors = map[string]decimal.Decimal{
		"ug":  decimal.New(1, -3),
		"µg":  decimal.New(1, -3),
		"μg":  decimal.New(1, -3),
		"mcg": decimal.New(1, -3),
		"mg":  decimal.NewFromInt(1),
		"g":   decimal.NewFromInt(1_000),
		"kg":  decimal.NewFromInt(1_000_000),
	}

	displayUnits = []struct {
		unit   MassUnit
		factor decimal.Decimal
	}{
		{UnitKilogram, decimal.NewFromInt(1_000_000)},
		{UnitGram, decimal.NewFromInt(1_000)},
		{UnitMilligram, decimal.NewFromInt(1)},
	}
)

// ErrInvalidMass is returned for unparsable masses
var ErrInvalidMass = shared.NewDomainError("INVALID_MASS", "Mass must be a non-negative number followed by ug, mcg, mg, g or kg")

// Mass is a non-negative amount of substance stored in milligrams
type Mass struct {
	mg decimal.Decimal
}

// Milligrams creates a mass from a milligram amount
func Milligrams(mg decimal.Decimal) Mass {
	return Mass{mg: mg}
}

// MassOf converts an amount in the given unit to a Mass
func MassOf(amount decimal.Decimal, unit string) (Mass, error) {
	factor, ok := unitFactors[strings.ToLower(strings.TrimSpace(unit))]
	if !ok || amount.IsNegative() {
		return Mass{}, ErrInvalidMass
	}
	return Mass{mg: amount.Mul(factor)}, nil
}

// ParseMass parses strings like "100mg", "0.1 g" or "250ug"
func ParseMass(s string) (Mass, error) {
	m := massPattern.FindStringSubmatch(s)
	if m == nil {
		return Mass{}, fmt.Errorf("%w: %q", ErrInvalidMass, s)
	}
	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return Mass{}, fmt.Errorf("%w: %q", ErrInvalidMass, s)
	}
	mass, err := MassOf(amount, m[2])
	if err != nil {
		return Mass{}, fmt.Errorf("%w: %q", err, s)
	}
	return mass, nil
}

// Milligrams returns the amount in milligrams
func (m Mass) Milligrams() decimal.Decimal {
	return m.mg
}

// IsZero reports whether the mass is zero
func (m Mass) IsZero() bool {
	return m.mg.IsZero()
}

// Add returns m + o
func (m Mass) Add(o Mass) Mass {
	return Mass{mg: m.mg.Add(o.mg)}
}

// Sub returns m - o
func (m Mass) Sub(o Mass) Mass {
	return Mass{mg: m.mg.Sub(o.mg)}
}

// Mul scales the mass by a factor
func (m Mass) Mul(f decimal.Decimal) Mass {
	return Mass{mg: m.mg.Mul(f)}
}

// Cmp compares two masses
func (m Mass) Cmp(o Mass) int {
	return m.mg.Cmp(o.mg)
}

// Equal reports whether both masses are the same amount
func (m Mass) Equal(o Mass) bool {
	return m.mg.Equal(o.mg)
}

// String formats the mass in the largest unit that keeps the value at or above one
func (m Mass) String() string {
	abs := m.mg.Abs()
	for _, du := range displayUnits {
		if abs.GreaterThanOrEqual(du.factor) {
			return m.mg.Div(du.factor).Round(4).String() + " " + string(du.unit)
		}
	}
	return m.mg.Mul(decimal.NewFromInt(1_000)).Round(4).String() + " " + string(UnitMicrogram)
}

// MarshalText encodes the mass in its display form
func (m Mass) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a mass string
func (m *Mass) UnmarshalText(text []byte) error {
	parsed, err := ParseMass(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
