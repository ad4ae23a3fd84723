package unihash

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	idPattern      = regexp.MustCompile(`^[a-z0-9-]{1,32}$`)
	namePattern    = regexp.MustCompile(`^[a-z0-9-]{1,32}$`)
	valuePattern   = regexp.MustCompile(`^[a-zA-Z0-9/+.-]+$`)
	decimalPattern = regexp.MustCompile(`^((-)?[1-9]\d*|0)$`)
	versionPattern = regexp.MustCompile(`^v=(\d+)$`)
)

// PHC string parse errors
var (
	ErrPHCFormat          = errors.New("unihash: PHC string must start with $")
	ErrPHCMissingFields   = errors.New("unihash: PHC string is missing required fields")
	ErrPHCInvalidID       = errors.New("unihash: PHC id is invalid")
	ErrPHCInvalidVersion  = errors.New("unihash: PHC version is invalid")
	ErrPHCInvalidParam    = errors.New("unihash: PHC parameter string is invalid")
	ErrPHCInvalidEncoding = errors.New("unihash: PHC salt or hash is not valid base64")
	ErrPHCUnexpected      = errors.New("unihash: PHC string contains unexpected fields")
)

// Param is a single name=value pair of a PHC parameter string
type Param struct {
	Name  string
	Value string
}

// Int returns the value as an integer when it is a PHC decimal
func (p Param) Int() (int, bool) {
	if !decimalPattern.MatchString(p.Value) {
		return 0, false
	}
	n, err := strconv.Atoi(p.Value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// PHCString is the structured form of
//
//	$<id>[$v=<version>][$<param>=<value>(,<param>=<value>)*][$<salt>[$<hash>]]
type PHCString struct {
	ID      string
	Version *int
	Params  []Param
	Salt    []byte
	Hash    []byte
}

// Param looks up a parameter by name
func (p *PHCString) Param(name string) (Param, bool) {
	for _, param := range p.Params {
		if param.Name == name {
			return param, true
		}
	}
	return Param{}, false
}

// IntParam looks up a decimal parameter by name
func (p *PHCString) IntParam(name string) (int, bool) {
	param, ok := p.Param(name)
	if !ok {
		return 0, false
	}
	return param.Int()
}

// Validate checks the id, version and parameter constraints
func (p *PHCString) Validate() error {
	if !idPattern.MatchString(p.ID) {
		return fmt.Errorf("%w: %q", ErrPHCInvalidID, p.ID)
	}
	if p.Version != nil && *p.Version < 0 {
		return ErrPHCInvalidVersion
	}
	for _, param := range p.Params {
		if !namePattern.MatchString(param.Name) {
			return fmt.Errorf("%w: name %q", ErrPHCInvalidParam, param.Name)
		}
		if !valuePattern.MatchString(param.Value) {
			return fmt.Errorf("%w: value %q", ErrPHCInvalidParam, param.Value)
		}
	}
	return nil
}

// String serializes the PHC string, omitting absent parts and base64 padding
func (p *PHCString) String() string {
	var b strings.Builder
	b.WriteString("$")
	b.WriteString(p.ID)

	if p.Version != nil {
		b.WriteString("$v=")
		b.WriteString(strconv.Itoa(*p.Version))
	}

	if len(p.Params) > 0 {
		pairs := make([]string, len(p.Params))
		for i, param := range p.Params {
			pairs[i] = param.Name + "=" + param.Value
		}
		b.WriteString("$")
		b.WriteString(strings.Join(pairs, ","))
	}

	if p.Salt != nil {
		b.WriteString("$")
		b.WriteString(base64.RawStdEncoding.EncodeToString(p.Salt))
		if p.Hash != nil {
			b.WriteString("$")
			b.WriteString(base64.RawStdEncoding.EncodeToString(p.Hash))
		}
	}

	return b.String()
}

// ParsePHC parses an encoded PHC string
func ParsePHC(encoded string) (*PHCString, error) {
	if encoded == "" || encoded[0] != '$' {
		return nil, ErrPHCFormat
	}

	fields := strings.Split(encoded[1:], "$")
	if len(fields) < 2 {
		return nil, ErrPHCMissingFields
	}

	phc := &PHCString{ID: fields[0]}
	fields = fields[1:]

	if len(fields) > 0 {
		if m := versionPattern.FindStringSubmatch(fields[0]); m != nil {
			v, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, ErrPHCInvalidVersion
			}
			phc.Version = &v
			fields = fields[1:]
		}
	}

	// parameters are the only field that may contain '='
	if len(fields) > 0 && strings.Contains(fields[0], "=") {
		for _, pair := range strings.Split(fields[0], ",") {
			name, value, found := strings.Cut(pair, "=")
			if !found || name == "" || value == "" {
				return nil, fmt.Errorf("%w: %q", ErrPHCInvalidParam, pair)
			}
			phc.Params = append(phc.Params, Param{Name: name, Value: value})
		}
		fields = fields[1:]
	}

	if len(fields) > 0 {
		salt, err := decodeB64(fields[0])
		if err != nil {
			return nil, err
		}
		phc.Salt = salt
		fields = fields[1:]
	}

	if len(fields) > 0 {
		hash, err := decodeB64(fields[0])
		if err != nil {
			return nil, err
		}
		phc.Hash = hash
		fields = fields[1:]
	}

	if len(fields) != 0 {
		return nil, ErrPHCUnexpected
	}

	if err := phc.Validate(); err != nil {
		return nil, err
	}
	return phc, nil
}

// identify returns the id field of an encoded hash without decoding the rest.
// bcrypt's modular-crypt hashes are not valid PHC payloads but share the $id$ prefix.
func identify(encoded string) (string, error) {
	if encoded == "" || encoded[0] != '$' {
		return "", ErrPHCFormat
	}
	id, _, _ := strings.Cut(encoded[1:], "$")
	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrPHCInvalidID, id)
	}
	return id, nil
}

func decodeB64(s string) ([]byte, error) {
	b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPHCInvalidEncoding, err)
	}
	return b, nil
}
