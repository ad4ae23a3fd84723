package unihash

import (
	"crypto/subtle"
	"fmt"
	"strconv"

	"golang.org/x/crypto/argon2"
)

// Argon2Params holds the cost parameters for the argon2 family
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  int
	KeyLength   uint32
}

// DefaultArgon2Params returns parameters suitable for interactive logins
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 implements argon2id, argon2i and argon2d
type Argon2 struct {
	variant Algorithm
	params  Argon2Params
}

// NewArgon2 creates an argon2 KDF for the given variant
func NewArgon2(variant Algorithm, params Argon2Params) (*Argon2, error) {
	switch variant {
	case AlgorithmArgon2id, AlgorithmArgon2i, AlgorithmArgon2d:
	default:
		return nil, fmt.Errorf("%w: %q is not an argon2 variant", ErrUnknownAlgorithm, variant)
	}
	return &Argon2{variant: variant, params: params}, nil
}

// Algorithm returns the argon2 variant
func (a *Argon2) Algorithm() Algorithm {
	return a.variant
}

// Hash derives an encoded argon2 hash
func (a *Argon2) Hash(password string) (string, error) {
	salt, err := randomSalt(a.params.SaltLength)
	if err != nil {
		return "", err
	}
	key, err := a.derive([]byte(password), salt, a.params.Iterations, a.params.Memory, a.params.Parallelism, a.params.KeyLength)
	if err != nil {
		return "", err
	}

	version := argon2.Version
	phc := &PHCString{
		ID:      string(a.variant),
		Version: &version,
		Params: []Param{
			{Name: "m", Value: strconv.FormatUint(uint64(a.params.Memory), 10)},
			{Name: "t", Value: strconv.FormatUint(uint64(a.params.Iterations), 10)},
			{Name: "p", Value: strconv.Itoa(int(a.params.Parallelism))},
		},
		Salt: salt,
		Hash: key,
	}
	return phc.String(), nil
}

// Verify checks a password against an encoded argon2 hash
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	phc, m, t, p, err := a.decode(encoded)
	if err != nil {
		return false, err
	}
	key, err := a.derive([]byte(password), phc.Salt, t, m, p, uint32(len(phc.Hash)))
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(key, phc.Hash) == 1, nil
}

// NeedsRehash reports whether the hash is weaker than the configured parameters
func (a *Argon2) NeedsRehash(encoded string) bool {
	phc, m, t, p, err := a.decode(encoded)
	if err != nil {
		return true
	}
	if phc.Version == nil || *phc.Version != argon2.Version {
		return true
	}
	return m < a.params.Memory || t < a.params.Iterations || p < a.params.Parallelism ||
		uint32(len(phc.Hash)) < a.params.KeyLength
}

func (a *Argon2) decode(encoded string) (*PHCString, uint32, uint32, uint8, error) {
	phc, err := ParsePHC(encoded)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	if phc.ID != string(a.variant) {
		return nil, 0, 0, 0, fmt.Errorf("%w: got %q, want %q", ErrHashMismatch, phc.ID, a.variant)
	}
	if phc.Version != nil && *phc.Version != argon2.Version {
		return nil, 0, 0, 0, fmt.Errorf("%w: argon2 version %d", ErrPHCInvalidVersion, *phc.Version)
	}
	m, err := intParam(phc, "m")
	if err != nil {
		return nil, 0, 0, 0, err
	}
	t, err := intParam(phc, "t")
	if err != nil {
		return nil, 0, 0, 0, err
	}
	p, err := intParam(phc, "p")
	if err != nil {
		return nil, 0, 0, 0, err
	}
	if m <= 0 || t <= 0 || p <= 0 || p > 255 || len(phc.Salt) == 0 || len(phc.Hash) == 0 {
		return nil, 0, 0, 0, ErrPHCInvalidParam
	}
	return phc, uint32(m), uint32(t), uint8(p), nil
}

func (a *Argon2) derive(password, salt []byte, t, m uint32, p uint8, keyLen uint32) ([]byte, error) {
	switch a.variant {
	case AlgorithmArgon2id:
		return argon2.IDKey(password, salt, t, m, p, keyLen), nil
	case AlgorithmArgon2i:
		return argon2.Key(password, salt, t, m, p, keyLen), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, a.variant)
	}
}
