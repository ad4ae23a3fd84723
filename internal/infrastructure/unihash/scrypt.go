package unihash

import (
	"crypto/subtle"
	"fmt"
	"math/bits"
	"strconv"

	"golang.org/x/crypto/scrypt"
)

// ScryptParams holds the scrypt cost parameters. N is 2^LogN.
type ScryptParams struct {
	LogN       int
	R          int
	P          int
	SaltLength int
	KeyLength  int
}

// DefaultScryptParams returns the commonly recommended interactive parameters
func DefaultScryptParams() ScryptParams {
	return ScryptParams{LogN: 15, R: 8, P: 1, SaltLength: 16, KeyLength: 32}
}

// Scrypt implements the scrypt KDF in passlib's PHC layout ($scrypt$ln=..,r=..,p=..$salt$hash)
type Scrypt struct {
	params ScryptParams
}

// NewScrypt creates a scrypt KDF
func NewScrypt(params ScryptParams) *Scrypt {
	return &Scrypt{params: params}
}

// Algorithm returns scrypt
func (s *Scrypt) Algorithm() Algorithm {
	return AlgorithmScrypt
}

// Hash derives an encoded scrypt hash
func (s *Scrypt) Hash(password string) (string, error) {
	salt, err := randomSalt(s.params.SaltLength)
	if err != nil {
		return "", err
	}
	key, err := scrypt.Key([]byte(password), salt, 1<<s.params.LogN, s.params.R, s.params.P, s.params.KeyLength)
	if err != nil {
		return "", fmt.Errorf("unihash: scrypt: %w", err)
	}
	phc := &PHCString{
		ID: string(AlgorithmScrypt),
		Params: []Param{
			{Name: "ln", Value: strconv.Itoa(s.params.LogN)},
			{Name: "r", Value: strconv.Itoa(s.params.R)},
			{Name: "p", Value: strconv.Itoa(s.params.P)},
		},
		Salt: salt,
		Hash: key,
	}
	return phc.String(), nil
}

// Verify checks a password against an encoded scrypt hash
func (s *Scrypt) Verify(password, encoded string) (bool, error) {
	phc, ln, r, p, err := s.decode(encoded)
	if err != nil {
		return false, err
	}
	key, err := scrypt.Key([]byte(password), phc.Salt, 1<<ln, r, p, len(phc.Hash))
	if err != nil {
		return false, fmt.Errorf("unihash: scrypt: %w", err)
	}
	return subtle.ConstantTimeCompare(key, phc.Hash) == 1, nil
}

// NeedsRehash reports whether the hash is weaker than the configured parameters
func (s *Scrypt) NeedsRehash(encoded string) bool {
	phc, ln, r, p, err := s.decode(encoded)
	if err != nil {
		return true
	}
	return ln < s.params.LogN || r < s.params.R || p < s.params.P || len(phc.Hash) < s.params.KeyLength
}

func (s *Scrypt) decode(encoded string) (*PHCString, int, int, int, error) {
	phc, err := ParsePHC(encoded)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	if phc.ID != string(AlgorithmScrypt) {
		return nil, 0, 0, 0, fmt.Errorf("%w: got %q", ErrHashMismatch, phc.ID)
	}
	ln, err := intParam(phc, "ln")
	if err != nil {
		return nil, 0, 0, 0, err
	}
	r, err := intParam(phc, "r")
	if err != nil {
		return nil, 0, 0, 0, err
	}
	p, err := intParam(phc, "p")
	if err != nil {
		return nil, 0, 0, 0, err
	}
	if ln <= 0 || ln >= bits.UintSize-1 || r <= 0 || p <= 0 || len(phc.Salt) == 0 || len(phc.Hash) == 0 {
		return nil, 0, 0, 0, ErrPHCInvalidParam
	}
	return phc, ln, r, p, nil
}
