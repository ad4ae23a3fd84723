package unihash

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"strconv"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2Params holds the PBKDF2-HMAC-SHA256 parameters
type PBKDF2Params struct {
	Iterations int
	SaltLength int
	KeyLength  int
}

// DefaultPBKDF2Params returns parameters following current OWASP guidance for SHA-256
func DefaultPBKDF2Params() PBKDF2Params {
	return PBKDF2Params{Iterations: 600000, SaltLength: 16, KeyLength: 32}
}

// PBKDF2 implements $pbkdf2-sha256$i=<iterations>$<salt>$<hash>
type PBKDF2 struct {
	params PBKDF2Params
}

// NewPBKDF2 creates a PBKDF2-SHA256 KDF
func NewPBKDF2(params PBKDF2Params) *PBKDF2 {
	return &PBKDF2{params: params}
}

// Algorithm returns pbkdf2-sha256
func (k *PBKDF2) Algorithm() Algorithm {
	return AlgorithmPBKDF2
}

// Hash derives an encoded PBKDF2 hash
func (k *PBKDF2) Hash(password string) (string, error) {
	salt, err := randomSalt(k.params.SaltLength)
	if err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, k.params.Iterations, k.params.KeyLength, sha256.New)
	phc := &PHCString{
		ID:     string(AlgorithmPBKDF2),
		Params: []Param{{Name: "i", Value: strconv.Itoa(k.params.Iterations)}},
		Salt:   salt,
		Hash:   key,
	}
	return phc.String(), nil
}

// Verify checks a password against an encoded PBKDF2 hash
func (k *PBKDF2) Verify(password, encoded string) (bool, error) {
	phc, iterations, err := k.decode(encoded)
	if err != nil {
		return false, err
	}
	key := pbkdf2.Key([]byte(password), phc.Salt, iterations, len(phc.Hash), sha256.New)
	return subtle.ConstantTimeCompare(key, phc.Hash) == 1, nil
}

// NeedsRehash reports whether the iteration count is below the configured one
func (k *PBKDF2) NeedsRehash(encoded string) bool {
	phc, iterations, err := k.decode(encoded)
	if err != nil {
		return true
	}
	return iterations < k.params.Iterations || len(phc.Hash) < k.params.KeyLength
}

func (k *PBKDF2) decode(encoded string) (*PHCString, int, error) {
	phc, err := ParsePHC(encoded)
	if err != nil {
		return nil, 0, err
	}
	if phc.ID != string(AlgorithmPBKDF2) {
		return nil, 0, fmt.Errorf("%w: got %q", ErrHashMismatch, phc.ID)
	}
	iterations, err := intParam(phc, "i")
	if err != nil {
		return nil, 0, err
	}
	if iterations <= 0 || len(phc.Salt) == 0 || len(phc.Hash) == 0 {
		return nil, 0, ErrPHCInvalidParam
	}
	return phc, iterations, nil
}
