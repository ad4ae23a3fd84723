package unihash

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// Algorithm names a key derivation function by its PHC id
type Algorithm string

const (
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmArgon2i  Algorithm = "argon2i"
	AlgorithmArgon2d  Algorithm = "argon2d"
	AlgorithmScrypt   Algorithm = "scrypt"
	AlgorithmPBKDF2   Algorithm = "pbkdf2-sha256"
	AlgorithmBcrypt   Algorithm = "bcrypt"
)

// ParseAlgorithm converts a configuration value into an Algorithm
func ParseAlgorithm(s string) (Algorithm, error) {
	switch alg := Algorithm(s); alg {
	case AlgorithmArgon2id, AlgorithmArgon2i, AlgorithmArgon2d, AlgorithmScrypt, AlgorithmPBKDF2, AlgorithmBcrypt:
		return alg, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// KDF errors
var (
	ErrUnknownAlgorithm      = errors.New("unihash: unknown algorithm")
	ErrAlgorithmNotInstalled = errors.New("unihash: algorithm is not installed")
	ErrUnsupportedAlgorithm  = errors.New("unihash: algorithm is not supported by this build")
	ErrHashMismatch          = errors.New("unihash: encoded hash does not belong to this algorithm")
	ErrPasswordTooLong       = errors.New("unihash: password exceeds the algorithm's input limit")
)

// KeyDerivationFunction hashes and verifies passwords in one encoding
type KeyDerivationFunction interface {
	// Algorithm returns the registry key of the function
	Algorithm() Algorithm
	// Hash derives a new encoded hash with a fresh salt
	Hash(password string) (string, error)
	// Verify checks a password against an encoded hash in constant time
	Verify(password, encoded string) (bool, error)
	// NeedsRehash reports whether the encoded hash uses weaker parameters than configured
	NeedsRehash(encoded string) bool
}

func randomSalt(n int) ([]byte, error) {
	salt := make([]byte, n)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("unihash: generate salt: %w", err)
	}
	return salt, nil
}

func intParam(phc *PHCString, name string) (int, error) {
	v, ok := phc.IntParam(name)
	if !ok {
		return 0, fmt.Errorf("%w: missing or non-decimal %q", ErrPHCInvalidParam, name)
	}
	return v, nil
}
