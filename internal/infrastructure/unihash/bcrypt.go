package unihash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptIDs are the modular-crypt prefixes produced by bcrypt implementations
var bcryptIDs = map[string]bool{"2a": true, "2b": true, "2y": true}

// bcryptMaxInput is the number of password bytes bcrypt reads
const bcryptMaxInput = 72

// Bcrypt wraps golang.org/x/crypto/bcrypt. Hashes keep their native $2a$ form.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt KDF with the given cost
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Algorithm returns bcrypt
func (b *Bcrypt) Algorithm() Algorithm {
	return AlgorithmBcrypt
}

// Hash derives a bcrypt hash
func (b *Bcrypt) Hash(password string) (string, error) {
	if len(password) > bcryptMaxInput {
		return "", fmt.Errorf("%w: bcrypt reads at most %d bytes", ErrPasswordTooLong, bcryptMaxInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("unihash: bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify checks a password against a bcrypt hash. Inputs longer than bcrypt
// reads never match, so a shared 72-byte prefix is not enough.
func (b *Bcrypt) Verify(password, encoded string) (bool, error) {
	if len(password) > bcryptMaxInput {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("unihash: bcrypt: %w", err)
}

// NeedsRehash reports whether the stored cost is below the configured cost
func (b *Bcrypt) NeedsRehash(encoded string) bool {
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return true
	}
	return cost < b.cost
}
