package unihash

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Config selects the default algorithm and the cost parameters of every KDF
type Config struct {
	Algorithm  Algorithm
	Argon2     Argon2Params
	Scrypt     ScryptParams
	PBKDF2     PBKDF2Params
	BcryptCost int
}

// DefaultConfig returns argon2id with default costs for every algorithm
func DefaultConfig() Config {
	return Config{
		Algorithm:  AlgorithmArgon2id,
		Argon2:     DefaultArgon2Params(),
		Scrypt:     DefaultScryptParams(),
		PBKDF2:     DefaultPBKDF2Params(),
		BcryptCost: 12,
	}
}

// Registry maps algorithms to installed key derivation functions.
// Hashes are produced with the default algorithm and verified by
// whichever algorithm their encoded id names.
type Registry struct {
	mu     sync.RWMutex
	kdfs   map[Algorithm]KeyDerivationFunction
	def    Algorithm
	logger *zap.Logger
}

// NewRegistry creates an empty registry with the given default algorithm
func NewRegistry(def Algorithm, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		kdfs:   make(map[Algorithm]KeyDerivationFunction),
		def:    def,
		logger: logger,
	}
}

// NewDefaultRegistry installs every supported algorithm using cfg
func NewDefaultRegistry(cfg Config, logger *zap.Logger) (*Registry, error) {
	r := NewRegistry(cfg.Algorithm, logger)
	for _, variant := range []Algorithm{AlgorithmArgon2id, AlgorithmArgon2i, AlgorithmArgon2d} {
		kdf, err := NewArgon2(variant, cfg.Argon2)
		if err != nil {
			return nil, err
		}
		r.Install(kdf)
	}
	r.Install(NewScrypt(cfg.Scrypt))
	r.Install(NewPBKDF2(cfg.PBKDF2))
	r.Install(NewBcrypt(cfg.BcryptCost))

	if _, err := r.Use(cfg.Algorithm); err != nil {
		return nil, err
	}
	return r, nil
}

// Install registers a KDF, replacing any KDF for the same algorithm
func (r *Registry) Install(kdf KeyDerivationFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kdfs[kdf.Algorithm()]; exists {
		r.logger.Debug("Replacing installed KDF", zap.String("algorithm", string(kdf.Algorithm())))
	}
	r.kdfs[kdf.Algorithm()] = kdf
}

// Uninstall removes the KDF for an algorithm
func (r *Registry) Uninstall(alg Algorithm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.kdfs, alg)
}

// Use returns the KDF installed for alg
func (r *Registry) Use(alg Algorithm) (KeyDerivationFunction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kdf, ok := r.kdfs[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAlgorithmNotInstalled, alg)
	}
	return kdf, nil
}

// Which returns the KDF that produced an encoded hash
func (r *Registry) Which(encoded string) (KeyDerivationFunction, error) {
	id, err := identify(encoded)
	if err != nil {
		return nil, err
	}
	alg := Algorithm(id)
	if bcryptIDs[id] {
		alg = AlgorithmBcrypt
	}
	return r.Use(alg)
}

// Default returns the algorithm new hashes are produced with
func (r *Registry) Default() Algorithm {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}

// Hash hashes a password with the default algorithm
func (r *Registry) Hash(password string) (string, error) {
	kdf, err := r.Use(r.Default())
	if err != nil {
		return "", err
	}
	return kdf.Hash(password)
}

// Verify checks a password against any hash whose algorithm is installed
func (r *Registry) Verify(password, encoded string) (bool, error) {
	kdf, err := r.Which(encoded)
	if err != nil {
		return false, err
	}
	return kdf.Verify(password, encoded)
}

// NeedsRehash reports whether a hash should be replaced on next successful login
func (r *Registry) NeedsRehash(encoded string) bool {
	kdf, err := r.Which(encoded)
	if err != nil {
		return true
	}
	if kdf.Algorithm() != r.Default() {
		return true
	}
	return kdf.NeedsRehash(encoded)
}
