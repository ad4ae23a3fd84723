package unihash

import "github.com/neuronek/backend/internal/infrastructure/config"

// ConfigFrom maps the hashing section of the application config onto a
// registry Config. Zero costs keep the package defaults.
func ConfigFrom(h config.HashingConfig) (Config, error) {
	cfg := DefaultConfig()
	if h.Algorithm != "" {
		alg, err := ParseAlgorithm(h.Algorithm)
		if err != nil {
			return Config{}, err
		}
		cfg.Algorithm = alg
	}
	if h.Argon2Memory > 0 {
		cfg.Argon2.Memory = h.Argon2Memory
	}
	if h.Argon2Iterations > 0 {
		cfg.Argon2.Iterations = h.Argon2Iterations
	}
	if h.Argon2Parallelism > 0 {
		cfg.Argon2.Parallelism = h.Argon2Parallelism
	}
	if h.ScryptLogN > 0 {
		cfg.Scrypt.LogN = h.ScryptLogN
	}
	if h.ScryptR > 0 {
		cfg.Scrypt.R = h.ScryptR
	}
	if h.ScryptP > 0 {
		cfg.Scrypt.P = h.ScryptP
	}
	if h.PBKDF2Iterations > 0 {
		cfg.PBKDF2.Iterations = h.PBKDF2Iterations
	}
	if h.BcryptCost > 0 {
		cfg.BcryptCost = h.BcryptCost
	}
	return cfg, nil
}
