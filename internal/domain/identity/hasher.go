package identity

// PasswordHasher derives and checks PHC encoded password hashes
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}
