package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt hash of the plaintext password at the
// given cost.  The cost comes from configuration so environments can
// trade hashing latency against brute-force resistance; bcrypt embeds
// it in the hash, so it can be raised later without invalidating
// existing credentials.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
// The comparison runs in constant time relative to the password, so a
// mismatch leaks no timing information about how close the guess was.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
