package helpers

import "golang.org/x/crypto/bcrypt"

// HashPassword produces a bcrypt hash at the default cost. The plain text
// never reaches the store.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(b), err
}

// CompareHashAndPassword reports whether plain matches the stored bcrypt
// hash. An empty hash never matches.
func CompareHashAndPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
