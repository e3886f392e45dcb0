package password

import "golang.org/x/crypto/bcrypt"

// Hash derives a salted one-way hash of the plaintext. bcrypt embeds a
// fresh random salt in every hash, so two calls on the same input never
// produce identical output.
func Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash. The comparison
// runs over the full derived key regardless of where a mismatch occurs.
// A malformed stored hash fails closed: the result is false, never a panic
// or an error that reveals why.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
