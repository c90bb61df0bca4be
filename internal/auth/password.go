package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashPassword digests a password with an application-wide salt. The same
// scheme covers user credentials and encrypted-team passwords.
func HashPassword(password, salt string) string {
	sum := sha256.Sum256([]byte(salt + ":" + password))
	return hex.EncodeToString(sum[:])
}
