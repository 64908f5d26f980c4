package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"docbay/internal/constants"
)

// Hash computes the HMAC-SHA256 of input under the fixed server secret.
// Stored password hashes and access tokens are both derived this way, so
// seeded credential hashes stay valid across restarts.
func Hash(input string) string {
	mac := hmac.New(sha256.New, []byte(constants.TokenSecret))
	mac.Write([]byte(input))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPassword checks a plaintext password against a stored hash in
// constant time.
func VerifyPassword(password, storedHash string) bool {
	return hmac.Equal([]byte(Hash(password)), []byte(storedHash))
}
