package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// invitationTokenSize is the entropy (in bytes) of a generated invitation
// token, returned to the admin once and never re-derivable.
const invitationTokenSize = 32

// GenerateInvitationToken returns a high-entropy opaque token, URL-safe
// base64 encoded.
func GenerateInvitationToken() (string, error) {
	b := make([]byte, invitationTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HashInvitationToken computes token_hash = HMAC(jwt_secret, token), hex
// encoded for storage. Only the hash is ever persisted.
func HashInvitationToken(signingKey []byte, token string) string {
	mac := hmac.New(sha256.New, signingKey)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyInvitationToken reports whether token hashes to hash under the
// given signing key, using a constant-time comparison.
func VerifyInvitationToken(signingKey []byte, token, hash string) bool {
	computed := HashInvitationToken(signingKey, token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
