package qstash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Signing key errors.
var (
	ErrNoSigningKeys    = errors.New("no signing keys configured")
	ErrInvalidSignature = errors.New("invalid queue signature")
)

// Verifier checks callback signatures. Two keys are accepted so the
// queue provider can rotate keys without dropping in-flight deliveries:
// a delivery signed with the next key is valid before the rotation
// lands in config.
type Verifier struct {
	currentKey string
	nextKey    string
}

// NewVerifier builds a Verifier from the current and next signing keys.
func NewVerifier(currentKey, nextKey string) *Verifier {
	return &Verifier{currentKey: currentKey, nextKey: nextKey}
}

// Verify checks the hex HMAC-SHA256 signature over the raw request body
// against both signing keys.
func (v *Verifier) Verify(body []byte, signature string) error {
	if v.currentKey == "" && v.nextKey == "" {
		return ErrNoSigningKeys
	}
	for _, key := range []string{v.currentKey, v.nextKey} {
		if key == "" {
			continue
		}
		if matches(body, signature, key) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign computes the signature a delivery should carry, using the
// current key. Used by the memory-mode dispatcher and by tests.
func Sign(body []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func matches(body []byte, signature, key string) bool {
	expected := Sign(body, key)
	return hmac.Equal([]byte(expected), []byte(signature))
}
