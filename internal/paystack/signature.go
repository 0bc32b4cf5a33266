package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// ValidSignature verifies the x-paystack-signature header: a hex-encoded
// HMAC-SHA512 of the exact raw request body, keyed with the secret key.
// hmac.Equal keeps the comparison constant-time, so a forged sender learns
// nothing from response timing.
func ValidSignature(body []byte, signature, secretKey string) bool {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)

	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(mac.Sum(nil), expected)
}

// Sign computes the signature for a body; used by tests and by the webhook
// replayer tooling.
func Sign(body []byte, secretKey string) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
