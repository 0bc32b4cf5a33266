package paystack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidSignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"SUB_abc"}}`)

	signature := Sign(body, secret)
	require.True(t, ValidSignature(body, signature, secret))
}

func TestValidSignatureRejectsTampering(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"SUB_abc"}}`)
	signature := Sign(body, secret)

	// body changed after signing
	tampered := []byte(`{"event":"charge.success","data":{"reference":"SUB_xyz"}}`)
	require.False(t, ValidSignature(tampered, signature, secret))

	// signed with a different key
	require.False(t, ValidSignature(body, Sign(body, "sk_other"), secret))

	// not even hex
	require.False(t, ValidSignature(body, "not-a-signature", secret))

	// empty signature
	require.False(t, ValidSignature(body, "", secret))
}
