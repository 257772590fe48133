package gateway

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banquet/internal/service/payment/domain"
)

func signedNotification(serverKey string) *RawNotification {
	raw := &RawNotification{
		TransactionID:     "txn-abc",
		OrderID:           "ORD-100",
		TransactionStatus: "capture",
		FraudStatus:       "accept",
		StatusCode:        "200",
		GrossAmount:       "500000.00",
		Currency:          "IDR",
		PaymentType:       "bank_transfer",
	}
	sum := sha512.Sum512([]byte(raw.OrderID + raw.StatusCode + raw.GrossAmount + serverKey))
	raw.SignatureKey = hex.EncodeToString(sum[:])
	return raw
}

func TestVerify_ValidSignature(t *testing.T) {
	v := NewSignatureVerifier("server-key-1")
	raw := signedNotification("server-key-1")
	assert.NoError(t, v.Verify(raw))
}

func TestVerify_Mismatch(t *testing.T) {
	v := NewSignatureVerifier("server-key-1")

	raw := signedNotification("another-key")
	assert.ErrorIs(t, v.Verify(raw), domain.ErrAuthenticationFailed)

	// 篡改金额后原签名必须失效
	raw = signedNotification("server-key-1")
	raw.GrossAmount = "450000.00"
	assert.ErrorIs(t, v.Verify(raw), domain.ErrAuthenticationFailed)

	raw = signedNotification("server-key-1")
	raw.SignatureKey = "deadbeef"
	assert.ErrorIs(t, v.Verify(raw), domain.ErrAuthenticationFailed)
}

func TestVerify_MissingServerKey(t *testing.T) {
	v := NewSignatureVerifier("")
	raw := signedNotification("")
	assert.ErrorIs(t, v.Verify(raw), domain.ErrAuthenticationFailed)
}

func TestSign_MatchesVerify(t *testing.T) {
	v := NewSignatureVerifier("server-key-1")
	raw := signedNotification("server-key-1")
	require.Equal(t, raw.SignatureKey, v.Sign(raw.OrderID, raw.StatusCode, raw.GrossAmount))
}
