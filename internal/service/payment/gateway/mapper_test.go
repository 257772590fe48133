package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banquet/internal/service/payment/domain"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		transactionStatus string
		fraudStatus       string
		want              domain.PaymentState
	}{
		{"capture", "accept", domain.StateSettled},
		{"settlement", "accept", domain.StateSettled},
		{"settlement", "", domain.StateSettled},
		{"capture", "challenge", domain.StateDenied},
		{"capture", "deny", domain.StateDenied},
		{"pending", "", domain.StatePending},
		{"pending", "accept", domain.StatePending},
		{"deny", "", domain.StateDenied},
		{"cancel", "", domain.StateCancelled},
		{"expire", "", domain.StateExpired},
		{"refund", "", domain.StateRefunded},
		{"partial_refund", "", domain.StateRefunded},
		{"authorize", "accept", domain.StateAuthorized},
		{"authorize", "", domain.StateAuthorized},
	}
	for _, tt := range tests {
		got, err := MapStatus(tt.transactionStatus, tt.fraudStatus)
		require.NoError(t, err, "%s/%s", tt.transactionStatus, tt.fraudStatus)
		assert.Equal(t, tt.want, got, "%s/%s", tt.transactionStatus, tt.fraudStatus)
	}
}

func TestMapStatus_Unmapped(t *testing.T) {
	tests := []struct {
		transactionStatus string
		fraudStatus       string
	}{
		{"chargeback", ""},
		{"authorize", "challenge"},
		{"authorize", "deny"},
		{"capture", "unknown"},
		{"", ""},
	}
	for _, tt := range tests {
		_, err := MapStatus(tt.transactionStatus, tt.fraudStatus)
		assert.ErrorIs(t, err, domain.ErrUnmappedStatus, "%s/%s", tt.transactionStatus, tt.fraudStatus)
	}
}
