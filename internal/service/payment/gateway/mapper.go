// internal/service/payment/gateway/mapper.go
package gateway

import (
	"fmt"

	"banquet/internal/service/payment/domain"
)

// 网关的交易状态词汇
const (
	statusCapture       = "capture"
	statusSettlement    = "settlement"
	statusPending       = "pending"
	statusDeny          = "deny"
	statusCancel        = "cancel"
	statusExpire        = "expire"
	statusRefund        = "refund"
	statusPartialRefund = "partial_refund"
	statusAuthorize     = "authorize"
)

// 网关的风控状态词汇
const (
	fraudAccept    = "accept"
	fraudChallenge = "challenge"
	fraudDeny      = "deny"
)

// MapStatus 是纯函数，把网关的 (交易状态, 风控状态) 翻译为规范支付状态。
//
//	capture / settlement + accept            -> settled
//	capture / settlement + challenge / deny  -> denied
//	pending                                  -> pending
//	deny                                     -> denied
//	cancel                                   -> cancelled
//	expire                                   -> expired
//	refund / partial_refund                  -> refunded
//	authorize + accept                       -> authorized
//
// 未知组合返回 ErrUnmappedStatus：接收端仍需应答网关（避免无限重试），
// 但不得触碰订单状态，并在审计日志中标记人工复核。
func MapStatus(transactionStatus, fraudStatus string) (domain.PaymentState, error) {
	switch transactionStatus {
	case statusCapture, statusSettlement:
		switch fraudStatus {
		case fraudAccept, "":
			// settlement 场景下网关可能不带 fraud_status，等同 accept
			return domain.StateSettled, nil
		case fraudChallenge, fraudDeny:
			return domain.StateDenied, nil
		}
	case statusPending:
		return domain.StatePending, nil
	case statusDeny:
		return domain.StateDenied, nil
	case statusCancel:
		return domain.StateCancelled, nil
	case statusExpire:
		return domain.StateExpired, nil
	case statusRefund, statusPartialRefund:
		return domain.StateRefunded, nil
	case statusAuthorize:
		if fraudStatus == fraudAccept || fraudStatus == "" {
			return domain.StateAuthorized, nil
		}
	}
	return "", fmt.Errorf("%w: transaction_status=%q fraud_status=%q",
		domain.ErrUnmappedStatus, transactionStatus, fraudStatus)
}
