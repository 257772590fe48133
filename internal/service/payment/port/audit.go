// internal/service/payment/port/audit.go
package port

import (
	"context"
	"time"
)

// AuditEntry 是一条一次写入的通知审计记录。
// 每条收到的通知（无论被接受还是被拒绝）都会产生一条，
// 与订单状态分开存放，供事后争议处理使用。
type AuditEntry struct {
	ID                string    `json:"id"`
	ReceivedAt        time.Time `json:"received_at"`
	OrderID           string    `json:"order_id"`
	TransactionID     string    `json:"transaction_id"`
	TransactionStatus string    `json:"transaction_status"`
	FraudStatus       string    `json:"fraud_status"`
	GrossAmount       string    `json:"gross_amount"`
	PaymentType       string    `json:"payment_type"`

	// Outcome 是处理结果：applied / replayed / noop / rejected
	Outcome string `json:"outcome"`

	// Error 在被拒绝时记录错误分类名，如 AmountMismatch
	Error string `json:"error,omitempty"`

	// Review 为 true 时该条目需要人工复核
	Review bool `json:"review"`
}

// 审计结果分类
const (
	OutcomeApplied  = "applied"
	OutcomeReplayed = "replayed"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
)

// AuditTrail 把审计记录写入持久化日志（Kafka 主题）。
// 审计写入是尽力而为：它的失败绝不回滚已应用的状态转移。
type AuditTrail interface {
	Record(ctx context.Context, entry *AuditEntry) error
}
