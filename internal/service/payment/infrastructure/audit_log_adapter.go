// internal/service/payment/infrastructure/audit_log_adapter.go
package infrastructure

import (
	"context"

	"banquet/internal/pkg/logger"
	"banquet/internal/service/payment/port"
)

// LogAuditTrail 是 port.AuditTrail 的结构化日志实现。
// 未配置 Kafka 的单机部署用它兜底，保证每条通知仍然留痕。
type LogAuditTrail struct{}

func NewLogAuditTrail() *LogAuditTrail {
	return &LogAuditTrail{}
}

func (LogAuditTrail) Record(ctx context.Context, entry *port.AuditEntry) error {
	logger.Ctx(ctx).Info().
		Str("audit_id", entry.ID).
		Str("order_id", entry.OrderID).
		Str("transaction_id", entry.TransactionID).
		Str("transaction_status", entry.TransactionStatus).
		Str("fraud_status", entry.FraudStatus).
		Str("gross_amount", entry.GrossAmount).
		Str("outcome", entry.Outcome).
		Str("error", entry.Error).
		Bool("review", entry.Review).
		Msg("payment notification audit")
	return nil
}
