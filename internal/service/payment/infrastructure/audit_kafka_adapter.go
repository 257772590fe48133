// internal/service/payment/infrastructure/audit_kafka_adapter.go
package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"banquet/internal/pkg/mq"
	"banquet/internal/service/payment/port"
)

// KafkaAuditTrail 是 port.AuditTrail 的 Kafka 实现。
// 审计主题是只追加日志，按订单号做分区 key，保证同一订单的
// 审计条目在分区内保持接收顺序。
type KafkaAuditTrail struct {
	writer *kafka.Writer
}

func NewKafkaAuditTrail(writer *kafka.Writer) *KafkaAuditTrail {
	return &KafkaAuditTrail{writer: writer}
}

func (a *KafkaAuditTrail) Record(ctx context.Context, entry *port.AuditEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshal audit entry")
	}
	if err := mq.ProduceMessage(ctx, a.writer, []byte(entry.OrderID), payload); err != nil {
		return errors.Wrap(err, "produce audit entry")
	}
	return nil
}
