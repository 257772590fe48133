// internal/service/payment/port/events.go
package port

import (
	"context"

	"banquet/internal/service/payment/domain"
)

// EventPublisher 把支付状态变更事件广播出去。
// Redis Pub/Sub 实现供 push-gateway 推送给前端；
// 事件只在真实转移发生后发布，重放和空操作不发。
type EventPublisher interface {
	PublishStateChanged(ctx context.Context, event *domain.PaymentStateChanged) error
}
