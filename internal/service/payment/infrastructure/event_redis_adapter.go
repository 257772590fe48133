// internal/service/payment/infrastructure/event_redis_adapter.go
package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"banquet/internal/pkg/redis"
	"banquet/internal/service/payment/domain"
)

// PaymentEventsChannel 是支付状态变更事件的 Redis 频道，
// push-gateway 订阅同名频道。
const PaymentEventsChannel = "payment:events"

// RedisEventPublisher 是 port.EventPublisher 的 Redis Pub/Sub 实现。
type RedisEventPublisher struct {
	client *redis.Client
}

func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{client: client}
}

func (p *RedisEventPublisher) PublishStateChanged(ctx context.Context, event *domain.PaymentStateChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal state change event")
	}
	if err := p.client.Publish(ctx, PaymentEventsChannel, payload); err != nil {
		return errors.Wrap(err, "publish state change event")
	}
	return nil
}
