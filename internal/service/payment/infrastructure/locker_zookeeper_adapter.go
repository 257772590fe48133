// internal/service/payment/infrastructure/locker_zookeeper_adapter.go
package infrastructure

import (
	"context"

	"banquet/internal/pkg/logger"
	"banquet/internal/zookeeper"
)

// ZookeeperOrderLocker 是 port.OrderLocker 的 ZooKeeper 实现，
// 多节点部署时用它保证同一订单的通知在集群范围内串行处理。
type ZookeeperOrderLocker struct {
	conn *zookeeper.Conn
}

func NewZookeeperOrderLocker(conn *zookeeper.Conn) *ZookeeperOrderLocker {
	return &ZookeeperOrderLocker{conn: conn}
}

func (l *ZookeeperOrderLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	lock, err := zookeeper.NewDistributedLock(l.conn, orderID)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("order_id", orderID).
				Msg("failed to release order lock")
		}
	}, nil
}
