// internal/service/payment/port/locker.go
package port

import "context"

// OrderLocker 提供以订单为粒度的互斥临界区。
// 同一订单的两条通知不允许交错执行守卫检查到状态写入这段
// 读-改-写流程；不同订单之间必须可以并行，不存在全局锁。
//
// 单节点部署用进程内实现即可，多节点部署换成 ZooKeeper 实现。
type OrderLocker interface {
	// Lock 获取 orderID 对应的排他锁，成功后返回解锁函数。
	// ctx 超时或取消时返回错误。
	Lock(ctx context.Context, orderID string) (unlock func(), err error)
}
