// internal/service/payment/domain/repository.go
package domain

import "context"

// ApplyResult 是一次守卫检查 + 状态机应用的结果。
type ApplyResult struct {
	// State 是本次应用后（或重放时此前已记录）的订单状态
	State PaymentState

	// Applied 表示是否发生了真实转移并追加了历史
	Applied bool

	// Replayed 表示 (orderID, transactionID) 已存在于幂等台账，
	// 本次为重放，未发生任何写入
	Replayed bool
}

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，由基础设施层实现（GORM/MySQL 或内存实现）。
type OrderRepository interface {
	// Save 保存一个新订单聚合。
	Save(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找订单，不存在时返回 ErrOrderNotFound。
	FindByID(ctx context.Context, id string) (*Order, error)

	// ApplyPaymentTransition 在一个原子单元内完成幂等守卫与状态机应用：
	//   1. 幂等台账中已存在 (orderID, transactionID) 时，直接返回
	//      此前记录的结果状态（Replayed=true），不做任何写入；
	//   2. 否则台账条目、订单状态、转移历史要么全部落盘、要么全不落盘，
	//      崩溃恢复后不会出现台账与状态不一致导致的重复应用。
	// 状态机规则（含 to==current 的空操作语义）由 Order.ApplyTransition 裁决。
	ApplyPaymentTransition(ctx context.Context, orderID, transactionID string, to PaymentState) (*ApplyResult, error)
}
