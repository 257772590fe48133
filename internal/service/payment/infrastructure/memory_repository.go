// internal/service/payment/infrastructure/memory_repository.go
package infrastructure

import (
	"context"
	"sync"

	"banquet/internal/service/payment/domain"
)

// MemoryOrderRepository 是 OrderRepository 的进程内实现。
// 单机部署和测试场景使用；互斥锁保证守卫检查与状态写入的原子性。
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	// ledger 是幂等台账：(orderID, transactionID) -> 产生的状态
	ledger map[ledgerKey]domain.PaymentState
}

type ledgerKey struct {
	orderID       string
	transactionID string
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]*domain.Order),
		ledger: make(map[ledgerKey]domain.PaymentState),
	}
}

func (r *MemoryOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *MemoryOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ApplyPaymentTransition 在单把互斥锁下完成台账检查与状态写入，
// 天然满足"要么都发生、要么都不发生"的原子性要求。
func (r *MemoryOrderRepository) ApplyPaymentTransition(ctx context.Context, orderID, transactionID string, to domain.PaymentState) (*domain.ApplyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ledgerKey{orderID: orderID, transactionID: transactionID}
	if state, ok := r.ledger[key]; ok {
		// 重放：返回此前记录的结果状态，不做任何写入
		return &domain.ApplyResult{State: state, Replayed: true}, nil
	}

	order, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}

	applied, err := order.ApplyTransition(transactionID, to)
	if err != nil {
		return nil, err
	}

	// 空操作同样入账，后续重投同一交易号直接短路
	r.ledger[key] = order.State
	return &domain.ApplyResult{State: order.State, Applied: applied}, nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]string(nil), o.Items...)
	cp.History = append([]domain.Transition(nil), o.History...)
	return &cp
}
