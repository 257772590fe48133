// internal/service/payment/domain/order.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Order 是订餐订单聚合的根实体。
// 支付状态（State）和 LastTransactionID 只允许通过 ApplyTransition 变更，
// 预订流程和 UI 层对这两个字段只读。
type Order struct {
	ID           string
	CustomerName string
	Items        []string // 简单场景下用菜品名即可，复杂场景可替换为值对象
	GrossAmount  int64    // 应付金额，最小货币单位
	Currency     string
	State        PaymentState

	// LastTransactionID 记录最近一次真实转移对应的网关交易号
	LastTransactionID string

	// History 是只追加的状态转移历史，按发生顺序排列
	History []Transition

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition 是一次已发生的支付状态转移记录。
type Transition struct {
	From          PaymentState
	To            PaymentState
	TransactionID string
	At            time.Time
}

// NewOrder 工厂函数，创建一个处于 pending 状态的新订单。
// 应付金额必须在任何网关通知到达之前就已确定。
func NewOrder(customerName string, items []string, grossAmount int64, currency string) (*Order, error) {
	if customerName == "" || len(items) == 0 {
		return nil, fmt.Errorf("cannot create order with empty required fields")
	}
	if grossAmount <= 0 {
		return nil, fmt.Errorf("order gross amount must be positive, got %d", grossAmount)
	}
	if currency == "" {
		currency = "IDR"
	}
	now := time.Now()
	return &Order{
		ID:           uuid.New().String(),
		CustomerName: customerName,
		Items:        items,
		GrossAmount:  grossAmount,
		Currency:     currency,
		State:        StatePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ApplyTransition 把一次网关交易产生的目标状态应用到订单上。
// 返回值 applied 表示是否发生了真实转移：
//   - to 等于当前状态时视为重复投递，直接返回成功且不追加历史；
//   - 状态机禁止的转移返回 ErrIllegalTransition，订单保持不变；
//   - 真实转移追加一条历史并更新 LastTransactionID。
func (o *Order) ApplyTransition(transactionID string, to PaymentState) (applied bool, err error) {
	if to == o.State {
		// 网关对同一结果的重复上报，无害空操作
		return false, nil
	}
	if !CanTransition(o.State, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.State, to)
	}

	now := time.Now()
	o.History = append(o.History, Transition{
		From:          o.State,
		To:            to,
		TransactionID: transactionID,
		At:            now,
	})
	o.State = to
	o.LastTransactionID = transactionID
	o.UpdatedAt = now
	return true, nil
}
