// internal/service/payment/application/dto.go
package application

import "banquet/internal/service/payment/domain"

// NotificationResult 是对账用例的输出数据。
type NotificationResult struct {
	OrderID string
	// Status 是处理后的订单规范状态。通知被拒绝时是订单当前
	// （未被改变的）状态；未读取存储的拒绝路径下可能为空。
	Status domain.PaymentState
	// Applied 表示发生了真实转移；Replayed 表示命中幂等台账
	Applied  bool
	Replayed bool
}

// CreateOrderRequest 是创建预订订单用例的输入数据。
type CreateOrderRequest struct {
	CustomerName string   `json:"customer_name"`
	Items        []string `json:"items"`
	GrossAmount  int64    `json:"gross_amount"`
	Currency     string   `json:"currency"`
}

// OrderView 是暴露给 UI 层的订单只读视图。
type OrderView struct {
	OrderID           string              `json:"order_id"`
	CustomerName      string              `json:"customer_name"`
	Items             []string            `json:"items"`
	GrossAmount       int64               `json:"gross_amount"`
	Currency          string              `json:"currency"`
	Status            domain.PaymentState `json:"status"`
	LastTransactionID string              `json:"last_transaction_id,omitempty"`
	History           []TransitionView    `json:"history"`
}

// TransitionView 是一条状态转移历史的只读视图。
type TransitionView struct {
	From          domain.PaymentState `json:"from"`
	To            domain.PaymentState `json:"to"`
	TransactionID string              `json:"transaction_id"`
	At            string              `json:"at"`
}

// ToOrderView 把领域聚合转换为 UI 视图。
func ToOrderView(o *domain.Order) *OrderView {
	view := &OrderView{
		OrderID:           o.ID,
		CustomerName:      o.CustomerName,
		Items:             o.Items,
		GrossAmount:       o.GrossAmount,
		Currency:          o.Currency,
		Status:            o.State,
		LastTransactionID: o.LastTransactionID,
		History:           make([]TransitionView, 0, len(o.History)),
	}
	for _, t := range o.History {
		view.History = append(view.History, TransitionView{
			From:          t.From,
			To:            t.To,
			TransactionID: t.TransactionID,
			At:            t.At.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return view
}
