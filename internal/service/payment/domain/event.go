// internal/service/payment/domain/event.go
package domain

import "time"

// PaymentStateChanged 是订单发生一次真实状态转移后发布的事件。
// push-gateway 订阅该事件把最新支付状态推送给前台 / 管理后台。
type PaymentStateChanged struct {
	OrderID       string       `json:"orderId"`
	TransactionID string       `json:"transactionId"`
	From          PaymentState `json:"from"`
	To            PaymentState `json:"to"`
	At            time.Time    `json:"at"`
}
