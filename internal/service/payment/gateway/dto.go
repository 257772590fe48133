// internal/service/payment/gateway/dto.go
package gateway

import (
	"fmt"
	"time"

	"banquet/internal/service/payment/domain"
)

// RawNotification 对应支付网关回调的 JSON 报文。
// 字段名、金额的十进制字符串编码和签名字段都由外部供应商的
// 线上契约固定，这里必须原样保留。
type RawNotification struct {
	TransactionID     string `json:"transaction_id"`
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	Currency          string `json:"currency"`
	PaymentType       string `json:"payment_type"`
	SignatureKey      string `json:"signature_key"`
	TransactionTime   string `json:"transaction_time"`
	SettlementTime    string `json:"settlement_time,omitempty"`
	MerchantID        string `json:"merchant_id,omitempty"`
}

// 网关的 transaction_time 格式，供应商文档固定为东七区本地时间
const transactionTimeLayout = "2006-01-02 15:04:05"

// Validate 做结构校验：必填字段齐全、金额可解析。
// 校验通过后返回领域层的 Notification；任何缺失或非法字段都
// 归类为 ErrMalformedNotification，由接收端以客户端错误应答。
func (r *RawNotification) Validate() (*domain.Notification, error) {
	switch {
	case r.TransactionID == "":
		return nil, fmt.Errorf("%w: missing transaction_id", domain.ErrMalformedNotification)
	case r.OrderID == "":
		return nil, fmt.Errorf("%w: missing order_id", domain.ErrMalformedNotification)
	case r.TransactionStatus == "":
		return nil, fmt.Errorf("%w: missing transaction_status", domain.ErrMalformedNotification)
	case r.StatusCode == "":
		return nil, fmt.Errorf("%w: missing status_code", domain.ErrMalformedNotification)
	case r.SignatureKey == "":
		return nil, fmt.Errorf("%w: missing signature_key", domain.ErrMalformedNotification)
	}

	amount, fraction, err := domain.ParseGrossAmount(r.GrossAmount)
	if err != nil {
		return nil, err
	}

	// transaction_time 缺失或格式不对不影响对账正确性，容忍之
	txnTime, _ := time.Parse(transactionTimeLayout, r.TransactionTime)

	return &domain.Notification{
		TransactionID:       r.TransactionID,
		OrderID:             r.OrderID,
		TransactionStatus:   r.TransactionStatus,
		FraudStatus:         r.FraudStatus,
		StatusCode:          r.StatusCode,
		GrossAmount:         amount,
		GrossAmountFraction: fraction,
		Currency:            r.Currency,
		PaymentType:         r.PaymentType,
		TransactionTime:     txnTime,
		ReceivedAt:          time.Now(),
	}, nil
}
