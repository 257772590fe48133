// internal/service/payment/domain/notification.go
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Notification 是一条已通过结构校验的网关支付通知。
// 它是不可变的外部输入：接收后只读，除审计日志外不做原样持久化。
type Notification struct {
	TransactionID     string
	OrderID           string
	TransactionStatus string
	FraudStatus       string
	StatusCode        string
	GrossAmount       int64 // 金额的整数单位部分
	// GrossAmountFraction 是金额的百分位小数部分 (0..99)。
	// 订单应付金额是整数，非零小数在金额核对阶段必然不符。
	GrossAmountFraction int64
	Currency            string
	PaymentType         string
	TransactionTime     time.Time
	ReceivedAt          time.Time
}

// ParseGrossAmount 精确解析网关的十进制金额字符串（如 "500000.00"），
// 按位拆成整数单位与百分位小数两部分，不经过浮点、不做任何舍入。
// 供应商契约固定小数位最多两位；负号、空串、指数写法一律拒绝。
func ParseGrossAmount(raw string) (units int64, fraction int64, err error) {
	raw = strings.TrimSpace(raw)
	intPart, fracPart, hasFrac := strings.Cut(raw, ".")
	if !isDigits(intPart) || (hasFrac && (!isDigits(fracPart) || len(fracPart) > 2)) {
		return 0, 0, fmt.Errorf("%w: invalid gross_amount %q", ErrMalformedNotification, raw)
	}

	units, err = strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid gross_amount %q", ErrMalformedNotification, raw)
	}
	if hasFrac {
		// isDigits 已保证可解析，"4" 补齐为 40
		fraction, _ = strconv.ParseInt(fracPart, 10, 64)
		if len(fracPart) == 1 {
			fraction *= 10
		}
	}
	return units, fraction, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
