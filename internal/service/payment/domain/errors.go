// internal/service/payment/domain/errors.go
package domain

import "errors"

// 对账流程的错误分类。
// 接口层依赖这些哨兵错误来决定 HTTP 状态码和网关的重试行为，
// 所以各层之间传递时只允许用 %w 包装，不允许吞掉。
var (
	// ErrMalformedNotification 表示通知缺少必填字段或字段格式非法。
	ErrMalformedNotification = errors.New("malformed notification")

	// ErrAuthenticationFailed 表示签名校验失败，通知不可信。
	// 签名校验必须发生在任何状态读写之前。
	ErrAuthenticationFailed = errors.New("notification authentication failed")

	// ErrUnmappedStatus 表示网关状态词汇无法翻译为规范状态。
	// 该错误需要应答网关（避免无限重试），但不得改变订单状态。
	ErrUnmappedStatus = errors.New("unmapped gateway status")

	// ErrIllegalTransition 表示状态机禁止的转移，订单状态保持不变。
	ErrIllegalTransition = errors.New("illegal payment state transition")

	// ErrAmountMismatch 表示网关上报金额与订单应付金额不一致。
	ErrAmountMismatch = errors.New("notification amount mismatch")

	// ErrOrderNotFound 表示通知引用的订单不存在。
	ErrOrderNotFound = errors.New("order not found")

	// ErrStoreUnavailable 表示订单存储暂时不可用，允许网关稍后重试。
	ErrStoreUnavailable = errors.New("order store unavailable")
)
