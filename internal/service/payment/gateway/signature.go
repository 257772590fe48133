// internal/service/payment/gateway/signature.go
package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"banquet/internal/service/payment/domain"
)

// SignatureVerifier 校验回调报文确实来自支付网关。
// 供应商的签名方案是拼接后散列：
//
//	sha512(order_id + status_code + gross_amount + serverKey)
//
// 其中 gross_amount 使用报文里的原始十进制字符串参与拼接。
// 拼接顺序和算法以供应商线上契约为准。
type SignatureVerifier struct {
	serverKey string
}

// NewSignatureVerifier 创建校验器。serverKey 是商户与网关共享的密钥。
func NewSignatureVerifier(serverKey string) *SignatureVerifier {
	return &SignatureVerifier{serverKey: serverKey}
}

// Verify 重算期望签名并与报文携带的签名做恒定时间比较。
// 密钥未配置或签名不匹配都按认证失败硬拒绝——此时不允许发生
// 任何状态读写，防止通过错误耗时或副作用推断已认证状态。
func (v *SignatureVerifier) Verify(raw *RawNotification) error {
	if v.serverKey == "" {
		return fmt.Errorf("%w: gateway server key not configured", domain.ErrAuthenticationFailed)
	}

	payload := raw.OrderID + raw.StatusCode + raw.GrossAmount + v.serverKey
	sum := sha512.Sum512([]byte(payload))
	expected := hex.EncodeToString(sum[:])

	if subtle.ConstantTimeCompare([]byte(expected), []byte(raw.SignatureKey)) != 1 {
		return fmt.Errorf("%w: signature mismatch for order %s", domain.ErrAuthenticationFailed, raw.OrderID)
	}
	return nil
}

// Sign 按供应商方案计算签名，测试和本地联调用。
func (v *SignatureVerifier) Sign(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + v.serverKey))
	return hex.EncodeToString(sum[:])
}
