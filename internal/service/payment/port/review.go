// internal/service/payment/port/review.go
package port

import "banquet/internal/service/payment/domain"

// ReviewPolicy 判断一条通知是否需要标记人工复核。
// 规则是运营侧可配置的表达式（CEL 实现），只影响审计条目的
// Review 标记，不影响对账流程本身的任何判定。
type ReviewPolicy interface {
	NeedsReview(n *domain.Notification) bool
}
