// internal/service/payment/domain/state.go
package domain

// PaymentState 定义了订单支付的生命周期状态。
// 这是系统内部的规范词汇表，与支付网关的状态词汇无关，
// 网关词汇到规范状态的翻译由 gateway 包负责。
type PaymentState string

const (
	StatePending    PaymentState = "pending"    // 订单已创建，等待支付结果
	StateAuthorized PaymentState = "authorized" // 资金已授权，尚未请款
	StateSettled    PaymentState = "settled"    // 资金已到账
	StateDenied     PaymentState = "denied"     // 被网关或风控拒绝
	StateExpired    PaymentState = "expired"    // 支付超时关闭
	StateCancelled  PaymentState = "cancelled"  // 已取消
	StateRefunded   PaymentState = "refunded"   // 已退款
)

// allowedTransitions 描述了状态机的有向转移图。
// key 是当前状态，value 是允许转移到的目标状态集合。
// 不在图中的边一律视为非法转移。
var allowedTransitions = map[PaymentState][]PaymentState{
	StatePending:    {StateAuthorized, StateSettled, StateDenied, StateExpired, StateCancelled},
	StateAuthorized: {StateSettled, StateDenied, StateRefunded},
	StateSettled:    {StateRefunded},
	// 终态：没有出边
	StateDenied:    {},
	StateExpired:   {},
	StateCancelled: {},
	StateRefunded:  {},
}

// IsValid 判断给定字符串是否是已知的规范状态。
func (s PaymentState) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal 判断状态是否为终态（没有任何合法出边）。
func (s PaymentState) IsTerminal() bool {
	targets, ok := allowedTransitions[s]
	return ok && len(targets) == 0
}

// CanTransition 判断从 from 到 to 的转移是否被状态机允许。
// 注意：to == from 的重复投递场景不走这里，由聚合根按无害空操作处理。
func CanTransition(from, to PaymentState) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
