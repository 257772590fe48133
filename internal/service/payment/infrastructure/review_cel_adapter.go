// internal/service/payment/infrastructure/review_cel_adapter.go
package infrastructure

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"banquet/internal/pkg/logger"
	"banquet/internal/service/payment/domain"
)

// DefaultReviewRule 是未配置时使用的人工复核规则：
// 风控 challenge 一律复核，大额交易也复核。
const DefaultReviewRule = `fraud_status == "challenge" || gross_amount >= 10000000`

// CelReviewPolicy 是 port.ReviewPolicy 的 CEL 实现。
// 运营侧在配置里用一条 CEL 表达式描述"什么样的通知需要人工看一眼"，
// 不用改代码就能调整复核口径。这是一个典型的适配器：把 cel-go 的
// API 适配到我们自己的领域接口上。
type CelReviewPolicy struct {
	program cel.Program
}

// NewCelReviewPolicy 编译表达式并创建策略实例。
// 表达式可引用的变量：transaction_status、fraud_status、gross_amount
//（最小货币单位整数）、payment_type、currency。
func NewCelReviewPolicy(rule string) (*CelReviewPolicy, error) {
	if rule == "" {
		rule = DefaultReviewRule
	}

	env, err := cel.NewEnv(
		cel.Variable("transaction_status", cel.StringType),
		cel.Variable("fraud_status", cel.StringType),
		cel.Variable("gross_amount", cel.IntType),
		cel.Variable("payment_type", cel.StringType),
		cel.Variable("currency", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, issues := env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile review rule %q: %w", rule, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("review rule %q must evaluate to bool, got %s", rule, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build review rule program: %w", err)
	}
	return &CelReviewPolicy{program: program}, nil
}

// NeedsReview 对一条通知求值。求值失败按不复核处理并记日志，
// 复核标记只是辅助信息，不允许因为规则问题拖垮对账主流程。
func (p *CelReviewPolicy) NeedsReview(n *domain.Notification) bool {
	out, _, err := p.program.Eval(map[string]interface{}{
		"transaction_status": n.TransactionStatus,
		"fraud_status":       n.FraudStatus,
		"gross_amount":       n.GrossAmount,
		"payment_type":       n.PaymentType,
		"currency":           n.Currency,
	})
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("order_id", n.OrderID).
			Msg("review rule evaluation failed")
		return false
	}
	flagged, ok := out.Value().(bool)
	return ok && flagged
}
