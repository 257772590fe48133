// internal/service/payment/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"banquet/internal/pkg/logger"
	"banquet/internal/service/payment/domain"
	"banquet/internal/service/payment/gateway"
	"banquet/internal/service/payment/port"
)

// PaymentApplicationService 编排支付通知的对账流程。
// 它自身不含任何业务规则：签名方案在 gateway 包，状态机在 domain 包，
// 原子性由仓储保证，这里只负责按固定顺序组合各阶段并落审计。
type PaymentApplicationService struct {
	orders   domain.OrderRepository
	verifier *gateway.SignatureVerifier
	locker   port.OrderLocker
	audit    port.AuditTrail
	events   port.EventPublisher
	review   port.ReviewPolicy
	tracer   trace.Tracer
}

func NewPaymentApplicationService(
	orders domain.OrderRepository,
	verifier *gateway.SignatureVerifier,
	locker port.OrderLocker,
	audit port.AuditTrail,
	events port.EventPublisher,
	review port.ReviewPolicy,
	tracer trace.Tracer,
) *PaymentApplicationService {
	return &PaymentApplicationService{
		orders:   orders,
		verifier: verifier,
		locker:   locker,
		audit:    audit,
		events:   events,
		review:   review,
		tracer:   tracer,
	}
}

// ReconcileNotification 是通知接收端的业务入口，严格按以下顺序执行：
// 结构校验 -> 签名校验 -> 状态翻译 -> (加订单锁) 金额核对 -> 幂等守卫 + 状态机。
// 签名校验之前不发生任何存储读写。同一订单的处理被锁串行化，
// 不同订单互不影响。出错路径一律不回滚已应用的转移。
func (s *PaymentApplicationService) ReconcileNotification(ctx context.Context, raw *gateway.RawNotification) (*NotificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "payment.ReconcileNotification", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.order_id", raw.OrderID),
		attribute.String("payment.transaction_id", raw.TransactionID),
		attribute.String("payment.transaction_status", raw.TransactionStatus),
	)

	// 1. 结构校验
	n, err := raw.Validate()
	if err != nil {
		s.recordAudit(ctx, rawAuditEntry(raw), port.OutcomeRejected, err, false)
		return nil, s.fail(span, err)
	}

	// 2. 签名校验。失败是硬拒绝，此前此后都不允许读写订单状态。
	if err := s.verifier.Verify(raw); err != nil {
		s.recordAudit(ctx, notificationAuditEntry(n), port.OutcomeRejected, err, false)
		return nil, s.fail(span, err)
	}

	needsReview := s.review != nil && s.review.NeedsReview(n)

	// 3. 状态翻译。未知词汇需要应答网关但不得触碰订单，强制人工复核。
	target, err := gateway.MapStatus(n.TransactionStatus, n.FraudStatus)
	if err != nil {
		s.recordAudit(ctx, notificationAuditEntry(n), port.OutcomeRejected, err, true)
		return &NotificationResult{OrderID: n.OrderID}, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("payment.target_state", string(target)))

	// 4. 以订单为粒度进入临界区，覆盖金额核对到状态写入的全程
	unlock, err := s.locker.Lock(ctx, n.OrderID)
	if err != nil {
		s.recordAudit(ctx, notificationAuditEntry(n), port.OutcomeRejected, err, false)
		return nil, s.fail(span, err)
	}
	defer unlock()

	// 5. 加载订单。临时性的存储故障同样留痕，网关重投后会有下一条。
	order, err := s.orders.FindByID(ctx, n.OrderID)
	if err != nil {
		s.recordAudit(ctx, notificationAuditEntry(n), port.OutcomeRejected, err,
			errors.Is(err, domain.ErrOrderNotFound))
		return nil, s.fail(span, err)
	}

	// 6. 金额核对：逐位精确比较。订单应付金额是整数，
	// 带非零小数的上报金额（如 "500000.40"）必然不符。
	if n.GrossAmount != order.GrossAmount || n.GrossAmountFraction != 0 ||
		(n.Currency != "" && order.Currency != "" && n.Currency != order.Currency) {
		err := domain.ErrAmountMismatch
		s.recordAudit(ctx, notificationAuditEntry(n), port.OutcomeRejected, err, true)
		return &NotificationResult{OrderID: order.ID, Status: order.State}, s.fail(span, err)
	}

	// 7. 幂等守卫 + 状态机，由仓储在单个原子单元内完成
	result, err := s.orders.ApplyPaymentTransition(ctx, n.OrderID, n.TransactionID, target)
	if err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) {
			s.recordAudit(ctx, notificationAuditEntry(n), port.OutcomeRejected, err, true)
			return &NotificationResult{OrderID: order.ID, Status: order.State}, s.fail(span, err)
		}
		s.recordAudit(ctx, notificationAuditEntry(n), port.OutcomeRejected, err, false)
		return nil, s.fail(span, err)
	}

	outcome := port.OutcomeNoop
	switch {
	case result.Replayed:
		outcome = port.OutcomeReplayed
	case result.Applied:
		outcome = port.OutcomeApplied
	}
	s.recordAudit(ctx, notificationAuditEntry(n), outcome, nil, needsReview)

	// 8. 真实转移才对外广播状态变更
	if result.Applied {
		s.publishStateChanged(ctx, order.State, result.State, n)
	}

	logger.Ctx(ctx).Info().
		Str("order_id", n.OrderID).
		Str("transaction_id", n.TransactionID).
		Str("outcome", outcome).
		Str("state", string(result.State)).
		Msg("payment notification reconciled")

	return &NotificationResult{
		OrderID:  n.OrderID,
		Status:   result.State,
		Applied:  result.Applied,
		Replayed: result.Replayed,
	}, nil
}

// publishStateChanged 广播一次真实转移。发布失败只记日志：
// push 通道是尽力而为的，不允许影响已落盘的对账结果。
func (s *PaymentApplicationService) publishStateChanged(ctx context.Context, from, to domain.PaymentState, n *domain.Notification) {
	if s.events == nil {
		return
	}
	event := &domain.PaymentStateChanged{
		OrderID:       n.OrderID,
		TransactionID: n.TransactionID,
		From:          from,
		To:            to,
		At:            time.Now(),
	}
	if err := s.events.PublishStateChanged(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", n.OrderID).
			Msg("failed to publish payment state change")
	}
}

// recordAudit 落一条审计记录。审计通道故障不阻断主流程。
func (s *PaymentApplicationService) recordAudit(ctx context.Context, entry *port.AuditEntry, outcome string, cause error, review bool) {
	if s.audit == nil {
		return
	}
	entry.Outcome = outcome
	entry.Review = review
	if cause != nil {
		entry.Error = TaxonomyName(cause)
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", entry.OrderID).
			Msg("failed to record audit entry")
	}
}

func (s *PaymentApplicationService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, TaxonomyName(err))
	return err
}

func rawAuditEntry(raw *gateway.RawNotification) *port.AuditEntry {
	return &port.AuditEntry{
		ID:                uuid.New().String(),
		ReceivedAt:        time.Now(),
		OrderID:           raw.OrderID,
		TransactionID:     raw.TransactionID,
		TransactionStatus: raw.TransactionStatus,
		FraudStatus:       raw.FraudStatus,
		GrossAmount:       raw.GrossAmount,
		PaymentType:       raw.PaymentType,
	}
}

func notificationAuditEntry(n *domain.Notification) *port.AuditEntry {
	return &port.AuditEntry{
		ID:                uuid.New().String(),
		ReceivedAt:        n.ReceivedAt,
		OrderID:           n.OrderID,
		TransactionID:     n.TransactionID,
		TransactionStatus: n.TransactionStatus,
		FraudStatus:       n.FraudStatus,
		GrossAmount:       gatewayAmountString(n.GrossAmount, n.GrossAmountFraction),
		PaymentType:       n.PaymentType,
	}
}

// TaxonomyName 把哨兵错误映射为审计与应答中使用的分类名。
func TaxonomyName(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedNotification):
		return "MalformedNotification"
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return "AuthenticationFailed"
	case errors.Is(err, domain.ErrUnmappedStatus):
		return "UnmappedStatus"
	case errors.Is(err, domain.ErrIllegalTransition):
		return "IllegalTransition"
	case errors.Is(err, domain.ErrAmountMismatch):
		return "AmountMismatch"
	case errors.Is(err, domain.ErrOrderNotFound):
		return "OrderNotFound"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "StoreUnavailable"
	default:
		return "InternalError"
	}
}

// gatewayAmountString 把解析后的金额还原为网关风格的十进制字符串。
func gatewayAmountString(units, fraction int64) string {
	return fmt.Sprintf("%d.%02d", units, fraction)
}
