package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"banquet/internal/service/payment/domain"
	"banquet/internal/service/payment/gateway"
	"banquet/internal/service/payment/infrastructure"
	"banquet/internal/service/payment/port"
)

const testServerKey = "unit-test-server-key"

// fakeAuditTrail 把审计记录收进内存，供断言使用
type fakeAuditTrail struct {
	mu      sync.Mutex
	entries []*port.AuditEntry
}

func (f *fakeAuditTrail) Record(ctx context.Context, entry *port.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditTrail) last(t *testing.T) *port.AuditEntry {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.entries)
	return f.entries[len(f.entries)-1]
}

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []*domain.PaymentStateChanged
}

func (f *fakeEventPublisher) PublishStateChanged(ctx context.Context, event *domain.PaymentStateChanged) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventPublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fixture struct {
	svc    *PaymentApplicationService
	repo   *infrastructure.MemoryOrderRepository
	audit  *fakeAuditTrail
	events *fakeEventPublisher
	signer *gateway.SignatureVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := infrastructure.NewMemoryOrderRepository()
	audit := &fakeAuditTrail{}
	events := &fakeEventPublisher{}
	verifier := gateway.NewSignatureVerifier(testServerKey)
	review, err := infrastructure.NewCelReviewPolicy("")
	require.NoError(t, err)

	svc := NewPaymentApplicationService(
		repo, verifier, infrastructure.NewLocalOrderLocker(),
		audit, events, review, otel.Tracer("test"),
	)
	return &fixture{svc: svc, repo: repo, audit: audit, events: events, signer: verifier}
}

// seedOrder 用固定编号入库一个待支付订单
func (f *fixture) seedOrder(t *testing.T, id string, amount int64) {
	t.Helper()
	order, err := domain.NewOrder("测试客户", []string{"宴会套餐 A"}, amount, "IDR")
	require.NoError(t, err)
	order.ID = id
	require.NoError(t, f.repo.Save(context.Background(), order))
}

// signedRaw 构造一条签名正确的回调报文
func (f *fixture) signedRaw(orderID, txnID, status, fraud, amount string) *gateway.RawNotification {
	raw := &gateway.RawNotification{
		TransactionID:     txnID,
		OrderID:           orderID,
		TransactionStatus: status,
		FraudStatus:       fraud,
		StatusCode:        "200",
		GrossAmount:       amount,
		Currency:          "IDR",
		PaymentType:       "credit_card",
		TransactionTime:   time.Now().Format("2006-01-02 15:04:05"),
	}
	raw.SignatureKey = f.signer.Sign(raw.OrderID, raw.StatusCode, raw.GrossAmount)
	return raw
}

func (f *fixture) mustFind(t *testing.T, id string) *domain.Order {
	t.Helper()
	order, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return order
}

// 正常结算：capture/accept 的通知把待支付订单推进到已结算
func TestReconcile_SettlesPendingOrder(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-100", 500000)

	raw := f.signedRaw("ORD-100", "TXN-1", "capture", "accept", "500000.00")
	result, err := f.svc.ReconcileNotification(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSettled, result.Status)
	assert.True(t, result.Applied)
	assert.False(t, result.Replayed)

	order := f.mustFind(t, "ORD-100")
	assert.Equal(t, domain.StateSettled, order.State)
	assert.Equal(t, "TXN-1", order.LastTransactionID)
	require.Len(t, order.History, 1)
	assert.Equal(t, domain.StatePending, order.History[0].From)
	assert.Equal(t, domain.StateSettled, order.History[0].To)

	entry := f.audit.last(t)
	assert.Equal(t, port.OutcomeApplied, entry.Outcome)
	assert.Empty(t, entry.Error)
	assert.Equal(t, 1, f.events.count())
}

// 原样重投同一笔交易：成功应答，但状态与历史不再变化
func TestReconcile_RedeliveryIsReplayed(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-100", 500000)

	raw := f.signedRaw("ORD-100", "TXN-1", "capture", "accept", "500000.00")
	_, err := f.svc.ReconcileNotification(context.Background(), raw)
	require.NoError(t, err)

	result, err := f.svc.ReconcileNotification(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSettled, result.Status)
	assert.True(t, result.Replayed)
	assert.False(t, result.Applied)

	order := f.mustFind(t, "ORD-100")
	assert.Len(t, order.History, 1)
	assert.Equal(t, port.OutcomeReplayed, f.audit.last(t).Outcome)
	// 重放不重复广播
	assert.Equal(t, 1, f.events.count())
}

// 金额不符：拒绝且订单保持待支付，审计记录在案
func TestReconcile_AmountMismatch(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-100", 500000)

	raw := f.signedRaw("ORD-100", "TXN-2", "capture", "accept", "450000.00")
	result, err := f.svc.ReconcileNotification(context.Background(), raw)
	require.ErrorIs(t, err, domain.ErrAmountMismatch)
	require.NotNil(t, result)
	assert.Equal(t, domain.StatePending, result.Status)

	order := f.mustFind(t, "ORD-100")
	assert.Equal(t, domain.StatePending, order.State)
	assert.Empty(t, order.History)

	entry := f.audit.last(t)
	assert.Equal(t, port.OutcomeRejected, entry.Outcome)
	assert.Equal(t, "AmountMismatch", entry.Error)
	assert.True(t, entry.Review)
}

// 带小数的上报金额：订单应付金额是整数，差一个零头也必须拒绝
func TestReconcile_FractionalAmountMismatch(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-100", 500000)
	f.seedOrder(t, "ORD-SMALL", 100)

	tests := []struct {
		name      string
		orderID   string
		amount    string
		wantAudit string
	}{
		{"四舍五入到应付金额以内", "ORD-100", "500000.40", "500000.40"},
		{"一位小数写法", "ORD-100", "500000.4", "500000.40"},
		{"小额订单带零头", "ORD-SMALL", "100.50", "100.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := f.signedRaw(tt.orderID, "TXN-"+tt.name, "capture", "accept", tt.amount)
			result, err := f.svc.ReconcileNotification(context.Background(), raw)
			require.ErrorIs(t, err, domain.ErrAmountMismatch)
			require.NotNil(t, result)
			assert.Equal(t, domain.StatePending, result.Status)

			order := f.mustFind(t, tt.orderID)
			assert.Equal(t, domain.StatePending, order.State)
			assert.Empty(t, order.History)

			entry := f.audit.last(t)
			assert.Equal(t, "AmountMismatch", entry.Error)
			assert.Equal(t, tt.wantAudit, entry.GrossAmount, "审计必须保留上报金额的小数")
		})
	}
}

// 已拒绝订单收到结算通知：非法转移，终态不可变
func TestReconcile_IllegalTransitionFromDenied(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-100", 500000)

	deny := f.signedRaw("ORD-100", "TXN-1", "deny", "", "500000.00")
	_, err := f.svc.ReconcileNotification(context.Background(), deny)
	require.NoError(t, err)

	settle := f.signedRaw("ORD-100", "TXN-2", "capture", "accept", "500000.00")
	result, err := f.svc.ReconcileNotification(context.Background(), settle)
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	require.NotNil(t, result)
	assert.Equal(t, domain.StateDenied, result.Status)

	order := f.mustFind(t, "ORD-100")
	assert.Equal(t, domain.StateDenied, order.State)
	assert.Len(t, order.History, 1)
	assert.Equal(t, "IllegalTransition", f.audit.last(t).Error)
}

// 签名不符：硬拒绝，订单状态与历史完全不被触碰
func TestReconcile_BadSignatureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-100", 500000)

	raw := f.signedRaw("ORD-100", "TXN-1", "capture", "accept", "500000.00")
	raw.SignatureKey = "deadbeef"
	result, err := f.svc.ReconcileNotification(context.Background(), raw)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	assert.Nil(t, result)

	order := f.mustFind(t, "ORD-100")
	assert.Equal(t, domain.StatePending, order.State)
	assert.Empty(t, order.History)
	assert.Equal(t, 0, f.events.count())

	entry := f.audit.last(t)
	assert.Equal(t, port.OutcomeRejected, entry.Outcome)
	assert.Equal(t, "AuthenticationFailed", entry.Error)
}

// 结构缺陷：缺必填字段按报文畸形拒绝
func TestReconcile_MalformedNotification(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-100", 500000)

	raw := f.signedRaw("ORD-100", "", "capture", "accept", "500000.00")
	_, err := f.svc.ReconcileNotification(context.Background(), raw)
	require.ErrorIs(t, err, domain.ErrMalformedNotification)
	assert.Equal(t, "MalformedNotification", f.audit.last(t).Error)
}

// 未知状态词汇：应答网关、不碰订单、强制复核
func TestReconcile_UnmappedStatus(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-100", 500000)

	raw := f.signedRaw("ORD-100", "TXN-1", "chargeback", "", "500000.00")
	result, err := f.svc.ReconcileNotification(context.Background(), raw)
	require.ErrorIs(t, err, domain.ErrUnmappedStatus)
	require.NotNil(t, result)
	assert.Equal(t, "ORD-100", result.OrderID)

	order := f.mustFind(t, "ORD-100")
	assert.Equal(t, domain.StatePending, order.State)

	entry := f.audit.last(t)
	assert.True(t, entry.Review)
	assert.Equal(t, "UnmappedStatus", entry.Error)
}

// 未知订单号：拒绝并留审计
func TestReconcile_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	raw := f.signedRaw("ORD-404", "TXN-1", "capture", "accept", "500000.00")
	result, err := f.svc.ReconcileNotification(context.Background(), raw)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Nil(t, result)
	assert.Equal(t, "OrderNotFound", f.audit.last(t).Error)
}

// 同一状态的另一笔交易：空操作，但同样入幂等台账
func TestReconcile_DuplicateTargetIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-100", 500000)

	_, err := f.svc.ReconcileNotification(context.Background(),
		f.signedRaw("ORD-100", "TXN-1", "capture", "accept", "500000.00"))
	require.NoError(t, err)

	result, err := f.svc.ReconcileNotification(context.Background(),
		f.signedRaw("ORD-100", "TXN-2", "settlement", "", "500000.00"))
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.False(t, result.Replayed)
	assert.Equal(t, domain.StateSettled, result.Status)

	order := f.mustFind(t, "ORD-100")
	assert.Len(t, order.History, 1)
	assert.Equal(t, port.OutcomeNoop, f.audit.last(t).Outcome)
	assert.Equal(t, 1, f.events.count())
}

// 授权后结算，再退款：多段生命周期依次推进
func TestReconcile_AuthorizeThenSettleThenRefund(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-200", 800000)

	steps := []struct {
		txnID  string
		status string
		fraud  string
		want   domain.PaymentState
	}{
		{"TXN-A", "authorize", "accept", domain.StateAuthorized},
		{"TXN-B", "settlement", "", domain.StateSettled},
		{"TXN-C", "refund", "", domain.StateRefunded},
	}
	for _, step := range steps {
		result, err := f.svc.ReconcileNotification(context.Background(),
			f.signedRaw("ORD-200", step.txnID, step.status, step.fraud, "800000.00"))
		require.NoError(t, err, "step %s", step.status)
		assert.Equal(t, step.want, result.Status)
		assert.True(t, result.Applied)
	}

	order := f.mustFind(t, "ORD-200")
	assert.Len(t, order.History, 3)
	assert.Equal(t, 3, f.events.count())
}

// 不同订单的通知可以并发处理，互不串扰
func TestReconcile_ConcurrentDistinctOrders(t *testing.T) {
	f := newFixture(t)
	ids := []string{"ORD-C1", "ORD-C2", "ORD-C3", "ORD-C4"}
	for _, id := range ids {
		f.seedOrder(t, id, 300000)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(orderID string) {
			defer wg.Done()
			_, err := f.svc.ReconcileNotification(context.Background(),
				f.signedRaw(orderID, "TXN-"+orderID, "capture", "accept", "300000.00"))
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	for _, id := range ids {
		assert.Equal(t, domain.StateSettled, f.mustFind(t, id).State)
	}
}

// 同一订单并发收到两笔同目标交易：恰好一笔真实转移
func TestReconcile_ConcurrentSameOrderAppliesOnce(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-300", 500000)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan *NotificationResult, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw := f.signedRaw("ORD-300", "TXN-1", "capture", "accept", "500000.00")
			result, err := f.svc.ReconcileNotification(context.Background(), raw)
			if err == nil {
				results <- result
			}
		}(i)
	}
	wg.Wait()
	close(results)

	applied := 0
	for result := range results {
		if result.Applied {
			applied++
		}
		assert.Equal(t, domain.StateSettled, result.Status)
	}
	assert.Equal(t, 1, applied)
	assert.Len(t, f.mustFind(t, "ORD-300").History, 1)
}

// failingOrderRepository 在加载订单时模拟存储故障
type failingOrderRepository struct {
	*infrastructure.MemoryOrderRepository
}

func (r *failingOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return nil, fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
}

// 存储临时故障：向网关报可重试错误，但本条通知同样要留审计
func TestReconcile_StoreFailureIsAudited(t *testing.T) {
	audit := &fakeAuditTrail{}
	verifier := gateway.NewSignatureVerifier(testServerKey)
	review, err := infrastructure.NewCelReviewPolicy("")
	require.NoError(t, err)
	svc := NewPaymentApplicationService(
		&failingOrderRepository{infrastructure.NewMemoryOrderRepository()},
		verifier, infrastructure.NewLocalOrderLocker(),
		audit, nil, review, otel.Tracer("test"),
	)

	raw := &gateway.RawNotification{
		TransactionID:     "TXN-1",
		OrderID:           "ORD-100",
		TransactionStatus: "capture",
		FraudStatus:       "accept",
		StatusCode:        "200",
		GrossAmount:       "500000.00",
	}
	raw.SignatureKey = verifier.Sign(raw.OrderID, raw.StatusCode, raw.GrossAmount)

	_, err = svc.ReconcileNotification(context.Background(), raw)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	entry := audit.last(t)
	assert.Equal(t, port.OutcomeRejected, entry.Outcome)
	assert.Equal(t, "StoreUnavailable", entry.Error)
	assert.False(t, entry.Review)
}

// 大额交易触发默认复核规则，但不影响对账结果
func TestReconcile_LargeAmountFlaggedForReview(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-BIG", 20000000)

	result, err := f.svc.ReconcileNotification(context.Background(),
		f.signedRaw("ORD-BIG", "TXN-1", "capture", "accept", "20000000.00"))
	require.NoError(t, err)
	assert.True(t, result.Applied)

	entry := f.audit.last(t)
	assert.Equal(t, port.OutcomeApplied, entry.Outcome)
	assert.True(t, entry.Review)
}
