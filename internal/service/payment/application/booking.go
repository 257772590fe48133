// internal/service/payment/application/booking.go
package application

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"banquet/internal/pkg/logger"
	"banquet/internal/service/payment/domain"
)

// BookingApplicationService 负责预订订单的创建与查询。
// 订单在任何网关通知到达之前创建，应付金额随之确定。
// 该服务对支付状态只读——写入权完全归对账流程所有。
type BookingApplicationService struct {
	orders domain.OrderRepository
	tracer trace.Tracer
}

func NewBookingApplicationService(orders domain.OrderRepository, tracer trace.Tracer) *BookingApplicationService {
	return &BookingApplicationService{orders: orders, tracer: tracer}
}

// CreateOrder 创建一个 pending 状态的预订订单。
func (s *BookingApplicationService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "booking.CreateOrder")
	defer span.End()

	order, err := domain.NewOrder(req.CustomerName, req.Items, req.GrossAmount, req.Currency)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid order request")
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save order")
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Int64("gross_amount", order.GrossAmount).
		Msg("booking order created")
	return ToOrderView(order), nil
}

// GetOrder 返回订单的只读视图，供 UI 层展示支付状态。
func (s *BookingApplicationService) GetOrder(ctx context.Context, orderID string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "booking.GetOrder")
	defer span.End()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ToOrderView(order), nil
}
