// internal/service/payment/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"banquet/internal/pkg/logger"
	"banquet/internal/service/payment/application"
	"banquet/internal/service/payment/domain"
	"banquet/internal/service/payment/gateway"
)

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "payment_notifications_total",
	Help: "Inbound gateway notifications by reconciliation outcome.",
}, []string{"outcome"})

// PaymentHandler 封装了支付服务的 HTTP 处理器
type PaymentHandler struct {
	payments *application.PaymentApplicationService
	booking  *application.BookingApplicationService
}

// NewPaymentHandler 创建一个新的 HTTP 处理器实例
func NewPaymentHandler(payments *application.PaymentApplicationService, booking *application.BookingApplicationService) *PaymentHandler {
	return &PaymentHandler{payments: payments, booking: booking}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	// 存活探针：纯 GET，无任何副作用，供外部监控使用
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/payment/notification", h.notificationHandler)
	mux.HandleFunc("POST /api/orders", h.createOrderHandler)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrderHandler)
}

// notificationResponse 是应答网关的报文。
// 成功时回显订单号与规范状态；被确认但未应用的通知额外带 error 字段。
type notificationResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// notificationHandler 是网关回调入口。
// 状态码约定：网关把一切非 2xx 视为"稍后重试"，所以只有希望网关
// 重投的错误（存储故障）才返回 5xx；已认证但永远无法应用的通知
//（状态无法翻译、金额不符、非法转移）用 200 确认并靠审计标记兜底，
// 避免把永久拒绝变成无限重投。
func (h *PaymentHandler) notificationHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var raw gateway.RawNotification
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		notificationsTotal.WithLabelValues("MalformedNotification").Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	result, err := h.payments.ReconcileNotification(ctx, &raw)
	if err == nil {
		notificationsTotal.WithLabelValues(outcomeLabel(result)).Inc()
		writeJSON(w, http.StatusOK, notificationResponse{
			OrderID: result.OrderID,
			Status:  string(result.Status),
		})
		return
	}

	name := application.TaxonomyName(err)
	notificationsTotal.WithLabelValues(name).Inc()

	switch {
	case errors.Is(err, domain.ErrMalformedNotification):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrAuthenticationFailed):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "signature verification failed"})
	case errors.Is(err, domain.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUnmappedStatus),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrIllegalTransition):
		// 已认证的永久拒绝：确认收到，订单状态保持原样
		resp := notificationResponse{Error: name}
		if result != nil {
			resp.OrderID = result.OrderID
			resp.Status = string(result.Status)
		} else {
			resp.OrderID = raw.OrderID
		}
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "order store unavailable, retry later"})
	default:
		logger.Ctx(ctx).Error().Err(err).Msg("unexpected reconciliation failure")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *PaymentHandler) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	view, err := h.booking.CreateOrder(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "order store unavailable"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *PaymentHandler) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.booking.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "order store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func outcomeLabel(result *application.NotificationResult) string {
	switch {
	case result.Replayed:
		return "replayed"
	case result.Applied:
		return "applied"
	default:
		return "noop"
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
