// internal/service/payment/infrastructure/mapper.go
package infrastructure

import (
	"database/sql"
	"strings"

	"banquet/internal/service/payment/domain"
)

// ToDomainOrder 将数据库模型转换为领域聚合
func ToDomainOrder(model *OrderModel, transitions []TransitionModel) *domain.Order {
	if model == nil {
		return nil
	}
	order := &domain.Order{
		ID:                model.OrderID,
		CustomerName:      model.CustomerName,
		GrossAmount:       model.GrossAmount,
		Currency:          model.Currency,
		State:             domain.PaymentState(model.State),
		LastTransactionID: model.LastTransactionID.String,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
	if model.Items != "" {
		order.Items = strings.Split(model.Items, ",")
	}
	for _, t := range transitions {
		order.History = append(order.History, domain.Transition{
			From:          domain.PaymentState(t.FromState),
			To:            domain.PaymentState(t.ToState),
			TransactionID: t.TransactionID,
			At:            t.OccurredAt,
		})
	}
	return order
}

// ToOrderModel 将领域聚合转换为数据库模型（不含历史，历史单独落表）
func ToOrderModel(order *domain.Order) *OrderModel {
	model := &OrderModel{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		Items:        strings.Join(order.Items, ","),
		GrossAmount:  order.GrossAmount,
		Currency:     order.Currency,
		State:        string(order.State),
	}
	if order.LastTransactionID != "" {
		model.LastTransactionID = sql.NullString{String: order.LastTransactionID, Valid: true}
	}
	return model
}
