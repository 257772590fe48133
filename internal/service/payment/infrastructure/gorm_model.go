// internal/service/payment/infrastructure/gorm_model.go
package infrastructure

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// OrderModel 对应数据库中的 booking_order 表
type OrderModel struct {
	gorm.Model
	OrderID      string `gorm:"uniqueIndex;size:64"`
	CustomerName string
	Items        string `gorm:"type:text"` // 逗号分隔存储
	GrossAmount  int64
	Currency     string `gorm:"size:8"`
	State        string `gorm:"size:16;index"`
	// 最近一次真实转移对应的网关交易号
	LastTransactionID sql.NullString `gorm:"size:64"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "booking_order"
}

// TransitionModel 对应数据库中的 payment_transition 表。
// 只追加，配合 booking_order 构成订单的状态转移历史。
type TransitionModel struct {
	gorm.Model
	OrderID       string `gorm:"index;size:64"`
	FromState     string `gorm:"size:16"`
	ToState       string `gorm:"size:16"`
	TransactionID string `gorm:"size:64"`
	OccurredAt    time.Time
}

// TableName 指定 GORM 应该使用的表名
func (TransitionModel) TableName() string {
	return "payment_transition"
}

// AppliedTransactionModel 对应数据库中的 applied_transaction 表，
// 即幂等台账：每个 (订单, 网关交易) 对至多一条，创建后不再变更。
type AppliedTransactionModel struct {
	gorm.Model
	OrderID       string `gorm:"size:64;uniqueIndex:uk_order_transaction,priority:1"`
	TransactionID string `gorm:"size:64;uniqueIndex:uk_order_transaction,priority:2"`
	ResultState   string `gorm:"size:16"`
}

// TableName 指定 GORM 应该使用的表名
func (AppliedTransactionModel) TableName() string {
	return "applied_transaction"
}
