// internal/service/payment/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"banquet/internal/service/payment/domain"
)

// GormOrderRepository 是 OrderRepository 的 GORM/MySQL 实现。
// 幂等台账和订单状态落在同一个数据库事务里，崩溃不会产生
// "台账有、状态无"（或反之）的半提交。
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例并迁移表结构。
func NewGormOrderRepository(db *gorm.DB) (*GormOrderRepository, error) {
	if err := db.AutoMigrate(&OrderModel{}, &TransitionModel{}, &AppliedTransactionModel{}); err != nil {
		return nil, fmt.Errorf("migrate payment tables: %w", err)
	}
	return &GormOrderRepository{db: db}, nil
}

func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	if err := r.db.WithContext(ctx).Create(ToOrderModel(order)).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("order_id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, storeErr(err)
	}

	var transitions []TransitionModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("id asc").
		Find(&transitions).Error; err != nil {
		return nil, storeErr(err)
	}
	return ToDomainOrder(&model, transitions), nil
}

// ApplyPaymentTransition 在单个数据库事务内完成：
//  1. 台账查询（命中则重放短路，事务内无写入）；
//  2. 行锁加载订单并由领域状态机裁决；
//  3. 台账插入 + 订单状态更新 + 历史追加。
//
// 台账表上的复合唯一键兜底并发下的重复插入。
func (r *GormOrderRepository) ApplyPaymentTransition(ctx context.Context, orderID, transactionID string, to domain.PaymentState) (*domain.ApplyResult, error) {
	var result *domain.ApplyResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 幂等守卫
		var ledger AppliedTransactionModel
		err := tx.Where("order_id = ? AND transaction_id = ?", orderID, transactionID).
			First(&ledger).Error
		if err == nil {
			result = &domain.ApplyResult{
				State:    domain.PaymentState(ledger.ResultState),
				Replayed: true,
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 2. 行锁加载订单
		var model OrderModel
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", orderID).
			First(&model).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrOrderNotFound
			}
			return err
		}

		order := ToDomainOrder(&model, nil)
		applied, err := order.ApplyTransition(transactionID, to)
		if err != nil {
			return err // 非法转移，整个事务回滚（本就没有写入）
		}

		// 3. 台账、状态、历史在同一事务内落盘
		if err := tx.Create(&AppliedTransactionModel{
			OrderID:       orderID,
			TransactionID: transactionID,
			ResultState:   string(order.State),
		}).Error; err != nil {
			return err
		}
		if applied {
			latest := order.History[len(order.History)-1]
			if err := tx.Model(&OrderModel{}).
				Where("order_id = ?", orderID).
				Updates(map[string]interface{}{
					"state":               string(order.State),
					"last_transaction_id": sql.NullString{String: transactionID, Valid: true},
				}).Error; err != nil {
				return err
			}
			if err := tx.Create(&TransitionModel{
				OrderID:       orderID,
				FromState:     string(latest.From),
				ToState:       string(latest.To),
				TransactionID: transactionID,
				OccurredAt:    latest.At,
			}).Error; err != nil {
				return err
			}
		}

		result = &domain.ApplyResult{State: order.State, Applied: applied}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) || errors.Is(err, domain.ErrIllegalTransition) {
			return nil, err
		}
		// 台账查询发生在拿到行锁之前，同一 (订单, 交易) 的两个并发事务
		// 可能都未命中台账，后提交者会撞上台账的复合唯一键。
		// 此时对方已先落账，重新读台账按重放应答。
		if isDuplicateKey(err) {
			var ledger AppliedTransactionModel
			lookupErr := r.db.WithContext(ctx).
				Where("order_id = ? AND transaction_id = ?", orderID, transactionID).
				First(&ledger).Error
			if lookupErr == nil {
				return &domain.ApplyResult{
					State:    domain.PaymentState(ledger.ResultState),
					Replayed: true,
				}, nil
			}
		}
		return nil, storeErr(err)
	}
	return result, nil
}

// isDuplicateKey 识别 MySQL 的唯一键冲突 (错误码 1062)。
func isDuplicateKey(err error) bool {
	var mysqlErr *gomysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// storeErr 把底层数据库错误归类为临时性的存储不可用，
// 接收端据此返回可重试状态码，交由网关的重投机制兜底。
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
