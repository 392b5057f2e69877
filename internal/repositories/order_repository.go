package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/b3nzuk3/gameCity-sub001/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

// RevenueStats summarizes paid orders for the admin dashboard.
type RevenueStats struct {
	TotalOrders   int64 `json:"total_orders"`
	PaidOrders    int64 `json:"paid_orders"`
	RevenueCents  int64 `json:"revenue_cents"`
	PendingOrders int64 `json:"pending_orders"`
	FailedOrders  int64 `json:"failed_orders"`
}

// OrderRepository is the order-update collaborator of the reconciliation
// engine. MarkPaid and MarkPaymentFailed are the only entry points through
// which payment results reach an order.
type OrderRepository interface {
	Create(order *models.Order) error
	FindByID(id string) (*models.Order, error)
	FindByUser(userID string, page, pageSize int) ([]models.Order, int64, error)
	MarkPaid(orderID string, paidAt time.Time) error
	MarkPaymentFailed(orderID string, reason string) error
	MarkCancelled(orderID string) error
	GetRevenueStats(since time.Time) (*RevenueStats, error)
}

type OrderRepositoryImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &OrderRepositoryImpl{db: db}
}

// Create stores the order and its items atomically.
func (r *OrderRepositoryImpl) Create(order *models.Order) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
}

func (r *OrderRepositoryImpl) FindByID(id string) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) FindByUser(userID string, page, pageSize int) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := r.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *OrderRepositoryImpl) MarkPaid(orderID string, paidAt time.Time) error {
	result := r.db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     models.OrderStatusPaid,
			"is_paid":    true,
			"paid_at":    paidAt,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepositoryImpl) MarkPaymentFailed(orderID string, reason string) error {
	result := r.db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusPaymentFailed,
			"failure_reason": reason,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepositoryImpl) MarkCancelled(orderID string) error {
	result := r.db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     models.OrderStatusCancelled,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepositoryImpl) GetRevenueStats(since time.Time) (*RevenueStats, error) {
	stats := &RevenueStats{}

	base := r.db.Model(&models.Order{}).Where("created_at >= ?", since)

	if err := base.Session(&gorm.Session{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("status = ?", models.OrderStatusPaid).
		Count(&stats.PaidOrders).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("status = ?", models.OrderStatusPendingPayment).
		Count(&stats.PendingOrders).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("status = ?", models.OrderStatusPaymentFailed).
		Count(&stats.FailedOrders).Error; err != nil {
		return nil, err
	}

	var revenue *int64
	err := r.db.Model(&models.Order{}).
		Where("created_at >= ? AND status = ?", since, models.OrderStatusPaid).
		Select("SUM(total_cents)").
		Scan(&revenue).Error
	if err != nil {
		return nil, err
	}
	if revenue != nil {
		stats.RevenueCents = *revenue
	}

	return stats, nil
}
