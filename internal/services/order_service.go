package services

import (
	"time"

	"github.com/b3nzuk3/gameCity-sub001/internal/logger"
	"github.com/b3nzuk3/gameCity-sub001/internal/models"
	"github.com/b3nzuk3/gameCity-sub001/internal/repositories"
	"github.com/b3nzuk3/gameCity-sub001/internal/utils"
	"github.com/b3nzuk3/gameCity-sub001/pkg/apperrors"
)

type OrderItemInput struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0,lte=50"`
}

type CreateOrderInput struct {
	Items []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

type OrderListResponse struct {
	Orders   []models.Order `json:"orders"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type AdminStatsResponse struct {
	TotalUsers    int64  `json:"total_users"`
	TotalOrders   int64  `json:"total_orders"`
	PaidOrders    int64  `json:"paid_orders"`
	PendingOrders int64  `json:"pending_orders"`
	FailedOrders  int64  `json:"failed_orders"`
	RevenueCents  int64  `json:"revenue_cents"`
	RevenueHuman  string `json:"revenue"`
	WindowSince   string `json:"window_since"`
}

type OrderService interface {
	CreateOrder(userID string, input CreateOrderInput) (*models.Order, error)
	GetOrder(userID, orderID string, isAdmin bool) (*models.Order, error)
	ListUserOrders(userID string, page, pageSize int) (*OrderListResponse, error)
	GetAdminStats(since time.Time) (*AdminStatsResponse, error)
}

type OrderServiceImpl struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
}

func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
) OrderService {
	return &OrderServiceImpl{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
	}
}

// CreateOrder builds an order from current catalog prices. Each line snapshots
// the product name and unit price so the charged total is immutable from the
// moment the order exists.
func (s *OrderServiceImpl) CreateOrder(userID string, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.ErrEmptyOrder
	}

	order := &models.Order{
		UserID:   userID,
		Status:   models.OrderStatusPendingPayment,
		Currency: "KES",
	}

	for _, item := range input.Items {
		product, err := s.productRepo.FindByID(item.ProductID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrProductNotFound) {
				return nil, apperrors.ErrProductNotFound
			}
			return nil, apperrors.InternalError(err)
		}
		if !product.IsActive {
			return nil, apperrors.ErrInvalidOperation("order", "Product is not available: "+product.Name)
		}
		if product.Stock < item.Quantity {
			return nil, apperrors.ErrInvalidOperation("order", "Insufficient stock for: "+product.Name)
		}

		order.Items = append(order.Items, models.OrderItem{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Quantity:       item.Quantity,
		})
		order.TotalCents += product.PriceCents * int64(item.Quantity)
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.Info("order created",
		"order_id", order.ID,
		"user_id", userID,
		"total_cents", order.TotalCents,
		"items", len(order.Items),
	)
	return order, nil
}

func (s *OrderServiceImpl) GetOrder(userID, orderID string, isAdmin bool) (*models.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrOrderNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	if !isAdmin && order.UserID != userID {
		// Hidden rather than forbidden so order ids are not probeable.
		return nil, apperrors.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderServiceImpl) ListUserOrders(userID string, page, pageSize int) (*OrderListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	orders, total, err := s.orderRepo.FindByUser(userID, page, pageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &OrderListResponse{
		Orders:   orders,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *OrderServiceImpl) GetAdminStats(since time.Time) (*AdminStatsResponse, error) {
	stats, err := s.orderRepo.GetRevenueStats(since)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	totalUsers, err := s.userRepo.Count()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &AdminStatsResponse{
		TotalUsers:    totalUsers,
		TotalOrders:   stats.TotalOrders,
		PaidOrders:    stats.PaidOrders,
		PendingOrders: stats.PendingOrders,
		FailedOrders:  stats.FailedOrders,
		RevenueCents:  stats.RevenueCents,
		RevenueHuman:  utils.FormatCents(stats.RevenueCents, "KES"),
		WindowSince:   since.Format(time.RFC3339),
	}, nil
}
