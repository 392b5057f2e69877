package services

import (
	"gorm.io/gorm"

	"github.com/b3nzuk3/gameCity-sub001/internal/email"
	"github.com/b3nzuk3/gameCity-sub001/internal/repositories"
)

// ServiceContainer wires every service with its repositories. Built once at
// startup and handed to the handler layer.
type ServiceContainer struct {
	Auth    AuthService
	Product ProductService
	Order   OrderService
	Payment PaymentService
}

func NewServiceContainer(db *gorm.DB, gateway MpesaGateway, emailProvider email.Provider) *ServiceContainer {
	userRepo := repositories.NewUserRepository(db)
	tokenRepo := repositories.NewRefreshTokenRepository(db)
	productRepo := repositories.NewProductRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	ledger := repositories.NewLedgerRepository(db)

	return &ServiceContainer{
		Auth:    NewAuthService(userRepo, tokenRepo),
		Product: NewProductService(productRepo),
		Order:   NewOrderService(orderRepo, productRepo, userRepo),
		Payment: NewPaymentService(ledger, orderRepo, userRepo, gateway, emailProvider),
	}
}
