package handlers

import (
	"github.com/b3nzuk3/gameCity-sub001/internal/services"
	"github.com/b3nzuk3/gameCity-sub001/internal/validator"
)

// AppHandlers groups every HTTP handler for route registration.
type AppHandlers struct {
	Auth    *AuthHandler
	Product *ProductHandler
	Order   *OrderHandler
	Payment *PaymentHandler
}

func NewAppHandlers(container *services.ServiceContainer, v *validator.Validator) *AppHandlers {
	base := NewBaseHandler(v)

	return &AppHandlers{
		Auth:    NewAuthHandler(base, container.Auth),
		Product: NewProductHandler(base, container.Product),
		Order:   NewOrderHandler(base, container.Order),
		Payment: NewPaymentHandler(base, container.Payment),
	}
}
