package validator

import (
	"log"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/b3nzuk3/gameCity-sub001/internal/models"
)

// msisdnPattern matches Kenyan mobile numbers in the international format
// the Daraja API expects: 2547XXXXXXXX or 2541XXXXXXXX.
var msisdnPattern = regexp.MustCompile(`^254(7|1)\d{8}$`)

// registerCustomRules installs all custom validation tags.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// A rule that fails to register is a startup bug.
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-order-status", validateOrderStatus)
	mustRegister("is-payment-status", validatePaymentStatus)
	mustRegister("is-msisdn", validateMSISDN)
}

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // empty is handled by 'required'
	}
	switch models.UserRole(value) {
	case models.UserRoleCustomer, models.UserRoleAdmin:
		return true
	default:
		return false
	}
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.OrderStatus(value) {
	case models.OrderStatusPendingPayment, models.OrderStatusPaid,
		models.OrderStatusPaymentFailed, models.OrderStatusCancelled:
		return true
	default:
		return false
	}
}

func validatePaymentStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.PaymentStatus(value) {
	case models.PaymentStatusPending, models.PaymentStatusPaid,
		models.PaymentStatusFailed, models.PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

func validateMSISDN(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return msisdnPattern.MatchString(value)
}
