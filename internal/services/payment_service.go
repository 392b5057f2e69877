package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/b3nzuk3/gameCity-sub001/internal/email"
	"github.com/b3nzuk3/gameCity-sub001/internal/logger"
	"github.com/b3nzuk3/gameCity-sub001/internal/models"
	"github.com/b3nzuk3/gameCity-sub001/internal/mpesa"
	"github.com/b3nzuk3/gameCity-sub001/internal/repositories"
	"github.com/b3nzuk3/gameCity-sub001/internal/utils"
	"github.com/b3nzuk3/gameCity-sub001/pkg/apperrors"
)

// MpesaGateway is the slice of the Daraja client the payment service needs.
// Narrowed to an interface so tests can stub the provider.
type MpesaGateway interface {
	STKPush(ctx context.Context, input mpesa.STKPushInput) (*mpesa.STKPushResponse, error)
}

type CheckoutResponse struct {
	RequestID         string `json:"request_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	CustomerMessage   string `json:"customer_message"`
}

type PaymentStatusResponse struct {
	OrderID     string               `json:"order_id"`
	Status      models.PaymentStatus `json:"status"`
	AmountCents int64                `json:"amount_cents"`
	Receipt     string               `json:"receipt,omitempty"`
	ConfirmedAt *time.Time           `json:"confirmed_at,omitempty"`
}

// PaymentService owns the payment ledger: checkout initiation, provider
// callback reconciliation, cancellation, the status read path, and the
// order-propagation retry used by the background sweep.
type PaymentService interface {
	InitiateCheckout(ctx context.Context, userID, orderID, phoneNumber string) (*CheckoutResponse, error)
	ProcessCallback(ctx context.Context, rawPayload []byte) error
	CancelPayment(orderID string) error
	GetStatus(orderID string) (*PaymentStatusResponse, error)
	GetCallbackTrail(checkoutRequestID string) ([]models.CallbackLog, error)
	RetryOrderPropagation(limit int) (int, error)
}

type PaymentServiceImpl struct {
	ledger        repositories.LedgerRepository
	orderRepo     repositories.OrderRepository
	userRepo      repositories.UserRepository
	gateway       MpesaGateway
	emailProvider email.Provider
}

func NewPaymentService(
	ledger repositories.LedgerRepository,
	orderRepo repositories.OrderRepository,
	userRepo repositories.UserRepository,
	gateway MpesaGateway,
	emailProvider email.Provider,
) PaymentService {
	return &PaymentServiceImpl{
		ledger:        ledger,
		orderRepo:     orderRepo,
		userRepo:      userRepo,
		gateway:       gateway,
		emailProvider: emailProvider,
	}
}

// InitiateCheckout creates the pending ledger entry for the order and fires
// the STK push. The returned request id is the checkout token the storefront
// polls with.
func (s *PaymentServiceImpl) InitiateCheckout(ctx context.Context, userID, orderID, phoneNumber string) (*CheckoutResponse, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrOrderNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	if order.UserID != userID {
		return nil, apperrors.NewForbiddenError("Order belongs to another user")
	}
	if order.IsPaid {
		return nil, apperrors.ErrDuplicatePayment
	}

	txn, err := s.ledger.CreateTransaction(orderID, order.TotalCents, phoneNumber)
	if err != nil {
		if apperrors.Is(err, repositories.ErrDuplicatePayment) {
			return nil, apperrors.ErrDuplicatePayment
		}
		return nil, apperrors.InternalError(err)
	}

	stkResp, err := s.gateway.STKPush(ctx, mpesa.STKPushInput{
		AmountCents:      order.TotalCents,
		PhoneNumber:      phoneNumber,
		AccountReference: txn.RequestID,
		Description:      "gameCity order " + orderID,
	})
	if err != nil {
		// No callback will ever arrive for this attempt; settle it so the
		// customer can retry checkout.
		logger.CtxWithError(ctx, "stk push failed, cancelling transaction", err,
			"request_id", txn.RequestID, "order_id", orderID)
		if _, cancelErr := s.ledger.ApplyTransition(txn.RequestID, models.PaymentStatusCancelled,
			nil, nil, "stk push failed", nil); cancelErr != nil {
			logger.Error("failed to cancel transaction after stk failure",
				"request_id", txn.RequestID, "error", cancelErr)
		}
		return nil, apperrors.ErrMpesaError.WithError(err)
	}

	if err := s.ledger.SetCheckoutRequestID(txn.RequestID, stkResp.CheckoutRequestID); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "stk push accepted",
		"request_id", txn.RequestID,
		"checkout_request_id", stkResp.CheckoutRequestID,
		"order_id", orderID,
		"amount_cents", order.TotalCents,
	)

	return &CheckoutResponse{
		RequestID:         txn.RequestID,
		CheckoutRequestID: stkResp.CheckoutRequestID,
		CustomerMessage:   stkResp.CustomerMessage,
	}, nil
}

// ProcessCallback applies one provider confirmation to the ledger.
//
// The raw payload is appended to the audit trail before any validation runs,
// so a callback is never lost even when it cannot be processed. Validation
// and reconciliation errors are returned to the caller for logging and
// operator review, but the HTTP layer still acknowledges the provider.
func (s *PaymentServiceImpl) ProcessCallback(ctx context.Context, rawPayload []byte) error {
	var envelope mpesa.CallbackEnvelope
	parseErr := json.Unmarshal(rawPayload, &envelope)

	entry := &models.CallbackLog{
		Kind:    models.CallbackKindSTK,
		Payload: string(rawPayload),
	}
	if parseErr == nil {
		cb := envelope.Body.STKCallback
		entry.CheckoutRequestID = cb.CheckoutRequestID
		code := cb.ResultCode
		entry.ResultCode = &code
	} else {
		entry.Note = "unparseable payload"
	}

	// The audit append is the one step that must not fail: without it the
	// callback would be unrecoverable. Store errors bubble up as 500.
	if err := s.ledger.AppendCallbackLog(entry); err != nil {
		return apperrors.InternalError(err)
	}

	if parseErr != nil {
		return apperrors.ErrMalformedCallback.WithError(parseErr)
	}

	cb := envelope.Body.STKCallback
	if cb.CheckoutRequestID == "" {
		return s.reject(cb, "missing CheckoutRequestID", apperrors.ErrMalformedCallback)
	}

	txn, err := s.ledger.FindByCheckoutRequestID(cb.CheckoutRequestID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrTransactionNotFound) {
			return s.reject(cb, "no transaction for checkout request id", apperrors.ErrUnknownTransaction)
		}
		return apperrors.InternalError(err)
	}

	target := models.PaymentStatusFailed
	failureReason := cb.ResultDesc
	var receipt *string
	var confirmedAt *time.Time

	if cb.Success() {
		meta, ok := cb.Meta()
		if !ok {
			return s.reject(cb, "success callback without amount/receipt metadata", apperrors.ErrMalformedCallback)
		}
		// Zero tolerance: a mismatched amount is never applied, the
		// transaction stays pending and an operator takes over.
		if meta.AmountCents != txn.AmountCents {
			logger.CtxWarn(ctx, "callback amount mismatch",
				"request_id", txn.RequestID,
				"expected_cents", txn.AmountCents,
				"got_cents", meta.AmountCents,
			)
			return s.reject(cb, "amount mismatch", apperrors.ErrAmountMismatch)
		}

		target = models.PaymentStatusPaid
		failureReason = ""
		receipt = &meta.ReceiptNumber
		now := time.Now()
		confirmedAt = &now
	}

	if txn.Status.IsTerminal() {
		return s.settleReplay(ctx, txn, target, receipt, cb)
	}

	updated, err := s.ledger.ApplyTransition(txn.RequestID, target, receipt,
		confirmedAt, failureReason, datatypes.JSON(rawPayload))
	if err != nil {
		if apperrors.Is(err, repositories.ErrStaleTransition) {
			// Lost the race against a concurrent callback or cancellation.
			// Re-read the settled row and take the idempotent path.
			current, findErr := s.ledger.FindByRequestID(txn.RequestID)
			if findErr != nil {
				return apperrors.InternalError(findErr)
			}
			return s.settleReplay(ctx, current, target, receipt, cb)
		}
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "transaction settled",
		"request_id", updated.RequestID,
		"order_id", updated.OrderID,
		"status", updated.Status,
		"result_code", cb.ResultCode,
	)

	s.propagateToOrder(updated)
	return nil
}

// settleReplay handles a callback arriving for an already-terminal
// transaction: a matching outcome is an idempotent no-op recorded for audit;
// a different provider receipt is a conflict that goes to operators.
func (s *PaymentServiceImpl) settleReplay(ctx context.Context, txn *models.Transaction,
	target models.PaymentStatus, receipt *string, cb mpesa.STKCallback) error {

	if txn.Status == target && receiptMatches(txn.MpesaReceipt, receipt) {
		code := cb.ResultCode
		if err := s.ledger.AppendCallbackLog(&models.CallbackLog{
			Kind:              models.CallbackKindDuplicate,
			CheckoutRequestID: cb.CheckoutRequestID,
			ResultCode:        &code,
			Payload:           rawOf(cb),
			Note:              "idempotent replay, no state change",
		}); err != nil {
			logger.Error("failed to record duplicate callback", "error", err)
		}
		logger.CtxInfo(ctx, "duplicate callback ignored",
			"request_id", txn.RequestID, "status", txn.Status)
		return nil
	}

	logger.CtxError(ctx, "conflicting callback for settled transaction",
		"request_id", txn.RequestID,
		"settled_status", txn.Status,
		"claimed_status", target,
	)
	return s.reject(cb, "conflicting provider receipt for settled transaction", apperrors.ErrPaymentConflict)
}

// reject records a validation failure in the audit trail and returns the
// matching AppError. The transaction, if any, is left untouched.
func (s *PaymentServiceImpl) reject(cb mpesa.STKCallback, note string, appErr *apperrors.AppError) error {
	code := cb.ResultCode
	if err := s.ledger.AppendCallbackLog(&models.CallbackLog{
		Kind:              models.CallbackKindRejected,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        &code,
		Payload:           rawOf(cb),
		Note:              note,
	}); err != nil {
		logger.Error("failed to record rejected callback", "error", err)
	}
	return appErr
}

// propagateToOrder pushes a settled transaction's outcome to the order.
// Payment truth lives in the ledger: a propagation failure never rolls the
// transaction back, it just leaves the row unsynced for the sweep to retry.
func (s *PaymentServiceImpl) propagateToOrder(txn *models.Transaction) {
	if err := s.applyToOrder(txn); err != nil {
		logger.Error("order propagation failed, queued for retry",
			"request_id", txn.RequestID,
			"order_id", txn.OrderID,
			"error", apperrors.ErrOrderPropagationFailed.WithError(err),
		)
		return
	}

	if err := s.ledger.MarkOrderSynced(txn.RequestID); err != nil {
		logger.Error("failed to mark transaction synced",
			"request_id", txn.RequestID, "error", err)
		return
	}

	if txn.Status == models.PaymentStatusPaid {
		s.sendReceipt(txn)
	}
}

func (s *PaymentServiceImpl) applyToOrder(txn *models.Transaction) error {
	switch txn.Status {
	case models.PaymentStatusPaid:
		paidAt := time.Now()
		if txn.ConfirmedAt != nil {
			paidAt = *txn.ConfirmedAt
		}
		return s.orderRepo.MarkPaid(txn.OrderID, paidAt)
	case models.PaymentStatusFailed:
		return s.orderRepo.MarkPaymentFailed(txn.OrderID, txn.FailureReason)
	case models.PaymentStatusCancelled:
		return s.orderRepo.MarkCancelled(txn.OrderID)
	default:
		return nil
	}
}

func (s *PaymentServiceImpl) sendReceipt(txn *models.Transaction) {
	order, err := s.orderRepo.FindByID(txn.OrderID)
	if err != nil {
		logger.Error("receipt: failed to load order", "order_id", txn.OrderID, "error", err)
		return
	}
	user, err := s.userRepo.FindByID(order.UserID)
	if err != nil {
		logger.Error("receipt: failed to load user", "user_id", order.UserID, "error", err)
		return
	}

	receipt := ""
	if txn.MpesaReceipt != nil {
		receipt = *txn.MpesaReceipt
	}

	if err := s.emailProvider.SendOrderReceipt(user.Email, email.ReceiptData{
		OrderID:      order.ID,
		CustomerName: user.Name,
		Total:        utils.FormatCents(order.TotalCents, order.Currency),
		Receipt:      receipt,
	}); err != nil {
		logger.Error("receipt email failed", "order_id", order.ID, "error", err)
	}
}

// CancelPayment settles a still-pending transaction as cancelled (user abort
// or checkout timeout). It races the provider callback through the same
// conditional update: whichever transition lands first is authoritative, and
// the loser observes a terminal state.
func (s *PaymentServiceImpl) CancelPayment(orderID string) error {
	txn, err := s.ledger.FindByOrderID(orderID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrTransactionNotFound) {
			return apperrors.ErrUnknownTransaction
		}
		return apperrors.InternalError(err)
	}

	if txn.Status.IsTerminal() {
		if txn.Status == models.PaymentStatusCancelled {
			return nil // already cancelled, idempotent
		}
		// Cancel is not a legal move out of paid or failed.
		return apperrors.ErrInvalidTransition
	}

	updated, err := s.ledger.ApplyTransition(txn.RequestID, models.PaymentStatusCancelled,
		nil, nil, "cancelled by user", nil)
	if err != nil {
		if apperrors.Is(err, repositories.ErrStaleTransition) {
			current, findErr := s.ledger.FindByRequestID(txn.RequestID)
			if findErr != nil {
				return apperrors.InternalError(findErr)
			}
			if current.Status == models.PaymentStatusCancelled {
				return nil
			}
			return apperrors.ErrInvalidTransition
		}
		return apperrors.InternalError(err)
	}

	logger.Info("payment cancelled", "request_id", updated.RequestID, "order_id", orderID)
	s.propagateToOrder(updated)
	return nil
}

// GetStatus is the synchronous read path the storefront polls. It derives
// everything from the ledger and never waits for a pending callback.
func (s *PaymentServiceImpl) GetStatus(orderID string) (*PaymentStatusResponse, error) {
	txn, err := s.ledger.FindByOrderID(orderID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, apperrors.ErrUnknownTransaction
		}
		return nil, apperrors.InternalError(err)
	}

	resp := &PaymentStatusResponse{
		OrderID:     txn.OrderID,
		Status:      txn.Status,
		AmountCents: txn.AmountCents,
		ConfirmedAt: txn.ConfirmedAt,
	}
	if txn.MpesaReceipt != nil {
		resp.Receipt = *txn.MpesaReceipt
	}
	return resp, nil
}

// GetCallbackTrail lists the audit rows recorded for a checkout request id,
// newest last. Operators use this to review rejected and conflicting
// callbacks.
func (s *PaymentServiceImpl) GetCallbackTrail(checkoutRequestID string) ([]models.CallbackLog, error) {
	logs, err := s.ledger.FindCallbackLogs(checkoutRequestID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return logs, nil
}

// RetryOrderPropagation re-reads settled transactions whose order update has
// not been confirmed and retries the propagation. Called by the periodic
// reconciliation sweep; returns how many rows were synced.
func (s *PaymentServiceImpl) RetryOrderPropagation(limit int) (int, error) {
	txns, err := s.ledger.FindUnsyncedTerminal(limit)
	if err != nil {
		return 0, err
	}

	synced := 0
	for i := range txns {
		txn := &txns[i]
		if err := s.applyToOrder(txn); err != nil {
			logger.Warn("order propagation retry failed",
				"request_id", txn.RequestID, "order_id", txn.OrderID,
				"error", apperrors.ErrOrderPropagationFailed.WithError(err))
			continue
		}
		if err := s.ledger.MarkOrderSynced(txn.RequestID); err != nil {
			logger.Error("failed to mark transaction synced on retry",
				"request_id", txn.RequestID, "error", err)
			continue
		}
		synced++
	}

	return synced, nil
}

func receiptMatches(settled, claimed *string) bool {
	if settled == nil && claimed == nil {
		return true
	}
	if settled == nil || claimed == nil {
		return false
	}
	return *settled == *claimed
}

// rawOf re-serializes a parsed callback for the secondary audit rows. The
// primary row written at receipt time always holds the verbatim body.
func rawOf(cb mpesa.STKCallback) string {
	b, err := json.Marshal(cb)
	if err != nil {
		return ""
	}
	return string(b)
}
