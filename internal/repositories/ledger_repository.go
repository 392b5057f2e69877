package repositories

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/b3nzuk3/gameCity-sub001/internal/models"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicatePayment    = errors.New("order already has an active payment transaction")
	// ErrStaleTransition is returned when the conditional update matched no
	// row: the transaction was not pending anymore when the update ran. The
	// caller re-reads the row and takes the idempotent or conflict path.
	ErrStaleTransition = errors.New("transaction is no longer pending")
)

// LedgerRepository is the only write path to payment transactions. All state
// mutation goes through ApplyTransition's conditional update; nothing else
// may touch Transaction.Status.
type LedgerRepository interface {
	CreateTransaction(orderID string, amountCents int64, phone string) (*models.Transaction, error)
	FindByRequestID(requestID string) (*models.Transaction, error)
	FindByCheckoutRequestID(checkoutRequestID string) (*models.Transaction, error)
	FindByOrderID(orderID string) (*models.Transaction, error)
	SetCheckoutRequestID(requestID, checkoutRequestID string) error
	ApplyTransition(requestID string, target models.PaymentStatus, receipt *string,
		confirmedAt *time.Time, failureReason string, raw datatypes.JSON) (*models.Transaction, error)
	MarkOrderSynced(requestID string) error
	FindUnsyncedTerminal(limit int) ([]models.Transaction, error)
	AppendCallbackLog(entry *models.CallbackLog) error
	FindCallbackLogs(checkoutRequestID string) ([]models.CallbackLog, error)
}

type LedgerRepositoryImpl struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &LedgerRepositoryImpl{db: db}
}

// CreateTransaction allocates a new pending transaction for the order. The
// request id is assigned here, exactly once, before the provider can ever
// reference it.
//
// The one-active-transaction-per-order invariant is enforced by the partial
// unique index on (order_id) WHERE status IN ('pending','paid'): two
// concurrent checkouts can both pass the count below under READ COMMITTED,
// but only one insert commits. The count is just the cheap path that avoids
// burning a constraint violation on the common sequential case.
func (r *LedgerRepositoryImpl) CreateTransaction(orderID string, amountCents int64, phone string) (*models.Transaction, error) {
	txn := &models.Transaction{
		RequestID:   uuid.NewString(),
		OrderID:     orderID,
		AmountCents: amountCents,
		PhoneNumber: phone,
		Status:      models.PaymentStatusPending,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Transaction{}).
			Where("order_id = ? AND status IN ?", orderID,
				[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusPaid}).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicatePayment
		}
		return tx.Create(txn).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "idx_transactions_active_order") {
			return nil, ErrDuplicatePayment
		}
		return nil, err
	}

	return txn, nil
}

func (r *LedgerRepositoryImpl) FindByRequestID(requestID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.Where("request_id = ?", requestID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *LedgerRepositoryImpl) FindByCheckoutRequestID(checkoutRequestID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.Where("checkout_request_id = ?", checkoutRequestID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// FindByOrderID returns the order's most recent transaction. An order has at
// most one non-terminal transaction, but may accumulate several failed or
// cancelled attempts over time.
func (r *LedgerRepositoryImpl) FindByOrderID(orderID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *LedgerRepositoryImpl) SetCheckoutRequestID(requestID, checkoutRequestID string) error {
	result := r.db.Model(&models.Transaction{}).
		Where("request_id = ?", requestID).
		Update("checkout_request_id", checkoutRequestID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// ApplyTransition is the per-request-id compare-and-swap: a single
// conditional UPDATE guarded on status = 'pending'. Two racing callbacks for
// the same request id cannot both match; the loser gets ErrStaleTransition
// and must re-read the settled row. The updated transaction is returned on
// success.
func (r *LedgerRepositoryImpl) ApplyTransition(requestID string, target models.PaymentStatus, receipt *string,
	confirmedAt *time.Time, failureReason string, raw datatypes.JSON) (*models.Transaction, error) {

	if !models.PaymentStatusPending.CanTransitionTo(target) {
		return nil, ErrStaleTransition
	}

	updates := map[string]interface{}{
		"status":     target,
		"updated_at": time.Now(),
	}
	if receipt != nil {
		updates["mpesa_receipt"] = receipt
	}
	if confirmedAt != nil {
		updates["confirmed_at"] = confirmedAt
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}
	if raw != nil {
		updates["raw_callback"] = raw
	}

	result := r.db.Model(&models.Transaction{}).
		Where("request_id = ? AND status = ?", requestID, models.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrStaleTransition
	}

	return r.FindByRequestID(requestID)
}

func (r *LedgerRepositoryImpl) MarkOrderSynced(requestID string) error {
	result := r.db.Model(&models.Transaction{}).
		Where("request_id = ?", requestID).
		Update("order_synced", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// FindUnsyncedTerminal lists settled transactions whose order update has not
// been confirmed yet. The reconciliation sweep retries these.
func (r *LedgerRepositoryImpl) FindUnsyncedTerminal(limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.
		Where("order_synced = ? AND status IN ?", false,
			[]models.PaymentStatus{models.PaymentStatusPaid, models.PaymentStatusFailed, models.PaymentStatusCancelled}).
		Order("created_at ASC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

func (r *LedgerRepositoryImpl) AppendCallbackLog(entry *models.CallbackLog) error {
	return r.db.Create(entry).Error
}

func (r *LedgerRepositoryImpl) FindCallbackLogs(checkoutRequestID string) ([]models.CallbackLog, error) {
	var logs []models.CallbackLog
	err := r.db.Where("checkout_request_id = ?", checkoutRequestID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
