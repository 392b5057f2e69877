package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/b3nzuk3/gameCity-sub001/internal/email"
	"github.com/b3nzuk3/gameCity-sub001/internal/models"
	"github.com/b3nzuk3/gameCity-sub001/internal/mpesa"
	"github.com/b3nzuk3/gameCity-sub001/internal/repositories"
	"github.com/b3nzuk3/gameCity-sub001/pkg/apperrors"
)

// --- in-memory fakes ---

type fakeLedger struct {
	txns map[string]*models.Transaction // by request id
	logs []models.CallbackLog

	failAppendLog bool
	// beforeApply runs at the top of ApplyTransition, simulating a rival
	// writer settling the row between the caller's read and its update.
	beforeApply func(f *fakeLedger)
	// beforeCreate runs before CreateTransaction's uniqueness check,
	// simulating a rival checkout inserting first. The check mirrors the
	// partial unique index on active transactions per order.
	beforeCreate func(f *fakeLedger)
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{txns: make(map[string]*models.Transaction)}
}

func (f *fakeLedger) CreateTransaction(orderID string, amountCents int64, phone string) (*models.Transaction, error) {
	if f.beforeCreate != nil {
		hook := f.beforeCreate
		f.beforeCreate = nil
		hook(f)
	}

	for _, txn := range f.txns {
		if txn.OrderID == orderID &&
			(txn.Status == models.PaymentStatusPending || txn.Status == models.PaymentStatusPaid) {
			return nil, repositories.ErrDuplicatePayment
		}
	}
	txn := &models.Transaction{
		RequestID:   uuid.NewString(),
		OrderID:     orderID,
		AmountCents: amountCents,
		PhoneNumber: phone,
		Status:      models.PaymentStatusPending,
	}
	txn.CreatedAt = time.Now()
	f.txns[txn.RequestID] = txn
	return copyTxn(txn), nil
}

func (f *fakeLedger) FindByRequestID(requestID string) (*models.Transaction, error) {
	txn, ok := f.txns[requestID]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	return copyTxn(txn), nil
}

func (f *fakeLedger) FindByCheckoutRequestID(checkoutRequestID string) (*models.Transaction, error) {
	for _, txn := range f.txns {
		if txn.CheckoutRequestID != nil && *txn.CheckoutRequestID == checkoutRequestID {
			return copyTxn(txn), nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (f *fakeLedger) FindByOrderID(orderID string) (*models.Transaction, error) {
	var latest *models.Transaction
	for _, txn := range f.txns {
		if txn.OrderID != orderID {
			continue
		}
		if latest == nil || txn.CreatedAt.After(latest.CreatedAt) {
			latest = txn
		}
	}
	if latest == nil {
		return nil, repositories.ErrTransactionNotFound
	}
	return copyTxn(latest), nil
}

func (f *fakeLedger) SetCheckoutRequestID(requestID, checkoutRequestID string) error {
	txn, ok := f.txns[requestID]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	txn.CheckoutRequestID = &checkoutRequestID
	return nil
}

func (f *fakeLedger) ApplyTransition(requestID string, target models.PaymentStatus, receipt *string,
	confirmedAt *time.Time, failureReason string, raw datatypes.JSON) (*models.Transaction, error) {

	if f.beforeApply != nil {
		hook := f.beforeApply
		f.beforeApply = nil
		hook(f)
	}

	txn, ok := f.txns[requestID]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	if txn.Status != models.PaymentStatusPending {
		return nil, repositories.ErrStaleTransition
	}
	txn.Status = target
	txn.MpesaReceipt = receipt
	txn.ConfirmedAt = confirmedAt
	txn.FailureReason = failureReason
	txn.RawCallback = raw
	return copyTxn(txn), nil
}

func (f *fakeLedger) MarkOrderSynced(requestID string) error {
	txn, ok := f.txns[requestID]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	txn.OrderSynced = true
	return nil
}

func (f *fakeLedger) FindUnsyncedTerminal(limit int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, txn := range f.txns {
		if txn.OrderSynced || !txn.Status.IsTerminal() {
			continue
		}
		out = append(out, *copyTxn(txn))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLedger) AppendCallbackLog(entry *models.CallbackLog) error {
	if f.failAppendLog {
		return errors.New("audit store unavailable")
	}
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeLedger) FindCallbackLogs(checkoutRequestID string) ([]models.CallbackLog, error) {
	var out []models.CallbackLog
	for _, l := range f.logs {
		if l.CheckoutRequestID == checkoutRequestID {
			out = append(out, l)
		}
	}
	return out, nil
}

func copyTxn(t *models.Transaction) *models.Transaction {
	c := *t
	return &c
}

type fakeOrderRepo struct {
	orders map[string]*models.Order

	failPropagation bool
	markPaidCalls   int
	markFailedCalls int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*models.Order)}
}

func (f *fakeOrderRepo) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) FindByID(id string) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, repositories.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) FindByUser(userID string, page, pageSize int) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) MarkPaid(orderID string, paidAt time.Time) error {
	if f.failPropagation {
		return errors.New("order store unavailable")
	}
	order, ok := f.orders[orderID]
	if !ok {
		return repositories.ErrOrderNotFound
	}
	f.markPaidCalls++
	order.Status = models.OrderStatusPaid
	order.IsPaid = true
	order.PaidAt = &paidAt
	return nil
}

func (f *fakeOrderRepo) MarkPaymentFailed(orderID string, reason string) error {
	if f.failPropagation {
		return errors.New("order store unavailable")
	}
	order, ok := f.orders[orderID]
	if !ok {
		return repositories.ErrOrderNotFound
	}
	f.markFailedCalls++
	order.Status = models.OrderStatusPaymentFailed
	order.FailureReason = reason
	return nil
}

func (f *fakeOrderRepo) MarkCancelled(orderID string) error {
	if f.failPropagation {
		return errors.New("order store unavailable")
	}
	order, ok := f.orders[orderID]
	if !ok {
		return repositories.ErrOrderNotFound
	}
	order.Status = models.OrderStatusCancelled
	return nil
}

func (f *fakeOrderRepo) GetRevenueStats(since time.Time) (*repositories.RevenueStats, error) {
	return &repositories.RevenueStats{}, nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) FindByID(id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(emailAddr string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == emailAddr {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) Update(user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Count() (int64, error) {
	return int64(len(f.users)), nil
}

type fakeGateway struct {
	pushErr   error
	lastInput mpesa.STKPushInput
	calls     int
}

func (f *fakeGateway) STKPush(ctx context.Context, input mpesa.STKPushInput) (*mpesa.STKPushResponse, error) {
	f.calls++
	f.lastInput = input
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	return &mpesa.STKPushResponse{
		MerchantRequestID: "merchant-1",
		CheckoutRequestID: fmt.Sprintf("ws_CO_%d", f.calls),
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

type fakeEmail struct {
	receipts []email.ReceiptData
}

func (f *fakeEmail) Send(to, subject, htmlBody string) error { return nil }

func (f *fakeEmail) SendOrderReceipt(to string, data email.ReceiptData) error {
	f.receipts = append(f.receipts, data)
	return nil
}

// --- fixture ---

type paymentFixture struct {
	ledger  *fakeLedger
	orders  *fakeOrderRepo
	users   *fakeUserRepo
	gateway *fakeGateway
	mail    *fakeEmail
	svc     PaymentService

	userID  string
	orderID string
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	f := &paymentFixture{
		ledger:  newFakeLedger(),
		orders:  newFakeOrderRepo(),
		users:   newFakeUserRepo(),
		gateway: &fakeGateway{},
		mail:    &fakeEmail{},
	}
	f.svc = NewPaymentService(f.ledger, f.orders, f.users, f.gateway, f.mail)

	user := &models.User{Name: "Brian", Email: "brian@example.com", Role: models.UserRoleCustomer}
	require.NoError(t, f.users.Create(user))
	f.userID = user.ID

	order := &models.Order{
		UserID:     user.ID,
		Status:     models.OrderStatusPendingPayment,
		TotalCents: 450000,
		Currency:   "KES",
	}
	require.NoError(t, f.orders.Create(order))
	f.orderID = order.ID

	return f
}

func (f *paymentFixture) checkout(t *testing.T) *CheckoutResponse {
	t.Helper()
	resp, err := f.svc.InitiateCheckout(context.Background(), f.userID, f.orderID, "254712345678")
	require.NoError(t, err)
	return resp
}

func successCallback(checkoutRequestID string, amountKES float64, receipt string) []byte {
	payload := map[string]interface{}{
		"Body": map[string]interface{}{
			"stkCallback": map[string]interface{}{
				"MerchantRequestID": "merchant-1",
				"CheckoutRequestID": checkoutRequestID,
				"ResultCode":        0,
				"ResultDesc":        "The service request is processed successfully.",
				"CallbackMetadata": map[string]interface{}{
					"Item": []map[string]interface{}{
						{"Name": "Amount", "Value": amountKES},
						{"Name": "MpesaReceiptNumber", "Value": receipt},
						{"Name": "PhoneNumber", "Value": 254712345678},
					},
				},
			},
		},
	}
	b, _ := json.Marshal(payload)
	return b
}

func failureCallback(checkoutRequestID string, code int, desc string) []byte {
	payload := map[string]interface{}{
		"Body": map[string]interface{}{
			"stkCallback": map[string]interface{}{
				"MerchantRequestID": "merchant-1",
				"CheckoutRequestID": checkoutRequestID,
				"ResultCode":        code,
				"ResultDesc":        desc,
			},
		},
	}
	b, _ := json.Marshal(payload)
	return b
}

// --- tests ---

func TestInitiateCheckout(t *testing.T) {
	t.Run("creates pending transaction and fires stk push", func(t *testing.T) {
		f := newPaymentFixture(t)

		resp := f.checkout(t)

		assert.NotEmpty(t, resp.RequestID)
		assert.NotEmpty(t, resp.CheckoutRequestID)
		assert.Equal(t, 1, f.gateway.calls)
		assert.Equal(t, int64(450000), f.gateway.lastInput.AmountCents)

		txn, err := f.ledger.FindByRequestID(resp.RequestID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPending, txn.Status)
		assert.Equal(t, f.orderID, txn.OrderID)
	})

	t.Run("rejects second checkout while one is pending", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.checkout(t)

		_, err := f.svc.InitiateCheckout(context.Background(), f.userID, f.orderID, "254712345678")
		assert.ErrorIs(t, err, apperrors.ErrDuplicatePayment)
	})

	t.Run("rejects checkout for another user's order", func(t *testing.T) {
		f := newPaymentFixture(t)

		_, err := f.svc.InitiateCheckout(context.Background(), uuid.NewString(), f.orderID, "254712345678")
		require.Error(t, err)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, 403, appErr.HTTPCode)
	})

	t.Run("concurrent checkouts insert at most one transaction", func(t *testing.T) {
		f := newPaymentFixture(t)

		// A rival checkout lands between this one's duplicate check and
		// its insert; the store-level uniqueness guard rejects the loser.
		f.ledger.beforeCreate = func(l *fakeLedger) {
			txn := &models.Transaction{
				RequestID:   uuid.NewString(),
				OrderID:     f.orderID,
				AmountCents: 450000,
				Status:      models.PaymentStatusPending,
			}
			txn.CreatedAt = time.Now()
			l.txns[txn.RequestID] = txn
		}

		_, err := f.svc.InitiateCheckout(context.Background(), f.userID, f.orderID, "254712345678")
		assert.ErrorIs(t, err, apperrors.ErrDuplicatePayment)

		// Exactly one pending transaction and one STK push for the order.
		var pending int
		for _, txn := range f.ledger.txns {
			if txn.OrderID == f.orderID && txn.Status == models.PaymentStatusPending {
				pending++
			}
		}
		assert.Equal(t, 1, pending)
		assert.Equal(t, 0, f.gateway.calls)
	})

	t.Run("cancels the transaction when stk push fails", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.gateway.pushErr = errors.New("daraja timeout")

		_, err := f.svc.InitiateCheckout(context.Background(), f.userID, f.orderID, "254712345678")
		assert.ErrorIs(t, err, apperrors.ErrMpesaError)

		txn, findErr := f.ledger.FindByOrderID(f.orderID)
		require.NoError(t, findErr)
		assert.Equal(t, models.PaymentStatusCancelled, txn.Status)
	})
}

func TestProcessCallbackSuccess(t *testing.T) {
	f := newPaymentFixture(t)
	resp := f.checkout(t)

	err := f.svc.ProcessCallback(context.Background(), successCallback(resp.CheckoutRequestID, 4500, "THX81KJ2M"))
	require.NoError(t, err)

	txn, err := f.ledger.FindByRequestID(resp.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, txn.Status)
	require.NotNil(t, txn.MpesaReceipt)
	assert.Equal(t, "THX81KJ2M", *txn.MpesaReceipt)
	assert.NotNil(t, txn.ConfirmedAt)
	assert.True(t, txn.OrderSynced)
	assert.NotEmpty(t, txn.RawCallback)

	order, err := f.orders.FindByID(f.orderID)
	require.NoError(t, err)
	assert.True(t, order.IsPaid)
	assert.Equal(t, models.OrderStatusPaid, order.Status)

	require.Len(t, f.mail.receipts, 1)
	assert.Equal(t, "THX81KJ2M", f.mail.receipts[0].Receipt)
}

func TestProcessCallbackFailure(t *testing.T) {
	f := newPaymentFixture(t)
	resp := f.checkout(t)

	err := f.svc.ProcessCallback(context.Background(),
		failureCallback(resp.CheckoutRequestID, 1032, "Request cancelled by user"))
	require.NoError(t, err)

	txn, err := f.ledger.FindByRequestID(resp.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, txn.Status)
	assert.Equal(t, "Request cancelled by user", txn.FailureReason)
	assert.Nil(t, txn.MpesaReceipt)

	order, err := f.orders.FindByID(f.orderID)
	require.NoError(t, err)
	assert.False(t, order.IsPaid)
	assert.Equal(t, models.OrderStatusPaymentFailed, order.Status)
	assert.Empty(t, f.mail.receipts)
}

func TestProcessCallbackIdempotentReplay(t *testing.T) {
	f := newPaymentFixture(t)
	resp := f.checkout(t)

	payload := successCallback(resp.CheckoutRequestID, 4500, "THX81KJ2M")
	require.NoError(t, f.svc.ProcessCallback(context.Background(), payload))

	// Exact replay: no error, no state change, no second propagation.
	require.NoError(t, f.svc.ProcessCallback(context.Background(), payload))

	assert.Equal(t, 1, f.orders.markPaidCalls)
	assert.Len(t, f.mail.receipts, 1)

	var dupes int
	for _, l := range f.ledger.logs {
		if l.Kind == models.CallbackKindDuplicate {
			dupes++
		}
	}
	assert.Equal(t, 1, dupes)
}

func TestProcessCallbackConflictingReceipt(t *testing.T) {
	f := newPaymentFixture(t)
	resp := f.checkout(t)

	require.NoError(t, f.svc.ProcessCallback(context.Background(),
		successCallback(resp.CheckoutRequestID, 4500, "THX81KJ2M")))

	err := f.svc.ProcessCallback(context.Background(),
		successCallback(resp.CheckoutRequestID, 4500, "QGB44ZZ9P"))
	assert.ErrorIs(t, err, apperrors.ErrPaymentConflict)

	// The settled receipt is untouched.
	txn, findErr := f.ledger.FindByRequestID(resp.RequestID)
	require.NoError(t, findErr)
	require.NotNil(t, txn.MpesaReceipt)
	assert.Equal(t, "THX81KJ2M", *txn.MpesaReceipt)
}

func TestProcessCallbackFailureAfterPaidIsConflict(t *testing.T) {
	f := newPaymentFixture(t)
	resp := f.checkout(t)

	require.NoError(t, f.svc.ProcessCallback(context.Background(),
		successCallback(resp.CheckoutRequestID, 4500, "THX81KJ2M")))

	err := f.svc.ProcessCallback(context.Background(),
		failureCallback(resp.CheckoutRequestID, 1037, "Timeout"))
	assert.ErrorIs(t, err, apperrors.ErrPaymentConflict)

	txn, findErr := f.ledger.FindByRequestID(resp.RequestID)
	require.NoError(t, findErr)
	assert.Equal(t, models.PaymentStatusPaid, txn.Status)
}

func TestProcessCallbackAmountMismatch(t *testing.T) {
	f := newPaymentFixture(t)
	resp := f.checkout(t)

	// Order total is KES 4500.00; callback claims 4499.00.
	err := f.svc.ProcessCallback(context.Background(),
		successCallback(resp.CheckoutRequestID, 4499, "THX81KJ2M"))
	assert.ErrorIs(t, err, apperrors.ErrAmountMismatch)

	// Transaction stays pending for manual review.
	txn, findErr := f.ledger.FindByRequestID(resp.RequestID)
	require.NoError(t, findErr)
	assert.Equal(t, models.PaymentStatusPending, txn.Status)
	assert.Equal(t, 0, f.orders.markPaidCalls)

	var rejected int
	for _, l := range f.ledger.logs {
		if l.Kind == models.CallbackKindRejected {
			rejected++
		}
	}
	assert.Equal(t, 1, rejected)
}

func TestProcessCallbackUnknownTransaction(t *testing.T) {
	f := newPaymentFixture(t)

	err := f.svc.ProcessCallback(context.Background(),
		successCallback("ws_CO_never_issued", 4500, "THX81KJ2M"))
	assert.ErrorIs(t, err, apperrors.ErrUnknownTransaction)

	// The callback still landed in the audit trail.
	assert.NotEmpty(t, f.ledger.logs)
}

func TestProcessCallbackMalformedPayload(t *testing.T) {
	f := newPaymentFixture(t)

	raw := []byte(`{"Body": not json`)
	err := f.svc.ProcessCallback(context.Background(), raw)
	assert.ErrorIs(t, err, apperrors.ErrMalformedCallback)

	// Verbatim body persisted even though parsing failed.
	require.Len(t, f.ledger.logs, 1)
	assert.Equal(t, string(raw), f.ledger.logs[0].Payload)
	assert.Equal(t, models.CallbackKindSTK, f.ledger.logs[0].Kind)
}

func TestProcessCallbackAuditStoreDown(t *testing.T) {
	f := newPaymentFixture(t)
	resp := f.checkout(t)
	f.ledger.failAppendLog = true

	err := f.svc.ProcessCallback(context.Background(),
		successCallback(resp.CheckoutRequestID, 4500, "THX81KJ2M"))
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInternalError, appErr.Code)

	// Nothing was applied without the audit row.
	txn, findErr := f.ledger.FindByRequestID(resp.RequestID)
	require.NoError(t, findErr)
	assert.Equal(t, models.PaymentStatusPending, txn.Status)
}

func TestProcessCallbackPropagationFailureQueuesRetry(t *testing.T) {
	f := newPaymentFixture(t)
	resp := f.checkout(t)
	f.orders.failPropagation = true

	// The callback itself succeeds: payment truth is in the ledger.
	require.NoError(t, f.svc.ProcessCallback(context.Background(),
		successCallback(resp.CheckoutRequestID, 4500, "THX81KJ2M")))

	txn, err := f.ledger.FindByRequestID(resp.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, txn.Status)
	assert.False(t, txn.OrderSynced)

	// Store recovers; the sweep heals the order.
	f.orders.failPropagation = false
	synced, err := f.svc.RetryOrderPropagation(10)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	txn, err = f.ledger.FindByRequestID(resp.RequestID)
	require.NoError(t, err)
	assert.True(t, txn.OrderSynced)

	order, err := f.orders.FindByID(f.orderID)
	require.NoError(t, err)
	assert.True(t, order.IsPaid)
	require.Len(t, f.mail.receipts, 0) // receipt mail only on the live path
}

func TestProcessCallbackRace(t *testing.T) {
	settleAs := func(status models.PaymentStatus, receipt string) func(f *fakeLedger) {
		return func(f *fakeLedger) {
			for _, txn := range f.txns {
				txn.Status = status
				if receipt != "" {
					r := receipt
					txn.MpesaReceipt = &r
				}
			}
		}
	}

	t.Run("loser with matching receipt takes the idempotent path", func(t *testing.T) {
		f := newPaymentFixture(t)
		resp := f.checkout(t)

		// A rival callback settles the row after this one's read but
		// before its conditional update.
		f.ledger.beforeApply = settleAs(models.PaymentStatusPaid, "THX81KJ2M")

		err := f.svc.ProcessCallback(context.Background(),
			successCallback(resp.CheckoutRequestID, 4500, "THX81KJ2M"))
		require.NoError(t, err)

		txn, findErr := f.ledger.FindByRequestID(resp.RequestID)
		require.NoError(t, findErr)
		assert.Equal(t, models.PaymentStatusPaid, txn.Status)
		// The loser never re-propagates; the winner owns the order update.
		assert.Equal(t, 0, f.orders.markPaidCalls)
	})

	t.Run("loser with a different receipt reports a conflict", func(t *testing.T) {
		f := newPaymentFixture(t)
		resp := f.checkout(t)

		f.ledger.beforeApply = settleAs(models.PaymentStatusPaid, "QGB44ZZ9P")

		err := f.svc.ProcessCallback(context.Background(),
			successCallback(resp.CheckoutRequestID, 4500, "THX81KJ2M"))
		assert.ErrorIs(t, err, apperrors.ErrPaymentConflict)

		txn, findErr := f.ledger.FindByRequestID(resp.RequestID)
		require.NoError(t, findErr)
		require.NotNil(t, txn.MpesaReceipt)
		assert.Equal(t, "QGB44ZZ9P", *txn.MpesaReceipt)
	})
}

func TestCancelPayment(t *testing.T) {
	t.Run("cancels a pending transaction", func(t *testing.T) {
		f := newPaymentFixture(t)
		resp := f.checkout(t)

		require.NoError(t, f.svc.CancelPayment(f.orderID))

		txn, err := f.ledger.FindByRequestID(resp.RequestID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCancelled, txn.Status)

		order, err := f.orders.FindByID(f.orderID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, order.Status)
	})

	t.Run("cancel after cancel is a no-op", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.checkout(t)

		require.NoError(t, f.svc.CancelPayment(f.orderID))
		require.NoError(t, f.svc.CancelPayment(f.orderID))
	})

	t.Run("cancel after paid is an illegal transition", func(t *testing.T) {
		f := newPaymentFixture(t)
		resp := f.checkout(t)

		require.NoError(t, f.svc.ProcessCallback(context.Background(),
			successCallback(resp.CheckoutRequestID, 4500, "THX81KJ2M")))

		err := f.svc.CancelPayment(f.orderID)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

		// The paid state stands untouched.
		txn, findErr := f.ledger.FindByRequestID(resp.RequestID)
		require.NoError(t, findErr)
		assert.Equal(t, models.PaymentStatusPaid, txn.Status)
	})

	t.Run("cancel racing a winning callback is an illegal transition", func(t *testing.T) {
		f := newPaymentFixture(t)
		resp := f.checkout(t)

		// The provider confirms between cancel's read and its update.
		f.ledger.beforeApply = func(l *fakeLedger) {
			for _, txn := range l.txns {
				txn.Status = models.PaymentStatusPaid
				r := "THX81KJ2M"
				txn.MpesaReceipt = &r
			}
		}

		err := f.svc.CancelPayment(f.orderID)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

		txn, findErr := f.ledger.FindByRequestID(resp.RequestID)
		require.NoError(t, findErr)
		assert.Equal(t, models.PaymentStatusPaid, txn.Status)
	})
}

func TestGetStatus(t *testing.T) {
	t.Run("reports pending before any callback", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.checkout(t)

		status, err := f.svc.GetStatus(f.orderID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPending, status.Status)
		assert.Equal(t, int64(450000), status.AmountCents)
		assert.Empty(t, status.Receipt)
		assert.Nil(t, status.ConfirmedAt)
	})

	t.Run("reports receipt after confirmation", func(t *testing.T) {
		f := newPaymentFixture(t)
		resp := f.checkout(t)

		require.NoError(t, f.svc.ProcessCallback(context.Background(),
			successCallback(resp.CheckoutRequestID, 4500, "THX81KJ2M")))

		status, err := f.svc.GetStatus(f.orderID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, status.Status)
		assert.Equal(t, "THX81KJ2M", status.Receipt)
		assert.NotNil(t, status.ConfirmedAt)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newPaymentFixture(t)

		_, err := f.svc.GetStatus(uuid.NewString())
		assert.ErrorIs(t, err, apperrors.ErrUnknownTransaction)
	})
}
