package billing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// QRPaymentStatus represents the status of a QR payment request
type QRPaymentStatus string

const (
	QRStatusPending   QRPaymentStatus = "PENDING"   // Issued, no transaction received yet
	QRStatusMatched   QRPaymentStatus = "MATCHED"   // Received amount equals expected
	QRStatusOverpaid  QRPaymentStatus = "OVERPAID"  // Received more than expected; excess is unallocated credit
	QRStatusUnderpaid QRPaymentStatus = "UNDERPAID" // Received less; open for top-ups until expiry
	QRStatusFailed    QRPaymentStatus = "FAILED"
	QRStatusExpired   QRPaymentStatus = "EXPIRED"
)

// IsValid checks if the status is a valid QRPaymentStatus
func (s QRPaymentStatus) IsValid() bool {
	switch s {
	case QRStatusPending, QRStatusMatched, QRStatusOverpaid,
		QRStatusUnderpaid, QRStatusFailed, QRStatusExpired:
		return true
	}
	return false
}

// IsOpen returns true while the request still accepts transactions. An
// underpaid request stays open for top-up transfers against the same token.
func (s QRPaymentStatus) IsOpen() bool {
	return s == QRStatusPending || s == QRStatusUnderpaid
}

// Blocking returns true for statuses that block issuing a new request for
// the same invoice
func (s QRPaymentStatus) Blocking() bool {
	return s == QRStatusPending || s == QRStatusMatched || s == QRStatusUnderpaid
}

// QRPayment is a pending bank-transfer matching request. The matching token
// is embedded in the transfer-content string the guest copies into their
// banking app; incoming transactions are matched by finding the token in
// the transfer memo.
type QRPayment struct {
	shared.PropertyAggregateRoot
	BookingID       uuid.UUID            `json:"booking_id"`
	InvoiceID       uuid.UUID            `json:"invoice_id"`
	MatchingToken   string               `json:"matching_token"`
	TransferContent string               `json:"transfer_content"`
	ExpectedAmount  decimal.Decimal      `json:"expected_amount"`
	ReceivedAmount  decimal.Decimal      `json:"received_amount"`
	Currency        valueobject.Currency `json:"currency"`
	Status          QRPaymentStatus      `json:"status"`
	ExpiresAt       time.Time            `json:"expires_at"`
	MatchedAt       *time.Time           `json:"matched_at,omitempty"`
	FailureReason   string               `json:"failure_reason,omitempty"`
}

// generateMatchingToken returns a short uppercase token unique enough to
// never collide within a property's open requests. Banking apps truncate
// long memos, so the token stays short.
func generateMatchingToken() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// fall back to a uuid-derived token rather than blocking payment.
		return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}

// NewQRPayment issues a new matching request for an invoice. The caller
// enforces the one-open-request-per-invoice rule before calling.
func NewQRPayment(
	propertyID, bookingID, invoiceID uuid.UUID,
	invoiceNumber string,
	expected valueobject.Money,
	expiresAt time.Time,
) (*QRPayment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if !expected.IsPositive() {
		return nil, ErrInvalidAmount
	}

	token := generateMatchingToken()

	return &QRPayment{
		PropertyAggregateRoot: shared.NewPropertyAggregateRoot(propertyID),
		BookingID:             bookingID,
		InvoiceID:             invoiceID,
		MatchingToken:         token,
		TransferContent:       fmt.Sprintf("%s %s", invoiceNumber, token),
		ExpectedAmount:        expected.RoundMinor().Amount(),
		ReceivedAmount:        decimal.Zero,
		Currency:              expected.Currency(),
		Status:                QRStatusPending,
		ExpiresAt:             expiresAt,
	}, nil
}

// GetExpectedAmountMoney returns the expected amount as Money
func (q *QRPayment) GetExpectedAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(q.ExpectedAmount, q.Currency)
	return m
}

// GetReceivedAmountMoney returns the accumulated received amount as Money
func (q *QRPayment) GetReceivedAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(q.ReceivedAmount, q.Currency)
	return m
}

// RemainingAmount returns expected minus received, floored at zero
func (q *QRPayment) RemainingAmount() valueobject.Money {
	remaining := q.ExpectedAmount.Sub(q.ReceivedAmount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	m, _ := valueobject.NewMoney(remaining, q.Currency)
	return m
}

// IsExpired reports whether the request's deadline has passed
func (q *QRPayment) IsExpired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// NormalizeMemo lowercases a transfer memo and collapses its whitespace so
// token matching survives bank-side reformatting.
func NormalizeMemo(memo string) string {
	return strings.ToLower(strings.Join(strings.Fields(memo), " "))
}

// TokenMatchesMemo reports whether the matching token appears in the memo,
// case-insensitively and ignoring whitespace differences.
func TokenMatchesMemo(token, memo string) bool {
	if token == "" {
		return false
	}
	return strings.Contains(NormalizeMemo(memo), strings.ToLower(token))
}

// ApplyTransaction accumulates a received transfer into the request and
// returns the portion to apply to the invoice now and any excess to surface
// as unallocated credit. Amounts already applied before expiry are never
// lost; an expired request only stops accepting further top-ups.
func (q *QRPayment) ApplyTransaction(amount valueobject.Money, now time.Time) (applied, excess valueobject.Money, err error) {
	zero := valueobject.Zero(q.Currency)

	if !q.Status.IsOpen() {
		return zero, zero, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("QR request in %s status does not accept transactions", q.Status))
	}
	if q.IsExpired(now) {
		q.markExpired(now)
		return zero, zero, ErrRequestExpired
	}
	if amount.Currency() != q.Currency {
		return zero, zero, ErrCurrencyMismatch
	}
	if !amount.IsPositive() {
		return zero, zero, ErrInvalidAmount
	}

	remaining := q.RemainingAmount()
	applied = amount
	excess = zero
	if over, _ := amount.GreaterThan(remaining); over {
		applied = remaining
		excess = amount.MustSubtract(remaining)
	}

	q.ReceivedAmount = q.ReceivedAmount.Add(amount.Amount())

	switch {
	case q.ReceivedAmount.GreaterThan(q.ExpectedAmount):
		q.Status = QRStatusOverpaid
		q.setMatched(now)
	case q.ReceivedAmount.Equal(q.ExpectedAmount):
		q.Status = QRStatusMatched
		q.setMatched(now)
	default:
		q.Status = QRStatusUnderpaid
	}

	q.UpdatedAt = now
	q.IncrementVersion()

	return applied, excess, nil
}

func (q *QRPayment) setMatched(now time.Time) {
	matched := now
	q.MatchedAt = &matched
}

func (q *QRPayment) markExpired(now time.Time) {
	q.Status = QRStatusExpired
	q.UpdatedAt = now
	q.IncrementVersion()
}

// Expire transitions an open request past its deadline to expired. Called
// by the periodic sweep and lazily at ingestion time.
func (q *QRPayment) Expire(now time.Time) error {
	if !q.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot expire QR request in %s status", q.Status))
	}
	if !q.IsExpired(now) {
		return shared.NewDomainError("INVALID_STATE", "QR request deadline has not passed")
	}
	q.markExpired(now)
	return nil
}

// Fail marks the request failed with a reason
func (q *QRPayment) Fail(reason string) error {
	if !q.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot fail QR request in %s status", q.Status))
	}
	q.Status = QRStatusFailed
	q.FailureReason = reason
	q.UpdatedAt = time.Now()
	q.IncrementVersion()
	return nil
}

// BankTransactionStatus classifies an ingested bank transaction
type BankTransactionStatus string

const (
	BankTxnStatusProcessed BankTransactionStatus = "PROCESSED" // Matched and applied
	BankTxnStatusUnmatched BankTransactionStatus = "UNMATCHED" // Stored for manual reconciliation
)

// BankTransaction is the stored record of a bank-transfer notification.
// Every delivered transaction is persisted exactly once, matched or not;
// the bank's transaction id is the idempotency key.
type BankTransaction struct {
	shared.BaseEntity
	PropertyID        uuid.UUID             `json:"property_id"`
	BankTransactionID string                `json:"bank_transaction_id"`
	Amount            decimal.Decimal       `json:"amount"`
	Currency          valueobject.Currency  `json:"currency"`
	Memo              string                `json:"memo"`
	OccurredAt        time.Time             `json:"occurred_at"`
	Status            BankTransactionStatus `json:"status"`
	QRPaymentID       *uuid.UUID            `json:"qr_payment_id,omitempty"`
	PaymentID         *uuid.UUID            `json:"payment_id,omitempty"`
}

// NewBankTransaction records an ingested bank-transfer notification
func NewBankTransaction(
	propertyID uuid.UUID,
	bankTxnID string,
	amount valueobject.Money,
	memo string,
	occurredAt time.Time,
) (*BankTransaction, error) {
	if bankTxnID == "" {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_ID", "Bank transaction ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	return &BankTransaction{
		BaseEntity:        shared.NewBaseEntity(),
		PropertyID:        propertyID,
		BankTransactionID: bankTxnID,
		Amount:            amount.RoundMinor().Amount(),
		Currency:          amount.Currency(),
		Memo:              memo,
		OccurredAt:        occurredAt,
		Status:            BankTxnStatusUnmatched,
	}, nil
}

// MarkProcessed links the transaction to the QR request and payment it
// settled
func (t *BankTransaction) MarkProcessed(qrPaymentID uuid.UUID, paymentID *uuid.UUID) {
	t.Status = BankTxnStatusProcessed
	t.QRPaymentID = &qrPaymentID
	t.PaymentID = paymentID
	t.UpdatedAt = time.Now()
}

// GetAmountMoney returns the transaction amount as Money
func (t *BankTransaction) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(t.Amount, t.Currency)
	return m
}
