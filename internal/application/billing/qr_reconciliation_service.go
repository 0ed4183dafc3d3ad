package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QRReconciliationService issues QR payment requests and reconciles
// incoming bank-transfer notifications against them. IngestTransaction is
// the sole mutating entry point for the asynchronous bank feed and must
// tolerate duplicate and out-of-order delivery.
type QRReconciliationService struct {
	qrRepo           billing.QRPaymentRepository
	bankTxnRepo      billing.BankTransactionRepository
	invoiceRepo      billing.InvoiceRepository
	paymentService   *PaymentService
	idempotencyStore shared.IdempotencyStore
	idempotencyCfg   shared.IdempotencyConfig
	businessMetrics  *telemetry.BusinessMetrics
	logger           *zap.Logger
}

// NewQRReconciliationService creates a new QRReconciliationService
func NewQRReconciliationService(
	qrRepo billing.QRPaymentRepository,
	bankTxnRepo billing.BankTransactionRepository,
	invoiceRepo billing.InvoiceRepository,
	paymentService *PaymentService,
	idempotencyStore shared.IdempotencyStore,
	idempotencyCfg shared.IdempotencyConfig,
	logger *zap.Logger,
) *QRReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRReconciliationService{
		qrRepo:           qrRepo,
		bankTxnRepo:      bankTxnRepo,
		invoiceRepo:      invoiceRepo,
		paymentService:   paymentService,
		idempotencyStore: idempotencyStore,
		idempotencyCfg:   idempotencyCfg,
		logger:           logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *QRReconciliationService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// IssueRequestInput carries the inputs for issuing a QR payment request
type IssueRequestInput struct {
	PropertyID    uuid.UUID
	InvoiceID     uuid.UUID
	ExpiryMinutes int
}

// IssueRequest creates a QR matching request for the invoice's balance due.
// An invoice with an open or matched request cannot get a second one.
func (s *QRReconciliationService) IssueRequest(ctx context.Context, in IssueRequestInput) (*billing.QRPayment, error) {
	invoice, err := s.invoiceRepo.FindByIDForProperty(ctx, in.PropertyID, in.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	if !invoice.Status.CanApplyPayment() {
		return nil, shared.NewDomainError("INVALID_STATE", "Invoice does not accept payments")
	}

	existing, err := s.qrRepo.FindBlockingByInvoice(ctx, in.InvoiceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, billing.ErrDuplicateQRRequest
	}

	expiry := time.Duration(in.ExpiryMinutes) * time.Minute
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}

	qr, err := billing.NewQRPayment(
		in.PropertyID, invoice.BookingID, invoice.ID,
		invoice.InvoiceNumber, invoice.BalanceDue(), time.Now().Add(expiry),
	)
	if err != nil {
		return nil, err
	}

	if err := s.qrRepo.Save(ctx, qr); err != nil {
		return nil, err
	}

	s.logger.Info("QR payment request issued",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("token", qr.MatchingToken),
		zap.Time("expires_at", qr.ExpiresAt))

	return qr, nil
}

// IngestOutcome classifies the result of ingesting one bank transaction
type IngestOutcome string

const (
	IngestOutcomeMatched          IngestOutcome = "MATCHED"
	IngestOutcomeOverpaid         IngestOutcome = "OVERPAID"
	IngestOutcomeUnderpaid        IngestOutcome = "UNDERPAID"
	IngestOutcomeNoMatch          IngestOutcome = "NO_MATCHING_REQUEST"
	IngestOutcomeExpired          IngestOutcome = "REQUEST_EXPIRED"
	IngestOutcomeAlreadyProcessed IngestOutcome = "ALREADY_PROCESSED"
)

// BankTransactionInput is one delivered bank-transfer notification
type BankTransactionInput struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      valueobject.Currency
	Memo          string
	OccurredAt    time.Time
}

// IngestResult is the outcome of IngestTransaction. Unmatched, duplicate
// and expired deliveries are expected steady-state outcomes, reported here
// rather than as errors.
type IngestResult struct {
	Outcome     IngestOutcome
	QRPayment   *billing.QRPayment
	Payment     *billing.Payment
	Transaction *billing.BankTransaction
}

// IngestTransaction matches a bank transaction to an open QR request by the
// token embedded in its memo and applies the received amount. The bank's
// transaction id is the idempotency key: redelivery of a processed
// transaction is a no-op.
func (s *QRReconciliationService) IngestTransaction(ctx context.Context, in BankTransactionInput) (*IngestResult, error) {
	if in.TransactionID == "" {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_ID", "Bank transaction ID cannot be empty")
	}

	currency := in.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, err := valueobject.NewMoney(in.Amount, currency)
	if err != nil {
		return nil, err
	}

	key := "banktxn:" + in.TransactionID
	fresh, err := s.idempotencyStore.MarkProcessed(ctx, key, s.idempotencyCfg.TTL)
	if err != nil {
		return nil, shared.ErrStoreUnavailable
	}
	if !fresh {
		s.logger.Info("Duplicate bank transaction ignored",
			zap.String("bank_transaction_id", in.TransactionID))
		existing, _ := s.bankTxnRepo.FindByBankTransactionID(ctx, in.TransactionID)
		return &IngestResult{Outcome: IngestOutcomeAlreadyProcessed, Transaction: existing}, nil
	}

	result, err := s.processClaimedTransaction(ctx, in, amount)
	if err != nil {
		// The claim must not outlive a failed attempt: releasing it lets
		// the bank's redelivery retry instead of being dropped as a
		// duplicate with no durable record.
		s.releaseClaim(ctx, key)
		return nil, err
	}
	return result, nil
}

// processClaimedTransaction runs the ingestion work for a transaction that
// holds the idempotency claim. Any error return means nothing durable was
// recorded and the claim will be released.
func (s *QRReconciliationService) processClaimedTransaction(
	ctx context.Context,
	in BankTransactionInput,
	amount valueobject.Money,
) (*IngestResult, error) {
	// The durable record backs the idempotency store across restarts.
	if existing, err := s.bankTxnRepo.FindByBankTransactionID(ctx, in.TransactionID); err != nil {
		return nil, err
	} else if existing != nil {
		return &IngestResult{Outcome: IngestOutcomeAlreadyProcessed, Transaction: existing}, nil
	}

	qr, err := s.findRequestByMemo(ctx, in.Memo)
	if err != nil {
		return nil, err
	}

	txn, err := billing.NewBankTransaction(uuid.Nil, in.TransactionID, amount, in.Memo, in.OccurredAt)
	if err != nil {
		return nil, err
	}

	if qr == nil {
		// Stored unmatched for manual reconciliation; not an internal error.
		if err := s.bankTxnRepo.Save(ctx, txn); err != nil {
			return nil, err
		}
		s.logger.Warn("Bank transaction matched no QR request",
			zap.String("bank_transaction_id", in.TransactionID),
			zap.String("memo", in.Memo))
		return &IngestResult{Outcome: IngestOutcomeNoMatch, Transaction: txn}, nil
	}

	txn.PropertyID = qr.PropertyID

	return s.settleTransaction(ctx, qr.ID, txn, amount)
}

func (s *QRReconciliationService) releaseClaim(ctx context.Context, key string) {
	if err := s.idempotencyStore.Forget(ctx, key); err != nil {
		s.logger.Warn("Failed to release idempotency claim",
			zap.String("key", key),
			zap.Error(err))
	}
}

// settleTransaction applies a received amount to the matched request under
// the per-token serialization boundary. Each retry attempt re-reads the
// request, so a lost race never settles against a stale aggregate; payment
// and transaction rows are only written once the request's lock commit
// succeeded.
func (s *QRReconciliationService) settleTransaction(
	ctx context.Context,
	qrID uuid.UUID,
	txn *billing.BankTransaction,
	amount valueobject.Money,
) (*IngestResult, error) {
	var (
		settled *billing.QRPayment
		applied valueobject.Money
		excess  valueobject.Money
		expired bool
	)
	err := withConflictRetry(ctx, func(ctx context.Context) error {
		qr, err := s.qrRepo.FindByID(ctx, qrID)
		if err != nil {
			return err
		}
		if qr == nil {
			return shared.NewDomainError("NOT_FOUND", "QR payment request not found")
		}

		appliedAmt, excessAmt, applyErr := qr.ApplyTransaction(amount, time.Now())
		if applyErr != nil && !errors.Is(applyErr, billing.ErrRequestExpired) {
			return applyErr
		}
		if err := s.qrRepo.SaveWithLock(ctx, qr); err != nil {
			return err
		}

		settled = qr
		applied = appliedAmt
		excess = excessAmt
		expired = applyErr != nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &IngestResult{QRPayment: settled, Transaction: txn}

	if expired {
		if err := s.bankTxnRepo.Save(ctx, txn); err != nil {
			return nil, err
		}
		result.Outcome = IngestOutcomeExpired
	} else {
		var payment *billing.Payment
		if applied.IsPositive() {
			recorded, err := s.paymentService.RecordPayment(ctx, RecordPaymentRequest{
				PropertyID:      settled.PropertyID,
				BookingID:       settled.BookingID,
				InvoiceID:       &settled.InvoiceID,
				Kind:            billing.PaymentKindPartial,
				Method:          billing.PaymentMethodQRTransfer,
				Amount:          applied.Amount(),
				Currency:        applied.Currency(),
				ReferenceNumber: txn.BankTransactionID,
				AllowAdvance:    true,
			})
			if err != nil {
				return nil, err
			}
			payment = recorded.Payment
		}

		// Overpaid excess becomes booking-level unallocated credit.
		if excess.IsPositive() {
			if _, err := s.paymentService.RecordPayment(ctx, RecordPaymentRequest{
				PropertyID:      settled.PropertyID,
				BookingID:       settled.BookingID,
				Kind:            billing.PaymentKindPartial,
				Method:          billing.PaymentMethodQRTransfer,
				Amount:          excess.Amount(),
				Currency:        excess.Currency(),
				ReferenceNumber: txn.BankTransactionID,
			}); err != nil {
				return nil, err
			}
		}

		var paymentID *uuid.UUID
		if payment != nil {
			paymentID = &payment.ID
		}
		txn.MarkProcessed(settled.ID, paymentID)
		if err := s.bankTxnRepo.Save(ctx, txn); err != nil {
			return nil, err
		}

		result.Payment = payment
		switch settled.Status {
		case billing.QRStatusMatched:
			result.Outcome = IngestOutcomeMatched
		case billing.QRStatusOverpaid:
			result.Outcome = IngestOutcomeOverpaid
		default:
			result.Outcome = IngestOutcomeUnderpaid
		}
	}

	s.logger.Info("Bank transaction reconciled",
		zap.String("bank_transaction_id", txn.BankTransactionID),
		zap.String("token", settled.MatchingToken),
		zap.String("outcome", string(result.Outcome)))

	if s.businessMetrics != nil {
		s.businessMetrics.RecordQRReconciliation(ctx, settled.PropertyID, string(result.Outcome))
	}

	return result, nil
}

// findRequestByMemo scans the memo's words for a token carried by an open
// request. Matching is case-insensitive and whitespace-normalized.
func (s *QRReconciliationService) findRequestByMemo(ctx context.Context, memo string) (*billing.QRPayment, error) {
	for _, word := range strings.Fields(billing.NormalizeMemo(memo)) {
		qr, err := s.qrRepo.FindOpenByToken(ctx, strings.ToUpper(word))
		if err != nil {
			return nil, err
		}
		if qr != nil && billing.TokenMatchesMemo(qr.MatchingToken, memo) {
			return qr, nil
		}
	}
	return nil, nil
}

// ExpirePending transitions open requests past their deadline to expired.
// Called by the periodic sweep; expiry is also enforced lazily at ingestion.
func (s *QRReconciliationService) ExpirePending(ctx context.Context, asOf time.Time) (int, error) {
	expired, err := s.qrRepo.FindExpiredOpen(ctx, asOf)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, qr := range expired {
		if err := qr.Expire(asOf); err != nil {
			continue
		}
		if err := s.qrRepo.SaveWithLock(ctx, qr); err != nil {
			s.logger.Warn("Failed to expire QR request",
				zap.String("token", qr.MatchingToken),
				zap.Error(err))
			continue
		}
		count++
	}

	if count > 0 {
		s.logger.Info("Expired QR payment requests", zap.Int("count", count))
	}
	return count, nil
}
