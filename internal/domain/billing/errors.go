package billing

import "github.com/huuphu310/rooms-management-sub003/internal/domain/shared"

// Billing domain errors. Validation errors reject bad input synchronously;
// policy errors surface business-rule violations to the caller for a
// decision; delivery errors are expected steady-state outcomes of
// asynchronous bank-transaction ingestion.
var (
	// Validation
	ErrInvalidAmount    = shared.NewDomainError("INVALID_AMOUNT", "Amount, quantity or discount is out of range")
	ErrEmptyInvoice     = shared.NewDomainError("EMPTY_INVOICE", "Invoice must contain at least one line item")
	ErrCurrencyMismatch = shared.NewDomainError("CURRENCY_MISMATCH", "Currencies do not match")

	// Policy
	ErrOverpaymentNotAllowed     = shared.NewDomainError("OVERPAYMENT_NOT_ALLOWED", "Payment exceeds the invoice balance due")
	ErrCannotCancelPaidInvoice   = shared.NewDomainError("CANNOT_CANCEL_PAID_INVOICE", "Invoice with recorded payments cannot be cancelled")
	ErrNoApplicableDepositRule   = shared.NewDomainError("NO_APPLICABLE_DEPOSIT_RULE", "No deposit rule matches the booking and no override was supplied")
	ErrScheduleSumMismatch       = shared.NewDomainError("SCHEDULE_SUM_MISMATCH", "Schedule percentages do not sum to the booking total")
	ErrDuplicateQRRequest        = shared.NewDomainError("DUPLICATE_QR_REQUEST", "Invoice already has an open QR payment request")
	ErrNonZeroBalance            = shared.NewDomainError("NON_ZERO_BALANCE", "Folio balance must be zero before closing")
	ErrFolioClosed               = shared.NewDomainError("FOLIO_CLOSED", "Folio is closed for new charges and payments")
	ErrRefundExceedsOriginal     = shared.NewDomainError("REFUND_EXCEEDS_ORIGINAL", "Refund exceeds the refundable amount of the original payment")
	ErrRefundTargetNotRefundable = shared.NewDomainError("REFUND_TARGET_NOT_REFUNDABLE", "Only completed non-refund payments can be refunded")

	// External delivery (expected outcomes, logged and queued for manual
	// reconciliation rather than treated as system failures)
	ErrNoMatchingRequest = shared.NewDomainError("NO_MATCHING_REQUEST", "No pending QR request matches the transaction memo")
	ErrAlreadyProcessed  = shared.NewDomainError("ALREADY_PROCESSED", "Bank transaction has already been processed")
	ErrRequestExpired    = shared.NewDomainError("REQUEST_EXPIRED", "QR payment request has expired")
)
