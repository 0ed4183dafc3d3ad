package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	BookingID  *uuid.UUID     // Filter by booking
	CustomerID *uuid.UUID     // Filter by customer
	Kind       *InvoiceKind   // Filter by kind
	Status     *InvoiceStatus // Filter by stored status
	FromDate   *time.Time     // Filter by invoice date range start
	ToDate     *time.Time     // Filter by invoice date range end
	DueFrom    *time.Time     // Filter by due date range start
	DueTo      *time.Time     // Filter by due date range end
	Overdue    *bool          // Filter only overdue invoices
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForProperty finds an invoice by ID scoped to a property
	FindByIDForProperty(ctx context.Context, propertyID, id uuid.UUID) (*Invoice, error)

	// FindByInvoiceNumber finds by invoice number for a property
	FindByInvoiceNumber(ctx context.Context, propertyID uuid.UUID, invoiceNumber string) (*Invoice, error)

	// FindByBooking finds all invoices for a booking
	FindByBooking(ctx context.Context, propertyID, bookingID uuid.UUID) ([]*Invoice, error)

	// FindAllForProperty finds invoices for a property with filtering
	FindAllForProperty(ctx context.Context, propertyID uuid.UUID, filter InvoiceFilter) ([]*Invoice, error)

	// FindOverdue finds pending or partial invoices past their due date
	FindOverdue(ctx context.Context, propertyID uuid.UUID, asOf time.Time) ([]*Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// CountForProperty counts invoices for a property with optional filters
	CountForProperty(ctx context.Context, propertyID uuid.UUID, filter InvoiceFilter) (int64, error)

	// GenerateInvoiceNumber generates a unique invoice number for a property
	GenerateInvoiceNumber(ctx context.Context, propertyID uuid.UUID) (string, error)
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	BookingID *uuid.UUID     // Filter by booking
	InvoiceID *uuid.UUID     // Filter by invoice
	Kind      *PaymentKind   // Filter by kind
	Method    *PaymentMethod // Filter by method
	Status    *PaymentStatus // Filter by status
	FromDate  *time.Time     // Filter by creation date range start
	ToDate    *time.Time     // Filter by creation date range end
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByIDForProperty finds a payment by ID scoped to a property
	FindByIDForProperty(ctx context.Context, propertyID, id uuid.UUID) (*Payment, error)

	// FindByBooking finds all payments for a booking
	FindByBooking(ctx context.Context, propertyID, bookingID uuid.UUID) ([]*Payment, error)

	// FindByInvoice finds all payments applied to an invoice
	FindByInvoice(ctx context.Context, propertyID, invoiceID uuid.UUID) ([]*Payment, error)

	// FindAllForProperty finds payments for a property with filtering
	FindAllForProperty(ctx context.Context, propertyID uuid.UUID, filter PaymentFilter) ([]*Payment, error)

	// FindRefundsOfPayment finds refund payments recorded against an original
	FindRefundsOfPayment(ctx context.Context, originalPaymentID uuid.UUID) ([]*Payment, error)

	// SumRefundsOfPayment sums completed refund amounts against an original
	SumRefundsOfPayment(ctx context.Context, originalPaymentID uuid.UUID) (decimal.Decimal, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, payment *Payment) error

	// GeneratePaymentNumber generates a unique payment number for a property
	GeneratePaymentNumber(ctx context.Context, propertyID uuid.UUID) (string, error)
}

// DepositRuleRepository defines the interface for deposit rule persistence
type DepositRuleRepository interface {
	// FindByID finds a deposit rule by ID
	FindByID(ctx context.Context, id uuid.UUID) (*DepositRule, error)

	// FindActiveForProperty finds all active rules for a property
	FindActiveForProperty(ctx context.Context, propertyID uuid.UUID) ([]*DepositRule, error)

	// FindAllForProperty finds all rules for a property
	FindAllForProperty(ctx context.Context, propertyID uuid.UUID, filter shared.Filter) ([]*DepositRule, error)

	// Save creates or updates a deposit rule
	Save(ctx context.Context, rule *DepositRule) error

	// Delete soft deletes a deposit rule
	Delete(ctx context.Context, id uuid.UUID) error
}

// ScheduleRepository defines the interface for payment schedule persistence
type ScheduleRepository interface {
	// FindByID finds a schedule entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ScheduleEntry, error)

	// FindByBooking finds all schedule entries for a booking ordered by
	// schedule number
	FindByBooking(ctx context.Context, propertyID, bookingID uuid.UUID) ([]*ScheduleEntry, error)

	// FindDueBefore finds invoiced, unpaid entries due before the given time
	FindDueBefore(ctx context.Context, propertyID uuid.UUID, asOf time.Time) ([]*ScheduleEntry, error)

	// SaveAll persists a generated schedule atomically, replacing any
	// non-terminal entries for the booking
	SaveAll(ctx context.Context, bookingID uuid.UUID, entries []*ScheduleEntry) error

	// Save creates or updates a single schedule entry
	Save(ctx context.Context, entry *ScheduleEntry) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, entry *ScheduleEntry) error
}

// QRPaymentRepository defines the interface for QR payment request persistence
type QRPaymentRepository interface {
	// FindByID finds a QR payment request by ID
	FindByID(ctx context.Context, id uuid.UUID) (*QRPayment, error)

	// FindOpenByToken finds the open (pending or underpaid) request carrying
	// the matching token
	FindOpenByToken(ctx context.Context, token string) (*QRPayment, error)

	// FindBlockingByInvoice finds a request that blocks issuing a new one
	// for the invoice (pending, underpaid or matched)
	FindBlockingByInvoice(ctx context.Context, invoiceID uuid.UUID) (*QRPayment, error)

	// FindExpiredOpen finds open requests whose deadline passed before asOf
	FindExpiredOpen(ctx context.Context, asOf time.Time) ([]*QRPayment, error)

	// Save creates or updates a QR payment request
	Save(ctx context.Context, qr *QRPayment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, qr *QRPayment) error
}

// BankTransactionRepository defines the interface for ingested bank
// transaction persistence
type BankTransactionRepository interface {
	// FindByBankTransactionID finds a stored transaction by the bank's id
	FindByBankTransactionID(ctx context.Context, bankTxnID string) (*BankTransaction, error)

	// FindUnmatched finds transactions stored for manual reconciliation
	FindUnmatched(ctx context.Context, propertyID uuid.UUID, filter shared.Filter) ([]*BankTransaction, error)

	// Save creates or updates a bank transaction record
	Save(ctx context.Context, txn *BankTransaction) error
}

// FolioRepository defines the interface for folio persistence
type FolioRepository interface {
	// FindByID finds a folio by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Folio, error)

	// FindByBooking finds the folio for a booking
	FindByBooking(ctx context.Context, propertyID, bookingID uuid.UUID) (*Folio, error)

	// Save creates or updates a folio
	Save(ctx context.Context, folio *Folio) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, folio *Folio) error

	// GenerateFolioNumber generates a unique folio number for a property
	GenerateFolioNumber(ctx context.Context, propertyID uuid.UUID) (string, error)
}
