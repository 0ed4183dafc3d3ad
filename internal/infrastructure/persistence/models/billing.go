package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	PropertyAggregateModel
	InvoiceNumber  string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_property_number,priority:2"`
	BookingID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	CustomerID     *uuid.UUID            `gorm:"type:uuid;index"`
	Kind           billing.InvoiceKind   `gorm:"type:varchar(20);not null"`
	Currency       valueobject.Currency  `gorm:"type:varchar(3);not null"`
	Subtotal       decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	ServiceCharge  decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TaxAmount      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	DiscountAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TotalAmount    decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	PaidAmount     decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Status         billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	InvoiceDate    time.Time             `gorm:"not null"`
	DueDate        *time.Time            `gorm:"index"`
	PaidAt         *time.Time
	CancelledAt    *time.Time
	CancelReason   string               `gorm:"type:varchar(500)"`
	RefundedAt     *time.Time
	Items          billing.InvoiceItems `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		InvoiceNumber:  m.InvoiceNumber,
		BookingID:      m.BookingID,
		CustomerID:     m.CustomerID,
		Kind:           m.Kind,
		Currency:       m.Currency,
		Subtotal:       m.Subtotal,
		ServiceCharge:  m.ServiceCharge,
		TaxAmount:      m.TaxAmount,
		DiscountAmount: m.DiscountAmount,
		TotalAmount:    m.TotalAmount,
		PaidAmount:     m.PaidAmount,
		Status:         m.Status,
		InvoiceDate:    m.InvoiceDate,
		DueDate:        m.DueDate,
		PaidAt:         m.PaidAt,
		CancelledAt:    m.CancelledAt,
		CancelReason:   m.CancelReason,
		RefundedAt:     m.RefundedAt,
		Items:          m.Items,
	}
	m.PopulatePropertyAggregateRoot(&inv.PropertyAggregateRoot)
	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainPropertyAggregateRoot(inv.PropertyAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.BookingID = inv.BookingID
	m.CustomerID = inv.CustomerID
	m.Kind = inv.Kind
	m.Currency = inv.Currency
	m.Subtotal = inv.Subtotal
	m.ServiceCharge = inv.ServiceCharge
	m.TaxAmount = inv.TaxAmount
	m.DiscountAmount = inv.DiscountAmount
	m.TotalAmount = inv.TotalAmount
	m.PaidAmount = inv.PaidAmount
	m.Status = inv.Status
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.PaidAt = inv.PaidAt
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
	m.RefundedAt = inv.RefundedAt
	m.Items = inv.Items
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
// Refunds share the table with regular payments, distinguished by kind.
type PaymentModel struct {
	PropertyAggregateModel
	PaymentNumber     string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_property_number,priority:2"`
	BookingID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	InvoiceID         *uuid.UUID            `gorm:"type:uuid;index"`
	Kind              billing.PaymentKind   `gorm:"type:varchar(20);not null;index"`
	Method            billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Amount            decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Currency          valueobject.Currency  `gorm:"type:varchar(3);not null"`
	Status            billing.PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ReferenceNumber   string                `gorm:"type:varchar(100)"`
	ReceivedBy        *uuid.UUID            `gorm:"type:uuid"`
	PaidAt            *time.Time
	FailureReason     string                 `gorm:"type:varchar(500)"`
	Details           billing.PaymentDetails `gorm:"type:jsonb;default:'{}'"`
	OriginalPaymentID *uuid.UUID             `gorm:"type:uuid;index"`
	RefundReason      string                 `gorm:"type:varchar(500)"`
	ApprovedBy        *uuid.UUID             `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	p := &billing.Payment{
		PaymentNumber:     m.PaymentNumber,
		BookingID:         m.BookingID,
		InvoiceID:         m.InvoiceID,
		Kind:              m.Kind,
		Method:            m.Method,
		Amount:            m.Amount,
		Currency:          m.Currency,
		Status:            m.Status,
		ReferenceNumber:   m.ReferenceNumber,
		ReceivedBy:        m.ReceivedBy,
		PaidAt:            m.PaidAt,
		FailureReason:     m.FailureReason,
		Details:           m.Details,
		OriginalPaymentID: m.OriginalPaymentID,
		RefundReason:      m.RefundReason,
		ApprovedBy:        m.ApprovedBy,
	}
	m.PopulatePropertyAggregateRoot(&p.PropertyAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainPropertyAggregateRoot(p.PropertyAggregateRoot)
	m.PaymentNumber = p.PaymentNumber
	m.BookingID = p.BookingID
	m.InvoiceID = p.InvoiceID
	m.Kind = p.Kind
	m.Method = p.Method
	m.Amount = p.Amount
	m.Currency = p.Currency
	m.Status = p.Status
	m.ReferenceNumber = p.ReferenceNumber
	m.ReceivedBy = p.ReceivedBy
	m.PaidAt = p.PaidAt
	m.FailureReason = p.FailureReason
	m.Details = p.Details
	m.OriginalPaymentID = p.OriginalPaymentID
	m.RefundReason = p.RefundReason
	m.ApprovedBy = p.ApprovedBy
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// DepositRuleModel is the persistence model for the DepositRule aggregate root.
type DepositRuleModel struct {
	PropertyAggregateModel
	Name              string                         `gorm:"type:varchar(200);not null"`
	CalculationType   billing.DepositCalculationType `gorm:"type:varchar(20);not null"`
	Value             decimal.Decimal                `gorm:"type:decimal(18,4);not null"`
	Priority          int                            `gorm:"not null;default:0"`
	IsActive          bool                           `gorm:"not null;default:true;index"`
	RoomTypeID        *uuid.UUID                     `gorm:"type:uuid;index"`
	MinStayNights     *int
	MaxStayNights     *int
	BookingWindowDays *int
	ValidFrom         *time.Time
	ValidTo           *time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (DepositRuleModel) TableName() string {
	return "deposit_rules"
}

// ToDomain converts the persistence model to a domain DepositRule entity.
func (m *DepositRuleModel) ToDomain() *billing.DepositRule {
	rule := &billing.DepositRule{
		Name:              m.Name,
		CalculationType:   m.CalculationType,
		Value:             m.Value,
		Priority:          m.Priority,
		IsActive:          m.IsActive,
		RoomTypeID:        m.RoomTypeID,
		MinStayNights:     m.MinStayNights,
		MaxStayNights:     m.MaxStayNights,
		BookingWindowDays: m.BookingWindowDays,
		ValidFrom:         m.ValidFrom,
		ValidTo:           m.ValidTo,
	}
	m.PopulatePropertyAggregateRoot(&rule.PropertyAggregateRoot)
	return rule
}

// FromDomain populates the persistence model from a domain DepositRule entity.
func (m *DepositRuleModel) FromDomain(rule *billing.DepositRule) {
	m.FromDomainPropertyAggregateRoot(rule.PropertyAggregateRoot)
	m.Name = rule.Name
	m.CalculationType = rule.CalculationType
	m.Value = rule.Value
	m.Priority = rule.Priority
	m.IsActive = rule.IsActive
	m.RoomTypeID = rule.RoomTypeID
	m.MinStayNights = rule.MinStayNights
	m.MaxStayNights = rule.MaxStayNights
	m.BookingWindowDays = rule.BookingWindowDays
	m.ValidFrom = rule.ValidFrom
	m.ValidTo = rule.ValidTo
}

// DepositRuleModelFromDomain creates a new persistence model from a domain DepositRule.
func DepositRuleModelFromDomain(rule *billing.DepositRule) *DepositRuleModel {
	m := &DepositRuleModel{}
	m.FromDomain(rule)
	return m
}

// ScheduleEntryModel is the persistence model for the ScheduleEntry aggregate root.
type ScheduleEntryModel struct {
	PropertyAggregateModel
	BookingID      uuid.UUID              `gorm:"type:uuid;not null;index"`
	ScheduleNumber int                    `gorm:"not null"`
	Description    string                 `gorm:"type:varchar(200);not null"`
	Amount         decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Currency       valueobject.Currency   `gorm:"type:varchar(3);not null"`
	DueDate        time.Time              `gorm:"not null;index"`
	Status         billing.ScheduleStatus `gorm:"type:varchar(20);not null;default:'SCHEDULED';index"`
	InvoiceID      *uuid.UUID             `gorm:"type:uuid;index"`
	PaidAt         *time.Time
}

// TableName returns the table name for GORM
func (ScheduleEntryModel) TableName() string {
	return "payment_schedule_entries"
}

// ToDomain converts the persistence model to a domain ScheduleEntry entity.
func (m *ScheduleEntryModel) ToDomain() *billing.ScheduleEntry {
	entry := &billing.ScheduleEntry{
		BookingID:      m.BookingID,
		ScheduleNumber: m.ScheduleNumber,
		Description:    m.Description,
		Amount:         m.Amount,
		Currency:       m.Currency,
		DueDate:        m.DueDate,
		Status:         m.Status,
		InvoiceID:      m.InvoiceID,
		PaidAt:         m.PaidAt,
	}
	m.PopulatePropertyAggregateRoot(&entry.PropertyAggregateRoot)
	return entry
}

// FromDomain populates the persistence model from a domain ScheduleEntry entity.
func (m *ScheduleEntryModel) FromDomain(entry *billing.ScheduleEntry) {
	m.FromDomainPropertyAggregateRoot(entry.PropertyAggregateRoot)
	m.BookingID = entry.BookingID
	m.ScheduleNumber = entry.ScheduleNumber
	m.Description = entry.Description
	m.Amount = entry.Amount
	m.Currency = entry.Currency
	m.DueDate = entry.DueDate
	m.Status = entry.Status
	m.InvoiceID = entry.InvoiceID
	m.PaidAt = entry.PaidAt
}

// ScheduleEntryModelFromDomain creates a new persistence model from a domain ScheduleEntry.
func ScheduleEntryModelFromDomain(entry *billing.ScheduleEntry) *ScheduleEntryModel {
	m := &ScheduleEntryModel{}
	m.FromDomain(entry)
	return m
}

// QRPaymentModel is the persistence model for the QRPayment aggregate root.
type QRPaymentModel struct {
	PropertyAggregateModel
	BookingID       uuid.UUID               `gorm:"type:uuid;not null;index"`
	InvoiceID       uuid.UUID               `gorm:"type:uuid;not null;index"`
	MatchingToken   string                  `gorm:"type:varchar(20);not null;index"`
	TransferContent string                  `gorm:"type:varchar(200);not null"`
	ExpectedAmount  decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	ReceivedAmount  decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Currency        valueobject.Currency    `gorm:"type:varchar(3);not null"`
	Status          billing.QRPaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ExpiresAt       time.Time               `gorm:"not null;index"`
	MatchedAt       *time.Time
	FailureReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (QRPaymentModel) TableName() string {
	return "qr_payments"
}

// ToDomain converts the persistence model to a domain QRPayment entity.
func (m *QRPaymentModel) ToDomain() *billing.QRPayment {
	qr := &billing.QRPayment{
		BookingID:       m.BookingID,
		InvoiceID:       m.InvoiceID,
		MatchingToken:   m.MatchingToken,
		TransferContent: m.TransferContent,
		ExpectedAmount:  m.ExpectedAmount,
		ReceivedAmount:  m.ReceivedAmount,
		Currency:        m.Currency,
		Status:          m.Status,
		ExpiresAt:       m.ExpiresAt,
		MatchedAt:       m.MatchedAt,
		FailureReason:   m.FailureReason,
	}
	m.PopulatePropertyAggregateRoot(&qr.PropertyAggregateRoot)
	return qr
}

// FromDomain populates the persistence model from a domain QRPayment entity.
func (m *QRPaymentModel) FromDomain(qr *billing.QRPayment) {
	m.FromDomainPropertyAggregateRoot(qr.PropertyAggregateRoot)
	m.BookingID = qr.BookingID
	m.InvoiceID = qr.InvoiceID
	m.MatchingToken = qr.MatchingToken
	m.TransferContent = qr.TransferContent
	m.ExpectedAmount = qr.ExpectedAmount
	m.ReceivedAmount = qr.ReceivedAmount
	m.Currency = qr.Currency
	m.Status = qr.Status
	m.ExpiresAt = qr.ExpiresAt
	m.MatchedAt = qr.MatchedAt
	m.FailureReason = qr.FailureReason
}

// QRPaymentModelFromDomain creates a new persistence model from a domain QRPayment.
func QRPaymentModelFromDomain(qr *billing.QRPayment) *QRPaymentModel {
	m := &QRPaymentModel{}
	m.FromDomain(qr)
	return m
}

// BankTransactionModel is the persistence model for ingested bank transactions.
// The unique index on the bank's transaction id is the durable dedup layer
// behind the idempotency store.
type BankTransactionModel struct {
	BaseModel
	PropertyID        uuid.UUID                     `gorm:"type:uuid;not null;index"`
	BankTransactionID string                        `gorm:"type:varchar(100);not null;uniqueIndex"`
	Amount            decimal.Decimal               `gorm:"type:decimal(18,4);not null"`
	Currency          valueobject.Currency          `gorm:"type:varchar(3);not null"`
	Memo              string                        `gorm:"type:varchar(500)"`
	OccurredAt        time.Time                     `gorm:"not null"`
	Status            billing.BankTransactionStatus `gorm:"type:varchar(20);not null;index"`
	QRPaymentID       *uuid.UUID                    `gorm:"type:uuid;index"`
	PaymentID         *uuid.UUID                    `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (BankTransactionModel) TableName() string {
	return "bank_transactions"
}

// ToDomain converts the persistence model to a domain BankTransaction entity.
func (m *BankTransactionModel) ToDomain() *billing.BankTransaction {
	return &billing.BankTransaction{
		BaseEntity:        m.BaseModel.ToDomain(),
		PropertyID:        m.PropertyID,
		BankTransactionID: m.BankTransactionID,
		Amount:            m.Amount,
		Currency:          m.Currency,
		Memo:              m.Memo,
		OccurredAt:        m.OccurredAt,
		Status:            m.Status,
		QRPaymentID:       m.QRPaymentID,
		PaymentID:         m.PaymentID,
	}
}

// FromDomain populates the persistence model from a domain BankTransaction entity.
func (m *BankTransactionModel) FromDomain(txn *billing.BankTransaction) {
	m.FromDomainBaseEntity(txn.BaseEntity)
	m.PropertyID = txn.PropertyID
	m.BankTransactionID = txn.BankTransactionID
	m.Amount = txn.Amount
	m.Currency = txn.Currency
	m.Memo = txn.Memo
	m.OccurredAt = txn.OccurredAt
	m.Status = txn.Status
	m.QRPaymentID = txn.QRPaymentID
	m.PaymentID = txn.PaymentID
}

// BankTransactionModelFromDomain creates a new persistence model from a domain BankTransaction.
func BankTransactionModelFromDomain(txn *billing.BankTransaction) *BankTransactionModel {
	m := &BankTransactionModel{}
	m.FromDomain(txn)
	return m
}

// FolioModel is the persistence model for the Folio aggregate root.
type FolioModel struct {
	PropertyAggregateModel
	FolioNumber string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_folio_property_number,priority:2"`
	BookingID   uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_folio_property_booking,priority:2"`
	Status      billing.FolioStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	ClosedAt    *time.Time
	ClosedBy    *uuid.UUID `gorm:"type:uuid"`
	ReopenedAt  *time.Time
	ReopenedBy  *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (FolioModel) TableName() string {
	return "folios"
}

// ToDomain converts the persistence model to a domain Folio entity.
func (m *FolioModel) ToDomain() *billing.Folio {
	f := &billing.Folio{
		FolioNumber: m.FolioNumber,
		BookingID:   m.BookingID,
		Status:      m.Status,
		ClosedAt:    m.ClosedAt,
		ClosedBy:    m.ClosedBy,
		ReopenedAt:  m.ReopenedAt,
		ReopenedBy:  m.ReopenedBy,
	}
	m.PopulatePropertyAggregateRoot(&f.PropertyAggregateRoot)
	return f
}

// FromDomain populates the persistence model from a domain Folio entity.
func (m *FolioModel) FromDomain(f *billing.Folio) {
	m.FromDomainPropertyAggregateRoot(f.PropertyAggregateRoot)
	m.FolioNumber = f.FolioNumber
	m.BookingID = f.BookingID
	m.Status = f.Status
	m.ClosedAt = f.ClosedAt
	m.ClosedBy = f.ClosedBy
	m.ReopenedAt = f.ReopenedAt
	m.ReopenedBy = f.ReopenedBy
}

// FolioModelFromDomain creates a new persistence model from a domain Folio.
func FolioModelFromDomain(f *billing.Folio) *FolioModel {
	m := &FolioModel{}
	m.FromDomain(f)
	return m
}
