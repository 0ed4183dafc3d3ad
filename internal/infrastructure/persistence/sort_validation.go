package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
// Sort fields come from request parameters and are interpolated into ORDER BY,
// so everything outside the whitelist is rejected.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"booking_id":     true,
	"customer_id":    true,
	"kind":           true,
	"status":         true,
	"total_amount":   true,
	"paid_amount":    true,
	"invoice_date":   true,
	"due_date":       true,
	"paid_at":        true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"payment_number": true,
	"booking_id":     true,
	"invoice_id":     true,
	"kind":           true,
	"method":         true,
	"status":         true,
	"amount":         true,
	"paid_at":        true,
}

// DepositRuleSortFields contains allowed sort fields for deposit rules
var DepositRuleSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"priority":   true,
	"is_active":  true,
	"value":      true,
	"valid_from": true,
	"valid_to":   true,
}

// ScheduleEntrySortFields contains allowed sort fields for payment schedule entries
var ScheduleEntrySortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"booking_id":      true,
	"schedule_number": true,
	"due_date":        true,
	"status":          true,
	"amount":          true,
	"paid_at":         true,
}

// QRPaymentSortFields contains allowed sort fields for QR payment requests
var QRPaymentSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"booking_id":      true,
	"invoice_id":      true,
	"status":          true,
	"expected_amount": true,
	"received_amount": true,
	"expires_at":      true,
	"matched_at":      true,
}

// BankTransactionSortFields contains allowed sort fields for bank transactions
var BankTransactionSortFields = map[string]bool{
	"id":                  true,
	"created_at":          true,
	"updated_at":          true,
	"bank_transaction_id": true,
	"amount":              true,
	"status":              true,
	"occurred_at":         true,
}

// FolioSortFields contains allowed sort fields for folios
var FolioSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"folio_number": true,
	"booking_id":   true,
	"status":       true,
	"closed_at":    true,
}
