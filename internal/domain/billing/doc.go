// Package billing provides the domain model for hotel billing and payment
// reconciliation.
//
// This package implements the billing bounded context, which is responsible
// for:
//   - Issuing deposit, partial, final and additional invoices for bookings
//   - Evaluating deposit rules to price a booking's deposit
//   - Recording payments and refunds against invoices
//   - Planning payment schedules and tracking installment state
//   - Matching incoming bank transfers to QR payment requests
//   - Aggregating a booking's financial position into a folio
//
// Key Aggregates:
//   - Invoice: A priced document with line items and a payment lifecycle
//   - Payment: A completed payment or refund, optionally applied to an invoice
//   - DepositRule: A prioritized rule for computing booking deposits
//   - ScheduleEntry: One planned installment of a booking's payment schedule
//   - QRPayment: A QR transfer request awaiting bank reconciliation
//   - Folio: The per-booking account that freezes billing once closed
//
// Money amounts are carried as decimals with an explicit currency; arithmetic
// on mismatched currencies is rejected rather than coerced.
//
// The billing domain reads bookings from the reservations subsystem through
// the BookingReader port and never writes to it.
package billing
