package billing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// In-memory fakes backing the service tests. They enforce the same
// optimistic-locking contract as the GORM repositories: SaveWithLock fails
// with ErrConcurrencyConflict when the stored version moved, and reads
// return copies so a retry attempt observes committed state rather than
// its own in-flight mutations. Setting a repo's conflicts counter makes
// the next n SaveWithLock calls lose the race.

type fakeBookingReader struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*billing.Booking
}

func newFakeBookingReader(bookings ...*billing.Booking) *fakeBookingReader {
	r := &fakeBookingReader{bookings: make(map[uuid.UUID]*billing.Booking)}
	for _, b := range bookings {
		r.bookings[b.ID] = b
	}
	return r
}

func (r *fakeBookingReader) FindByID(_ context.Context, id uuid.UUID) (*billing.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bookings[id], nil
}

type fakeInvoiceRepo struct {
	mu        sync.Mutex
	invoices  map[uuid.UUID]*billing.Invoice
	seq       int
	conflicts int
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*billing.Invoice)}
}

func cloneInvoice(inv *billing.Invoice) *billing.Invoice {
	cp := *inv
	return &cp
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

func (r *fakeInvoiceRepo) FindByIDForProperty(_ context.Context, propertyID, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv := r.invoices[id]
	if inv == nil || inv.PropertyID != propertyID {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

func (r *fakeInvoiceRepo) FindByInvoiceNumber(_ context.Context, propertyID uuid.UUID, number string) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.PropertyID == propertyID && inv.InvoiceNumber == number {
			return cloneInvoice(inv), nil
		}
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) FindByBooking(_ context.Context, propertyID, bookingID uuid.UUID) ([]*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.PropertyID == propertyID && inv.BookingID == bookingID {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindAllForProperty(_ context.Context, propertyID uuid.UUID, _ billing.InvoiceFilter) ([]*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.PropertyID == propertyID {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindOverdue(_ context.Context, propertyID uuid.UUID, asOf time.Time) ([]*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.PropertyID == propertyID && inv.IsOverdue(asOf) {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) Save(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[invoice.ID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts > 0 {
		r.conflicts--
		return shared.ErrConcurrencyConflict
	}
	stored, ok := r.invoices[invoice.ID]
	if ok && stored != invoice && stored.Version >= invoice.Version {
		return shared.ErrConcurrencyConflict
	}
	r.invoices[invoice.ID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) CountForProperty(_ context.Context, propertyID uuid.UUID, _ billing.InvoiceFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, inv := range r.invoices {
		if inv.PropertyID == propertyID {
			n++
		}
	}
	return n, nil
}

func (r *fakeInvoiceRepo) GenerateInvoiceNumber(_ context.Context, _ uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("INV-20260115-%05d", r.seq), nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*billing.Payment
	seq      int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*billing.Payment)}
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payments[id], nil
}

func (r *fakePaymentRepo) FindByIDForProperty(_ context.Context, propertyID, id uuid.UUID) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.payments[id]
	if p == nil || p.PropertyID != propertyID {
		return nil, nil
	}
	return p, nil
}

func (r *fakePaymentRepo) FindByBooking(_ context.Context, propertyID, bookingID uuid.UUID) ([]*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Payment
	for _, p := range r.payments {
		if p.PropertyID == propertyID && p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindByInvoice(_ context.Context, propertyID, invoiceID uuid.UUID) ([]*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Payment
	for _, p := range r.payments {
		if p.PropertyID == propertyID && p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindAllForProperty(_ context.Context, propertyID uuid.UUID, _ billing.PaymentFilter) ([]*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Payment
	for _, p := range r.payments {
		if p.PropertyID == propertyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindRefundsOfPayment(_ context.Context, originalID uuid.UUID) ([]*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Payment
	for _, p := range r.payments {
		if p.OriginalPaymentID != nil && *p.OriginalPaymentID == originalID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) SumRefundsOfPayment(_ context.Context, originalID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, p := range r.payments {
		if p.OriginalPaymentID != nil && *p.OriginalPaymentID == originalID &&
			p.Status == billing.PaymentStatusCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (r *fakePaymentRepo) Save(_ context.Context, payment *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[payment.ID] = payment
	return nil
}

func (r *fakePaymentRepo) SaveWithLock(_ context.Context, payment *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[payment.ID] = payment
	return nil
}

func (r *fakePaymentRepo) GeneratePaymentNumber(_ context.Context, _ uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("PAY-20260115-%05d", r.seq), nil
}

type fakeRuleRepo struct {
	mu    sync.Mutex
	rules []*billing.DepositRule
}

func newFakeRuleRepo(rules ...*billing.DepositRule) *fakeRuleRepo {
	return &fakeRuleRepo{rules: rules}
}

func (r *fakeRuleRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.DepositRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, nil
}

func (r *fakeRuleRepo) FindActiveForProperty(_ context.Context, propertyID uuid.UUID) ([]*billing.DepositRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.DepositRule
	for _, rule := range r.rules {
		if rule.PropertyID == propertyID && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) FindAllForProperty(_ context.Context, propertyID uuid.UUID, _ shared.Filter) ([]*billing.DepositRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.DepositRule
	for _, rule := range r.rules {
		if rule.PropertyID == propertyID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) Save(_ context.Context, rule *billing.DepositRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
	return nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rule := range r.rules {
		if rule.ID == id {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeScheduleRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*billing.ScheduleEntry
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{entries: make(map[uuid.UUID]*billing.ScheduleEntry)}
}

func (r *fakeScheduleRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.ScheduleEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id], nil
}

func (r *fakeScheduleRepo) FindByBooking(_ context.Context, propertyID, bookingID uuid.UUID) ([]*billing.ScheduleEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.ScheduleEntry
	for _, e := range r.entries {
		if e.PropertyID == propertyID && e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) FindDueBefore(_ context.Context, propertyID uuid.UUID, asOf time.Time) ([]*billing.ScheduleEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.ScheduleEntry
	for _, e := range r.entries {
		if e.PropertyID == propertyID && e.IsOverdue(asOf) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) SaveAll(_ context.Context, bookingID uuid.UUID, entries []*billing.ScheduleEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if e.BookingID == bookingID && !e.Status.IsTerminal() {
			delete(r.entries, id)
		}
	}
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *fakeScheduleRepo) Save(_ context.Context, entry *billing.ScheduleEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry
	return nil
}

func (r *fakeScheduleRepo) SaveWithLock(_ context.Context, entry *billing.ScheduleEntry) error {
	return r.Save(context.Background(), entry)
}

type fakeQRRepo struct {
	mu        sync.Mutex
	requests  map[uuid.UUID]*billing.QRPayment
	conflicts int
}

func newFakeQRRepo() *fakeQRRepo {
	return &fakeQRRepo{requests: make(map[uuid.UUID]*billing.QRPayment)}
}

func cloneQRPayment(qr *billing.QRPayment) *billing.QRPayment {
	cp := *qr
	return &cp
}

func (r *fakeQRRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.QRPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	qr, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	return cloneQRPayment(qr), nil
}

func (r *fakeQRRepo) FindOpenByToken(_ context.Context, token string) (*billing.QRPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, qr := range r.requests {
		if strings.EqualFold(qr.MatchingToken, token) && qr.Status.IsOpen() {
			return cloneQRPayment(qr), nil
		}
	}
	return nil, nil
}

func (r *fakeQRRepo) FindBlockingByInvoice(_ context.Context, invoiceID uuid.UUID) (*billing.QRPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, qr := range r.requests {
		if qr.InvoiceID == invoiceID && qr.Status.Blocking() {
			return cloneQRPayment(qr), nil
		}
	}
	return nil, nil
}

func (r *fakeQRRepo) FindExpiredOpen(_ context.Context, asOf time.Time) ([]*billing.QRPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.QRPayment
	for _, qr := range r.requests {
		if qr.Status.IsOpen() && qr.IsExpired(asOf) {
			out = append(out, cloneQRPayment(qr))
		}
	}
	return out, nil
}

func (r *fakeQRRepo) Save(_ context.Context, qr *billing.QRPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[qr.ID] = qr
	return nil
}

func (r *fakeQRRepo) SaveWithLock(_ context.Context, qr *billing.QRPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts > 0 {
		r.conflicts--
		return shared.ErrConcurrencyConflict
	}
	stored, ok := r.requests[qr.ID]
	if ok && stored != qr && stored.Version >= qr.Version {
		return shared.ErrConcurrencyConflict
	}
	r.requests[qr.ID] = qr
	return nil
}

type fakeBankTxnRepo struct {
	mu   sync.Mutex
	txns map[string]*billing.BankTransaction
}

func newFakeBankTxnRepo() *fakeBankTxnRepo {
	return &fakeBankTxnRepo{txns: make(map[string]*billing.BankTransaction)}
}

func (r *fakeBankTxnRepo) FindByBankTransactionID(_ context.Context, bankTxnID string) (*billing.BankTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.txns[bankTxnID], nil
}

func (r *fakeBankTxnRepo) FindUnmatched(_ context.Context, propertyID uuid.UUID, _ shared.Filter) ([]*billing.BankTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.BankTransaction
	for _, t := range r.txns {
		if t.Status == billing.BankTxnStatusUnmatched {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeBankTxnRepo) Save(_ context.Context, txn *billing.BankTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txns[txn.BankTransactionID] = txn
	return nil
}

type fakeFolioRepo struct {
	mu        sync.Mutex
	folios    map[uuid.UUID]*billing.Folio
	seq       int
	conflicts int
}

func newFakeFolioRepo() *fakeFolioRepo {
	return &fakeFolioRepo{folios: make(map[uuid.UUID]*billing.Folio)}
}

func cloneFolio(f *billing.Folio) *billing.Folio {
	cp := *f
	return &cp
}

func (r *fakeFolioRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Folio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folios[id]
	if !ok {
		return nil, nil
	}
	return cloneFolio(f), nil
}

func (r *fakeFolioRepo) FindByBooking(_ context.Context, propertyID, bookingID uuid.UUID) (*billing.Folio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.folios {
		if f.PropertyID == propertyID && f.BookingID == bookingID {
			return cloneFolio(f), nil
		}
	}
	return nil, nil
}

func (r *fakeFolioRepo) Save(_ context.Context, folio *billing.Folio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.folios[folio.ID] = folio
	return nil
}

func (r *fakeFolioRepo) SaveWithLock(_ context.Context, folio *billing.Folio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts > 0 {
		r.conflicts--
		return shared.ErrConcurrencyConflict
	}
	stored, ok := r.folios[folio.ID]
	if ok && stored != folio && stored.Version >= folio.Version {
		return shared.ErrConcurrencyConflict
	}
	r.folios[folio.ID] = folio
	return nil
}

func (r *fakeFolioRepo) GenerateFolioNumber(_ context.Context, _ uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("FOL-20260115-%05d", r.seq), nil
}

type fakeIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[key], nil
}

func (s *fakeIdempotencyStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
	return nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}
