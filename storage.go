package reconbank

// DB gateway: bbolt buckets stand in for the ERP tables (MovHeader,
// MovInvoices, LedgerEntry, APInvoice, ...), with values encoded via
// encoding/gob.

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.etcd.io/bbolt"
)

var decZero = decimal.Zero

func mustParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var (
	bucketMovements     = []byte("mov_header")
	bucketMovInvoices   = []byte("mov_invoices")
	bucketLedgerEntries = []byte("ledger_entry")
	bucketAPInvoices    = []byte("ap_invoice")
	bucketAPPayments    = []byte("ap_payment")
	bucketAPPayLinks    = []byte("ap_payment_link")
	bucketARInvoices    = []byte("ar_invoice")
	bucketARCollections = []byte("ar_collection")
	bucketLedgerBalance = []byte("ledger_balance")
	bucketCounters      = []byte("counters")
	bucketJobsLog       = []byte("jobs_log")
)

var allBuckets = [][]byte{
	bucketMovements, bucketMovInvoices, bucketLedgerEntries,
	bucketAPInvoices, bucketAPPayments, bucketAPPayLinks,
	bucketARInvoices, bucketARCollections, bucketLedgerBalance,
	bucketCounters, bucketJobsLog,
}

// Storage wraps a bbolt database providing the typed operations the
// executor and read-only processor lookups need.
type Storage struct {
	db *bbolt.DB
}

// OpenStorage opens (creating if absent) the bbolt database at path and
// ensures every bucket exists.
func OpenStorage(path string) (*Storage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("reconbank: open storage: %w", err)
	}
	s := &Storage{db: db}
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("reconbank: init buckets: %w", err)
	}
	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Update exposes a raw write transaction to callers outside the package,
// for seeding side-channel data (invoice tax breakdowns, historical ledger
// balances) ahead of a dispatch run.
func (s *Storage) Update(fn func(tx *bbolt.Tx) error) error {
	return s.db.Update(fn)
}

// View is the read-only counterpart to Update.
func (s *Storage) View(fn func(tx *bbolt.Tx) error) error {
	return s.db.View(fn)
}

func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("bucket %s: %w", b, err)
			}
		}
		return nil
	})
}

func gobEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func int64Key(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

// --- monotonic counters ---

// NextFolio mints the next globally-unique Folio inside the given write
// transaction. bbolt's single-writer semantics per *bbolt.DB guarantee
// two concurrent write transactions can never observe and commit the
// same next value.
func (s *Storage) NextFolio(tx *bbolt.Tx) (int64, error) {
	return s.nextCounter(tx, "folio")
}

// NextLedger mints the next LedgerNumber, unique within the BANK-MVMT
// ledger source stream.
func (s *Storage) NextLedger(tx *bbolt.Tx) (int64, error) {
	return s.nextCounter(tx, "ledger")
}

func (s *Storage) nextCounter(tx *bbolt.Tx, name string) (int64, error) {
	b := tx.Bucket(bucketCounters)
	key := []byte(name)
	var current int64
	if raw := b.Get(key); raw != nil {
		current = int64(binary.BigEndian.Uint64(raw))
	}
	next := current + 1
	if err := b.Put(key, int64Key(next)); err != nil {
		return 0, err
	}
	return next, nil
}

// --- movement natural-key idempotency lookup ---

// movementKey is the (bank, account, year, month, day, description,
// amount-on-correct-side) natural key used for idempotent lookup.
type movementKey struct {
	Bank        string
	Account     string
	Year, Month, Day int
	Description string
	Income      bool // true if matching on Income side, false on Expense side
	Amount      string // decimal.String(); exact string compare, no float drift
}

func naturalKey(m MovementRow) movementKey {
	income := m.Income.IsPositive()
	amount := m.Expense.String()
	if income {
		amount = m.Income.String()
	}
	return movementKey{
		Bank: m.Bank, Account: m.Account,
		Year: m.Date.Year(), Month: int(m.Date.Month()), Day: m.Date.Day(),
		Description: m.Description, Income: income, Amount: amount,
	}
}

func (k movementKey) bytes() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s|%s|%04d%02d%02d|%s|%v|%s", k.Bank, k.Account, k.Year, k.Month, k.Day, k.Description, k.Income, k.Amount)
	return buf.Bytes()
}

// naturalKeyIndex bucket value: folio the natural key currently maps to.
var bucketNaturalKeyIndex = []byte("mov_natural_key_index")

func init() {
	allBuckets = append(allBuckets, bucketNaturalKeyIndex)
}

// LookupUnreconciled returns the folio and reconciled flag of a pre-existing
// movement matching m's natural key, or found=false if none exists.
func (s *Storage) LookupUnreconciled(tx *bbolt.Tx, m MovementRow) (folio int64, reconciled bool, found bool, err error) {
	idx := tx.Bucket(bucketNaturalKeyIndex)
	raw := idx.Get(naturalKey(m).bytes())
	if raw == nil {
		return 0, false, false, nil
	}
	folio = int64(binary.BigEndian.Uint64(raw))
	row, err := s.getMovement(tx, folio)
	if err != nil {
		return 0, false, false, err
	}
	return folio, row.Reconciled, true, nil
}

// Reconcile marks the movement at folio as reconciled.
func (s *Storage) Reconcile(tx *bbolt.Tx, folio int64) error {
	row, err := s.getMovement(tx, folio)
	if err != nil {
		return err
	}
	row.Reconciled = true
	return s.putMovement(tx, folio, row)
}

func (s *Storage) getMovement(tx *bbolt.Tx, folio int64) (MovementRow, error) {
	var row MovementRow
	raw := tx.Bucket(bucketMovements).Get(int64Key(folio))
	if raw == nil {
		return row, fmt.Errorf("reconbank: no movement with folio %d", folio)
	}
	err := gobDecode(raw, &row)
	return row, err
}

func (s *Storage) putMovement(tx *bbolt.Tx, folio int64, row MovementRow) error {
	data, err := gobEncode(row)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMovements).Put(int64Key(folio), data)
}

// InsertMovement writes a new MovHeader row under the given (freshly minted)
// folio and indexes its natural key for future idempotency lookups.
func (s *Storage) InsertMovement(tx *bbolt.Tx, folio int64, row MovementRow) error {
	row.Folio = folio
	if err := s.putMovement(tx, folio, row); err != nil {
		return err
	}
	return tx.Bucket(bucketNaturalKeyIndex).Put(naturalKey(row).bytes(), int64Key(folio))
}

// UpdateMovementLedgerNumber sets the ledger pointer on an already-inserted
// movement, the last step of the cyclic movement<->ledger reference.
func (s *Storage) UpdateMovementLedgerNumber(tx *bbolt.Tx, folio, ledgerNumber int64) error {
	row, err := s.getMovement(tx, folio)
	if err != nil {
		return err
	}
	row.LedgerNumber = ledgerNumber
	return s.putMovement(tx, folio, row)
}

// --- invoice links, ledger lines, AP invoices ---

type invoiceLinkRecord struct {
	Folio int64
	Row   InvoiceLinkRow
}

func (s *Storage) InsertInvoiceLink(tx *bbolt.Tx, folio int64, row InvoiceLinkRow) error {
	b := tx.Bucket(bucketMovInvoices)
	seq, _ := b.NextSequence()
	data, err := gobEncode(invoiceLinkRecord{Folio: folio, Row: row})
	if err != nil {
		return err
	}
	return b.Put(int64Key(int64(seq)), data)
}

type ledgerLineRecord struct {
	LedgerNumber int64
	SourceFolio  int64
	Movement     int // 1-based line index within the entry
	Line         LedgerLine
}

// InsertLedger writes lines under ledgerNumber, each stamped with
// sourceFolio so every ledger entry has at least one referencing
// movement and never dangles.
func (s *Storage) InsertLedger(tx *bbolt.Tx, ledgerNumber, sourceFolio int64, lines []LedgerLine) error {
	b := tx.Bucket(bucketLedgerEntries)
	for i, line := range lines {
		rec := ledgerLineRecord{LedgerNumber: ledgerNumber, SourceFolio: sourceFolio, Movement: i + 1, Line: line}
		data, err := gobEncode(rec)
		if err != nil {
			return err
		}
		key := append(int64Key(ledgerNumber), int64Key(int64(i))...)
		if err := b.Put(key, data); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) InsertAPInvoice(tx *bbolt.Tx, row APInvoiceRow) error {
	b := tx.Bucket(bucketAPInvoices)
	seq, _ := b.NextSequence()
	data, err := gobEncode(row)
	if err != nil {
		return err
	}
	return b.Put(int64Key(int64(seq)), data)
}

// APPaymentLinkRecord ties an AP invoice payment (by supplier+invoice ref)
// to the movement folio that settled it, and the amount applied.
type APPaymentLinkRecord struct {
	Supplier string
	Invoice  string
	Folio    int64
	Amount   string // decimal string
}

func (s *Storage) InsertAPPaymentLink(tx *bbolt.Tx, rec APPaymentLinkRecord) error {
	b := tx.Bucket(bucketAPPayLinks)
	seq, _ := b.NextSequence()
	data, err := gobEncode(rec)
	if err != nil {
		return err
	}
	return b.Put(int64Key(int64(seq)), data)
}

// APInvoicePending is a pending AP invoice available for expense-account
// payment matching.
type APInvoicePending struct {
	Supplier string
	Invoice  string
	Total    float64 // informational snapshot; authoritative balance tracked via decimal strings below
	TotalDec string
	BalanceDec string
	VATDec     string
	Status   string
}

// Registry processors and tests populate directly for the
// expense-account payment matcher's open-balance query.
var bucketAPInvoicesPending = []byte("ap_invoice_pending")

func init() {
	allBuckets = append(allBuckets, bucketAPInvoicesPending)
}

func (s *Storage) PutPendingAPInvoice(tx *bbolt.Tx, inv APInvoicePending) error {
	data, err := gobEncode(inv)
	if err != nil {
		return err
	}
	key := []byte(inv.Supplier + "|" + inv.Invoice)
	return tx.Bucket(bucketAPInvoicesPending).Put(key, data)
}

// GetPendingAPInvoice retrieves one AP invoice by its natural key
// (supplier, invoice), the settlement-accurate counterpart to
// UnpaidAPInvoiceByAmount used once a settlement already names the
// invoice it paid down.
func (s *Storage) GetPendingAPInvoice(tx *bbolt.Tx, supplier, invoice string) (APInvoicePending, bool, error) {
	raw := tx.Bucket(bucketAPInvoicesPending).Get([]byte(supplier + "|" + invoice))
	if raw == nil {
		return APInvoicePending{}, false, nil
	}
	var inv APInvoicePending
	if err := gobDecode(raw, &inv); err != nil {
		return APInvoicePending{}, false, err
	}
	return inv, true, nil
}

// UnpaidAPInvoiceByAmount scans pending AP invoices for one whose total is
// within tol of amount and whose balance is positive. Returns found=false
// if none match; matches the closest amount when several qualify.
func (s *Storage) UnpaidAPInvoiceByAmount(tx *bbolt.Tx, amount, tol decimal.Decimal) (APInvoicePending, bool, error) {
	b := tx.Bucket(bucketAPInvoicesPending)
	c := b.Cursor()
	var best APInvoicePending
	var bestDiff decimal.Decimal
	found := false
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var inv APInvoicePending
		if err := gobDecode(v, &inv); err != nil {
			return APInvoicePending{}, false, err
		}
		if inv.Status == "PAID" || !mustParseDecimal(inv.BalanceDec).IsPositive() {
			continue
		}
		total := mustParseDecimal(inv.TotalDec)
		diff := total.Sub(amount).Abs()
		if diff.GreaterThan(tol) {
			continue
		}
		if !found || diff.LessThan(bestDiff) {
			best, bestDiff, found = inv, diff, true
		}
	}
	return best, found, nil
}

// --- AR invoices / collections ---

type ARInvoicePending struct {
	Number     string
	BalanceDec string
}

var bucketARInvoicesPending = []byte("ar_invoice_pending")

func init() {
	allBuckets = append(allBuckets, bucketARInvoicesPending)
}

func (s *Storage) PutPendingARInvoice(tx *bbolt.Tx, inv ARInvoicePending) error {
	data, err := gobEncode(inv)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketARInvoicesPending).Put([]byte(inv.Number), data)
}

func (s *Storage) GetPendingARInvoice(tx *bbolt.Tx, number string) (ARInvoicePending, bool, error) {
	raw := tx.Bucket(bucketARInvoicesPending).Get([]byte(number))
	if raw == nil {
		return ARInvoicePending{}, false, nil
	}
	var inv ARInvoicePending
	err := gobDecode(raw, &inv)
	return inv, true, err
}

// PendingARInvoiceByAmount scans for an AR invoice whose balance is within
// tol of amount, the collection processor's fallback when no invoice
// number can be parsed from the description or the parsed number names no
// pending invoice.
func (s *Storage) PendingARInvoiceByAmount(tx *bbolt.Tx, amount, tol decimal.Decimal) (ARInvoicePending, bool, error) {
	b := tx.Bucket(bucketARInvoicesPending)
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var inv ARInvoicePending
		if err := gobDecode(v, &inv); err != nil {
			return ARInvoicePending{}, false, err
		}
		bal := mustParseDecimal(inv.BalanceDec)
		if bal.Sub(amount).Abs().LessThanOrEqual(tol) {
			return inv, true, nil
		}
	}
	return ARInvoicePending{}, false, nil
}

func (s *Storage) UpdateARInvoiceBalance(tx *bbolt.Tx, number string, newBalance decimal.Decimal) error {
	inv, found, err := s.GetPendingARInvoice(tx, number)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("reconbank: AR invoice %s not found", number)
	}
	inv.BalanceDec = newBalance.String()
	data, err := gobEncode(inv)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketARInvoicesPending).Put([]byte(number), data)
}

func (s *Storage) InsertARCollection(tx *bbolt.Tx, invoiceNumber string, folio int64, amount decimal.Decimal) error {
	b := tx.Bucket(bucketARCollections)
	seq, _ := b.NextSequence()
	data, err := gobEncode(struct {
		Invoice string
		Folio   int64
		Amount  string
	}{invoiceNumber, folio, amount.String()})
	if err != nil {
		return err
	}
	return b.Put(int64Key(int64(seq)), data)
}

// --- supplier/customer pending-reconciliation rows (SAVCheqPM analogue) ---

// PendingReconciliation is an already-present, unreconciled movement the
// supplier-payment / customer-collection processors search against (rows
// inserted by other ERP modules, never by this engine).
type PendingReconciliation struct {
	Folio       int64
	Account     string
	Date        time.Time
	AmountDec   string
	Concept     string
	Reconciled  bool
	Kind        string // "SUPPLIER" or "CUSTOMER"
}

var bucketPendingReconciliations = []byte("pending_reconciliations")

func init() {
	allBuckets = append(allBuckets, bucketPendingReconciliations)
}

func (s *Storage) PutPendingReconciliation(tx *bbolt.Tx, row PendingReconciliation) error {
	data, err := gobEncode(row)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketPendingReconciliations).Put(int64Key(row.Folio), data)
}

// FindPendingReconciliation searches for an unreconciled row matching
// account, kind, date window, and amount tolerance, ordered by closest
// amount (matches conciliacion_pagos.py / conciliacion_cobros.py).
func (s *Storage) FindPendingReconciliation(tx *bbolt.Tx, account, kind string, date time.Time, windowDays int, amount, tol decimal.Decimal) (PendingReconciliation, bool, error) {
	b := tx.Bucket(bucketPendingReconciliations)
	c := b.Cursor()
	var best PendingReconciliation
	var bestDiff decimal.Decimal
	found := false
	minDate := date.AddDate(0, 0, -windowDays)
	maxDate := date.AddDate(0, 0, windowDays)
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var row PendingReconciliation
		if err := gobDecode(v, &row); err != nil {
			return PendingReconciliation{}, false, err
		}
		if row.Reconciled || row.Account != account || row.Kind != kind {
			continue
		}
		if row.Date.Before(minDate) || row.Date.After(maxDate) {
			continue
		}
		rowAmt := mustParseDecimal(row.AmountDec)
		diff := rowAmt.Sub(amount).Abs()
		if diff.GreaterThan(tol) {
			continue
		}
		if !found || diff.LessThan(bestDiff) {
			best, bestDiff, found = row, diff, true
		}
	}
	return best, found, nil
}

func (s *Storage) MarkPendingReconciliationReconciled(tx *bbolt.Tx, folio int64) error {
	raw := tx.Bucket(bucketPendingReconciliations).Get(int64Key(folio))
	if raw == nil {
		return fmt.Errorf("reconbank: no pending reconciliation row for folio %d", folio)
	}
	var row PendingReconciliation
	if err := gobDecode(raw, &row); err != nil {
		return err
	}
	row.Reconciled = true
	data, err := gobEncode(row)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketPendingReconciliations).Put(int64Key(folio), data)
}

// --- invoice VAT/excise lookup (card/cash-sale processors) ---

// InvoiceTaxBreakdown is the VAT/IEPS portion of a treasury-close invoice,
// looked up once by (series, number).
type InvoiceTaxBreakdown struct {
	Series string
	Number string
	VATDec  string
	IEPSDec string
}

var bucketInvoiceTax = []byte("invoice_tax_breakdown")

func init() {
	allBuckets = append(allBuckets, bucketInvoiceTax)
}

func (s *Storage) PutInvoiceTaxBreakdown(tx *bbolt.Tx, b InvoiceTaxBreakdown) error {
	data, err := gobEncode(b)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketInvoiceTax).Put([]byte(b.Series+"|"+b.Number), data)
}

func (s *Storage) InvoiceVATAndExcise(tx *bbolt.Tx, series, number string) (vat, ieps decimal.Decimal, found bool, err error) {
	raw := tx.Bucket(bucketInvoiceTax).Get([]byte(series + "|" + number))
	if raw == nil {
		return decZero, decZero, false, nil
	}
	var b InvoiceTaxBreakdown
	if err := gobDecode(raw, &b); err != nil {
		return decZero, decZero, false, err
	}
	return mustParseDecimal(b.VATDec), mustParseDecimal(b.IEPSDec), true, nil
}

// --- ledger balance (social-security M-2 retention lookup) ---

// LedgerBalanceRow is one (account, period-year) row of the balance-sheet
// table queried for historical monthly debit/credit columns.
type LedgerBalanceRow struct {
	Account, SubAccount string
	PeriodYear          int
	DebitsByMonth       [12]string
	CreditsByMonth      [12]string
}

func (s *Storage) PutLedgerBalance(tx *bbolt.Tx, row LedgerBalanceRow) error {
	data, err := gobEncode(row)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s/%s/%d", row.Account, row.SubAccount, row.PeriodYear)
	return tx.Bucket(bucketLedgerBalance).Put([]byte(key), data)
}

// MonthlyLedgerCredits returns the credit column for (account, subaccount,
// year, month); month is 1-12.
func (s *Storage) MonthlyLedgerCredits(tx *bbolt.Tx, account, subaccount string, year, month int) (decimal.Decimal, bool, error) {
	key := fmt.Sprintf("%s/%s/%d", account, subaccount, year)
	raw := tx.Bucket(bucketLedgerBalance).Get([]byte(key))
	if raw == nil {
		return decZero, false, nil
	}
	var row LedgerBalanceRow
	if err := gobDecode(raw, &row); err != nil {
		return decZero, false, err
	}
	return mustParseDecimal(row.CreditsByMonth[month-1]), true, nil
}

// --- read-only View wrappers for processors ---
//
// Processors never write; each of these opens its own bbolt.View so a
// processor's plan construction never participates in the executor's write
// transaction for that plan.

func (s *Storage) ViewInvoiceVATAndExcise(series, number string) (vat, ieps decimal.Decimal, found bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		vat, ieps, found, err = s.InvoiceVATAndExcise(tx, series, number)
		return err
	})
	return
}

func (s *Storage) ViewUnpaidAPInvoiceByAmount(amount, tol decimal.Decimal) (inv APInvoicePending, found bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		inv, found, err = s.UnpaidAPInvoiceByAmount(tx, amount, tol)
		return err
	})
	return
}

func (s *Storage) ViewPendingARInvoiceByAmount(amount, tol decimal.Decimal) (inv ARInvoicePending, found bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		inv, found, err = s.PendingARInvoiceByAmount(tx, amount, tol)
		return err
	})
	return
}

func (s *Storage) ViewGetPendingARInvoice(number string) (inv ARInvoicePending, found bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		inv, found, err = s.GetPendingARInvoice(tx, number)
		return err
	})
	return
}

func (s *Storage) ViewFindPendingReconciliation(account, kind string, date time.Time, windowDays int, amount, tol decimal.Decimal) (row PendingReconciliation, found bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		row, found, err = s.FindPendingReconciliation(tx, account, kind, date, windowDays, amount, tol)
		return err
	})
	return
}

func (s *Storage) ViewMonthlyLedgerCredits(account, subaccount string, year, month int) (v decimal.Decimal, found bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		v, found, err = s.MonthlyLedgerCredits(tx, account, subaccount, year, month)
		return err
	})
	return
}
