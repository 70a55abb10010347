package reconbank

// Domain model for the reconciliation engine: the bank-statement movement
// read in from the statement, the treasury/payroll/tax side-channel data it
// is matched against, and the plan primitives a processor hands to the
// executor. No business logic lives here; see classifier.go, the
// processor_*.go files, tdc_assigner.go, dispatcher.go and executor.go.

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessKind is the closed set of transaction families the classifier can
// assign to a bank movement.
type ProcessKind string

const (
	CardCreditSale        ProcessKind = "CARD_CREDIT_SALE"
	CardDebitSale         ProcessKind = "CARD_DEBIT_SALE"
	CashSale              ProcessKind = "CASH_SALE"
	InternalTransferOut   ProcessKind = "INTERNAL_TRANSFER_OUT"
	InternalTransferIn    ProcessKind = "INTERNAL_TRANSFER_IN"
	FeeWire               ProcessKind = "FEE_WIRE"
	FeeWireVAT            ProcessKind = "FEE_WIRE_VAT"
	FeeCard               ProcessKind = "FEE_CARD"
	FeeCardVAT            ProcessKind = "FEE_CARD_VAT"
	PayrollDispersion     ProcessKind = "PAYROLL"
	CheckCashed           ProcessKind = "CHECK_CASHED"
	SupplierPayment       ProcessKind = "SUPPLIER_PAYMENT"
	ExpenseAccountPayment ProcessKind = "EXPENSE_ACCOUNT_PAYMENT"
	CustomerCollection    ProcessKind = "CUSTOMER_COLLECTION"
	TaxFederal            ProcessKind = "TAX_FEDERAL"
	TaxState              ProcessKind = "TAX_STATE"
	TaxSocialSecurity     ProcessKind = "TAX_SOCIAL_SECURITY"
	Unknown               ProcessKind = "UNKNOWN"
)

// Action is the terminal, always-set per-line outcome of a dispatch run.
type Action string

const (
	ActionInsert        Action = "INSERT"
	ActionReconcile     Action = "RECONCILE"
	ActionSkip          Action = "SKIP"
	ActionNotProcessed  Action = "NOT_PROCESSED"
	ActionNeedsReview   Action = "NEEDS_REVIEW"
	ActionError         Action = "ERROR"
	ActionUnknown       Action = "UNKNOWN"
)

// DrCr is the debit/credit side of a ledger line.
type DrCr int

const (
	Debit DrCr = iota + 1
	Credit
)

// AccountRole classifies a bank account's role for processor routing.
type AccountRole string

const (
	RoleCash      AccountRole = "CASH"
	RoleCard      AccountRole = "CARD"
	RoleExpense   AccountRole = "EXPENSE"
	RolePettyCash AccountRole = "PETTY_CASH"
)

// BankMovement is one parsed line of the bank statement. Either Debit or
// Credit is present, never both nonzero.
type BankMovement struct {
	Date        time.Time
	Description string // after mojibake normalization
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Account     string // bank-account number, key into the account registry
	SourceSheet string

	Kind ProcessKind // assigned by the classifier; zero value means unset
}

// Amount is the movement's magnitude, always nonnegative.
func (m BankMovement) Amount() decimal.Decimal {
	if m.Credit.IsPositive() {
		return m.Credit
	}
	if m.Debit.IsPositive() {
		return m.Debit
	}
	return decimal.Zero
}

// IsIncome reports whether the movement is a credit (deposit) line.
func (m BankMovement) IsIncome() bool {
	return m.Credit.IsPositive()
}

// IsExpense reports whether the movement is a debit (withdrawal) line.
func (m BankMovement) IsExpense() bool {
	return m.Debit.IsPositive()
}

// Invoice is one individual invoice issued on a daily close.
type Invoice struct {
	Series string // e.g. "FD"
	Number string
	Amount decimal.Decimal
}

// DailyClose is the treasury daily-close spreadsheet's summary for one date.
type DailyClose struct {
	CloseDate time.Time
	SheetName string

	Individual     []Invoice
	GlobalNumber   string
	GlobalAmount   decimal.Decimal

	TotalSales decimal.Decimal
	TotalCash  decimal.Decimal
	TotalCard  decimal.Decimal
	TotalOther decimal.Decimal
	FolioSISSA string
}

// TotalIndividual sums the individual invoices' amounts.
func (d DailyClose) TotalIndividual() decimal.Decimal {
	total := decimal.Zero
	for _, inv := range d.Individual {
		total = total.Add(inv.Amount)
	}
	return total
}

// PayrollLine is one perception or deduction line item of a payroll run.
type PayrollLine struct {
	Concept   string
	Account   string
	SubAccount string
	Amount    decimal.Decimal
}

// Payroll is the payroll spreadsheet's parsed totals and line items for one
// dispersion.
type Payroll struct {
	Number            int
	DispersionTotal   decimal.Decimal
	ChecksTotal       decimal.Decimal
	VacationsTotal    decimal.Decimal
	SeveranceTotal    decimal.Decimal
	Perceptions       []PayrollLine
	Deductions        []PayrollLine

	// matchedBuckets tracks which secondary buckets (checks, vacations,
	// severance) have already been consumed by a CHECK_CASHED line. This is
	// the one piece of cross-plan mutable state in the engine, local to
	// one payroll session and reset per job.
	matchedBuckets map[string]bool
}

// NetTotal is the payroll's total net disbursement across all buckets.
func (p Payroll) NetTotal() decimal.Decimal {
	return p.DispersionTotal.Add(p.ChecksTotal).Add(p.VacationsTotal).Add(p.SeveranceTotal)
}

// VATRetentionBySupplier is one line of a federal filing's per-supplier VAT
// withholding (from the DIOT acknowledgement).
type VATRetentionBySupplier struct {
	SupplierCode string
	SupplierName string
	Amount       decimal.Decimal
}

// FederalTax is the parsed federal tax filing (retentions+excise, and
// income-tax+VAT declarations) for one period.
type FederalTax struct {
	Period string // e.g. "ENERO 2026"

	// 1st declaration: retentions + excise (IEPS)
	ISRWithholdingFees    decimal.Decimal
	ISRWithholdingRent    decimal.Decimal
	ExciseNet             decimal.Decimal // amount actually payable
	ExciseGross           decimal.Decimal
	ExciseCreditable      decimal.Decimal // gross - net

	// 2nd declaration: income tax + VAT
	ISRCorporate       decimal.Decimal
	ISRSalaryWithheld  decimal.Decimal
	VATGross           decimal.Decimal
	VATCreditable      decimal.Decimal
	VATFavorable       decimal.Decimal
	VATRetentions      []VATRetentionBySupplier

	Confidence100 bool
	Warnings      []string
}

// StateTax is the parsed state 3%-payroll-tax filing for one period.
type StateTax struct {
	Period        string
	Amount        decimal.Decimal
	Confidence100 bool
	Warnings      []string
}

// SSTax is the parsed social-security (IMSS/INFONAVIT) filing for one
// payment date.
type SSTax struct {
	PayDate    time.Time
	Total      decimal.Decimal // total_a_pagar: matched against the bank movement
	Bimestrial bool            // true when this filing also carries housing-fund (INFONAVIT)

	// TotalIMSS is the IMSS-only portion of Total (total_imss in the SUA
	// summary). For a monthly (non-bimestrial) filing Total and TotalIMSS
	// coincide, so callers may leave TotalIMSS at its zero value and it
	// falls back to Total. A bimestrial filing must set it explicitly: the
	// M-2 expense line is total_imss - retention, not total_a_pagar -
	// retention.
	TotalIMSS decimal.Decimal

	// Bimestrial-only figures (SUA's DatosIMSS.retiro / .cesantia_vejez /
	// .amortizacion); zero and unused on a monthly filing.
	SAR                   decimal.Decimal // Aportacion2PctSAR (retiro)
	CesantiaVejez         decimal.Decimal
	InfonavitAmortization decimal.Decimal // employee INFONAVIT credit retention

	HousingFundA  decimal.Decimal
	HousingFundB  decimal.Decimal
	Confidence100 bool
	Warnings      []string
}

// --- Plan primitives (C1) ---

// MovementRow is one bank-movement row the executor will insert into
// MovHeader. Folio and LedgerNumber are assigned at execute time.
type MovementRow struct {
	Bank          string
	Account       string
	Date          time.Time
	Kind          int // 1=income general, 2=expense manual, 3=expense w/ invoice, 4=income sale
	Income        decimal.Decimal
	Expense       decimal.Decimal
	Description   string
	Class         string
	PaymentMethod string // "Cash", "DebitCard", "CreditCard", ""
	ExpenseKind   string // "TRANSFERENCIA", "CHEQUE", "NA"
	Reconciled    bool
	FX            decimal.Decimal
	LedgerKind    string // "INCOME", "EXPENSE", "JOURNAL"
	InvoiceRef    string
	Counterparty  string // supplier/client code
	CounterpartyName string

	// Assigned by the executor.
	Folio        int64
	LedgerNumber int64
}

// InvoiceLinkKind distinguishes a global catch-all invoice link from an
// individual one.
type InvoiceLinkKind string

const (
	LinkGlobal     InvoiceLinkKind = "GLOBAL"
	LinkIndividual InvoiceLinkKind = "INDIVIDUAL"
)

// InvoiceLinkRow is one movement-to-invoice application.
type InvoiceLinkRow struct {
	Series  string
	Number  string
	Applied decimal.Decimal
	Date    time.Time
	Kind    InvoiceLinkKind
}

// LedgerLine is one line of a balanced ledger entry.
type LedgerLine struct {
	Account    string
	SubAccount string
	Side       DrCr
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	Note       string
	DocType    string // "TRANSFER" on transfer entries, empty otherwise
}

// APInvoiceRow is a fabricated purchase-invoice header used for the bank-fee
// provider (and any other processor that must self-generate an AP invoice).
type APInvoiceRow struct {
	Supplier string
	Invoice  string // reference, e.g. DDMMYYYY
	Date     time.Time
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal
}

// ReconciliationUpdate marks a pre-existing movement as reconciled without
// inserting a new row. SourceLine is the index of the statement line that
// triggered the update, relative to the movement slice the processor was
// given; -1 when the update is not attributed to a single line.
type ReconciliationUpdate struct {
	Folio      int64
	Note       string
	SourceLine int
}

// UnmatchedLine marks an input statement line the processor could not
// resolve to any movement or reconciliation, with the terminal action the
// dispatcher must record for it. Line is relative to the movement slice
// the processor was given.
type UnmatchedLine struct {
	Line   int
	Action Action
	Note   string
}

// APPaymentSettlement ties movement i of the plan to an AP invoice it pays
// down, for the expense-account-payment executor path.
type APPaymentSettlement struct {
	MovementIndex int
	Supplier      string
	Invoice       string
	Amount        decimal.Decimal
	NewBalance    decimal.Decimal
	NewStatus     string
}

// ARCollectionSettlement ties movement i of the plan to an AR invoice it
// collects against, for the customer-collection Phase A executor path.
type ARCollectionSettlement struct {
	MovementIndex int
	InvoiceNumber string
	Amount        decimal.Decimal
	NewBalance    decimal.Decimal
}

// ExecutionPlan is the declarative bundle a processor returns: a flat list
// of movements plus per-movement counts telling the executor how to slice
// the flat InvoiceLinkRow/LedgerLine/APInvoiceRow lists.
type ExecutionPlan struct {
	ProcessKind string
	Description string
	Date        time.Time

	Movements    []MovementRow
	InvoiceLinks []InvoiceLinkRow
	Lines        []LedgerLine
	APInvoices   []APInvoiceRow

	// InvoicesPerMovement[i] / LinesPerMovement[i] tell the executor how
	// many of InvoiceLinks / Lines belong to Movements[i]. If both slices
	// are empty the executor assumes the card-sale default: 1 invoice, 6
	// lines per movement.
	InvoicesPerMovement []int
	LinesPerMovement    []int

	// SourceLines[i], when populated (len == len(Movements)), lists the
	// indices of the input statement lines Movements[i] settles, relative
	// to the movement slice the processor was given. The dispatcher uses
	// this to attribute minted folios back to individual statement lines;
	// a split TDC deposit feeds two movements, so its line accrues both
	// folios. Left empty, every line in the group shares every folio.
	SourceLines [][]int

	// Unmatched lists input lines the processor dropped: lines that
	// matched no payroll bucket, filing line item, or open invoice. The
	// dispatcher records each with its own action and note instead of
	// letting it inherit a matched sibling's outcome.
	Unmatched []UnmatchedLine

	Reconciliations []ReconciliationUpdate

	APPaymentSettlements    []APPaymentSettlement
	ARCollectionSettlements []ARCollectionSettlement

	Validations []string
	Warnings    []string
}

// PerLine reports whether the plan carries per-line attribution: every
// movement names its source lines, or the plan individually attributes an
// unmatched or reconciled line. Plans without it are labeled as a group
// by the dispatcher.
func (p ExecutionPlan) PerLine() bool {
	if len(p.SourceLines) != len(p.Movements) {
		return false
	}
	if len(p.SourceLines) > 0 || len(p.Unmatched) > 0 {
		return true
	}
	for _, r := range p.Reconciliations {
		if r.SourceLine >= 0 {
			return true
		}
	}
	return false
}

// TotalInserts is the number of rows this plan would insert if executed.
func (p ExecutionPlan) TotalInserts() int {
	return len(p.Movements) + len(p.InvoiceLinks) + len(p.Lines) + len(p.APInvoices)
}

// TotalUpdates is the number of rows this plan would update if executed.
func (p ExecutionPlan) TotalUpdates() int {
	return len(p.Reconciliations)
}

// LineResult is the terminal outcome recorded for one original statement
// line after a dispatch run.
type LineResult struct {
	Movement BankMovement
	Kind     ProcessKind
	Action   Action
	Folios   []int64
	Note     string
}
