package reconbank

import "regexp"

// classifierRule is one row of the ordered classification table: a
// description pattern, an optional account filter, and the process kind it
// maps to. First match wins.
type classifierRule struct {
	regex   *regexp.Regexp
	account string // "" means any account
	kind    ProcessKind
}

// transferDestRegex extracts the destination account from an
// INTERNAL_TRANSFER_OUT description, e.g. "TRANSFERENCIA A CUENTA: 123456".
// Exposed for the transfer processor.
var transferDestRegex = regexp.MustCompile(`(?i)cuenta:\s*(\d+)`)

// classifierRules is the ordered table compiled once at startup. More
// specific patterns precede their prefixes: the VAT-on-fee variants must
// precede the base-fee variants, and the TAX_* rules must precede
// PAYROLL, or the broader pattern would swallow the specific one.
var classifierRules = []classifierRule{
	{regex: regexp.MustCompile(`(?i)iva\s+com(i|í)s(i|í)on.*terminal|iva.*comision.*tdc|iva.*comision.*tarjeta`), account: "tarjeta", kind: FeeCardVAT},
	{regex: regexp.MustCompile(`(?i)com(i|í)s(i|í)on.*terminal|comision.*tdc|comision.*tarjeta`), account: "tarjeta", kind: FeeCard},

	{regex: regexp.MustCompile(`(?i)iva\s+com(i|í)s(i|í)on.*spei|iva.*comision.*transferencia`), kind: FeeWireVAT},
	{regex: regexp.MustCompile(`(?i)com(i|í)s(i|í)on.*spei|comision.*transferencia`), kind: FeeWire},

	{regex: regexp.MustCompile(`(?i)dep(o|ó)sito\s+tdc|venta\s+tarjeta\s+cr(e|é)dito|abono.*credito.*tdc`), account: "tarjeta", kind: CardCreditSale},
	{regex: regexp.MustCompile(`(?i)dep(o|ó)sito\s+tdd|venta\s+tarjeta\s+d(e|é)bito|abono.*debito.*tdd`), account: "tarjeta", kind: CardDebitSale},

	{regex: regexp.MustCompile(`(?i)dep(o|ó)sito\s+efectivo|venta\s+efectivo`), account: "efectivo", kind: CashSale},

	{regex: regexp.MustCompile(`(?i)transferencia\s+a\s+cuenta:\s*\d+`), kind: InternalTransferOut},
	{regex: regexp.MustCompile(`(?i)transferencia\s+de\s+cuenta:\s*\d+|traspaso\s+recibido`), kind: InternalTransferIn},

	// TAX_* precede PAYROLL: "NOMINA 3% ESTATAL" contains the word the
	// bare payroll-dispersion pattern would also match.
	{regex: regexp.MustCompile(`(?i)impuesto\s+federal|sat\s+federal|declaraci(o|ó)n\s+federal`), kind: TaxFederal},
	{regex: regexp.MustCompile(`(?i)impuesto\s+estatal|nomina\s+3\s*%|3%\s+sobre\s+nominas`), kind: TaxState},
	{regex: regexp.MustCompile(`(?i)imss|infonavit|seguro\s+social`), kind: TaxSocialSecurity},

	{regex: regexp.MustCompile(`(?i)n(o|ó)mina|dispersi(o|ó)n\s+n(o|ó)mina`), kind: PayrollDispersion},
	{regex: regexp.MustCompile(`(?i)cheque\s+cobrado|pago\s+cheque`), kind: CheckCashed},

	{regex: regexp.MustCompile(`(?i)pago\s+proveedor|pago\s+a\s+proveedores`), kind: SupplierPayment},
	{regex: regexp.MustCompile(`(?i)cliente.*cm:|cobro\s+cliente`), kind: CustomerCollection},

	{regex: regexp.MustCompile(`(?i)pago\s+tarjeta\s+empresarial|gasto\s+tarjeta`), account: "gastos", kind: ExpenseAccountPayment},
}

// Classify assigns a ProcessKind to m by running the ordered rule table
// against its description and, when a rule names one, its bank account.
// Pure function, no side effects; unmatched movements get Unknown.
func Classify(m BankMovement) ProcessKind {
	accountKey, _ := AccountKeyByNumber(m.Account)
	for _, rule := range classifierRules {
		if rule.account != "" && rule.account != accountKey {
			continue
		}
		if rule.regex.MatchString(m.Description) {
			return rule.kind
		}
	}
	logClassifier.WithField("description", m.Description).Debug("no classifier rule matched")
	return Unknown
}

// ExtractTransferDestination pulls the destination account number out of an
// INTERNAL_TRANSFER_OUT description. Returns ("", false) if absent.
func ExtractTransferDestination(description string) (string, bool) {
	match := transferDestRegex.FindStringSubmatch(description)
	if match == nil {
		return "", false
	}
	return match[1], true
}
