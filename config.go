package reconbank

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// BankAccountConfig is one entry of the bank-account registry: an ERP bank
// account's institution, account number, and its ledger account/sub-account
// pair, plus the role that routes processors to it.
type BankAccountConfig struct {
	Bank             string
	AccountNumber    string
	LedgerAccount    string
	LedgerSubAccount string
	Name             string
	Role             AccountRole
}

// LedgerAccountPair is a (account, sub-account) code pair.
type LedgerAccountPair struct {
	Account    string
	SubAccount string
}

// LedgerAccounts is the chart-of-accounts catalog used across every
// processor's ledger-line templates.
var LedgerAccounts = struct {
	BancoEfectivo LedgerAccountPair
	BancoTarjeta  LedgerAccountPair
	BancoGastos   LedgerAccountPair

	ClientesGlobal LedgerAccountPair

	IVAAcumulableCobrado     LedgerAccountPair
	IVAAcumulablePteCobro    LedgerAccountPair
	IVAAcreditablePtePago    LedgerAccountPair
	IVAAcreditablePagado     LedgerAccountPair

	IEPSAcumulableCobrado  LedgerAccountPair
	IEPSAcumulablePteCobro LedgerAccountPair

	ProveedoresGlobal LedgerAccountPair

	AcreedoresBanregio LedgerAccountPair
	AcreedoresNomina   LedgerAccountPair

	RetencionIMSS      LedgerAccountPair
	RetencionISR       LedgerAccountPair
	RetencionInfonavit LedgerAccountPair

	ISRProvisional       LedgerAccountPair
	ISRRetHonorarios     LedgerAccountPair
	ISRRetArrendamiento  LedgerAccountPair
	IVARetenidoPagado    LedgerAccountPair
	IVAAFavor            LedgerAccountPair
	IEPSAcreditablePagado LedgerAccountPair

	Nominas3Pct LedgerAccountPair

	IMSSGasto          LedgerAccountPair
	Aportacion2PctSAR  LedgerAccountPair
	CesantiaVejez      LedgerAccountPair
	Infonavit5Pct      LedgerAccountPair
}{
	BancoEfectivo: LedgerAccountPair{"1120", "040000"},
	BancoTarjeta:  LedgerAccountPair{"1120", "060000"},
	BancoGastos:   LedgerAccountPair{"1120", "070000"},

	ClientesGlobal: LedgerAccountPair{"1210", "010000"},

	IVAAcumulableCobrado:  LedgerAccountPair{"2141", "010000"},
	IVAAcumulablePteCobro: LedgerAccountPair{"2146", "010000"},
	IVAAcreditablePtePago: LedgerAccountPair{"1240", "010000"},
	IVAAcreditablePagado:  LedgerAccountPair{"1246", "010000"},

	IEPSAcumulableCobrado:  LedgerAccountPair{"2141", "020000"},
	IEPSAcumulablePteCobro: LedgerAccountPair{"2146", "020000"},

	ProveedoresGlobal: LedgerAccountPair{"2110", "010000"},

	AcreedoresBanregio: LedgerAccountPair{"2120", "020000"},
	AcreedoresNomina:   LedgerAccountPair{"2120", "040000"},

	RetencionIMSS:      LedgerAccountPair{"2140", "010000"},
	RetencionISR:       LedgerAccountPair{"2140", "020000"},
	RetencionInfonavit: LedgerAccountPair{"2140", "270000"},

	ISRProvisional:        LedgerAccountPair{"1245", "010000"},
	ISRRetHonorarios:      LedgerAccountPair{"2140", "070000"},
	ISRRetArrendamiento:   LedgerAccountPair{"2140", "320000"},
	IVARetenidoPagado:     LedgerAccountPair{"2140", "290000"},
	IVAAFavor:             LedgerAccountPair{"1247", "010000"},
	IEPSAcreditablePagado: LedgerAccountPair{"1246", "020000"},

	Nominas3Pct: LedgerAccountPair{"6200", "850000"},

	IMSSGasto:         LedgerAccountPair{"6200", "070000"},
	Aportacion2PctSAR: LedgerAccountPair{"6200", "028000"},
	CesantiaVejez:     LedgerAccountPair{"6200", "360000"},
	Infonavit5Pct:     LedgerAccountPair{"6200", "050000"},
}

// BankAccounts is the active bank-account registry, keyed by short
// account names ("efectivo", "tarjeta", "gastos").
var BankAccounts = map[string]BankAccountConfig{
	"efectivo": {
		Bank: "BANREGIO", AccountNumber: "055003730017",
		LedgerAccount: "1120", LedgerSubAccount: "040000",
		Name: "BANREGIO F (EFECTIVO)", Role: RoleCash,
	},
	"tarjeta": {
		Bank: "BANREGIO", AccountNumber: "038900320016",
		LedgerAccount: "1120", LedgerSubAccount: "060000",
		Name: "BANREGIO T (TARJETA)", Role: RoleCard,
	},
	"gastos": {
		Bank: "BANREGIO", AccountNumber: "055003730157",
		LedgerAccount: "1120", LedgerSubAccount: "070000",
		Name: "BANREGIO GASTOS", Role: RoleExpense,
	},
}

// accountKeyByNumber is the reverse map: account number -> registry key.
var accountKeyByNumber = buildAccountKeyByNumber()

func buildAccountKeyByNumber() map[string]string {
	m := make(map[string]string, len(BankAccounts))
	for key, cfg := range BankAccounts {
		m[cfg.AccountNumber] = key
	}
	return m
}

// AccountKeyByNumber resolves a bank account number to its registry key.
func AccountKeyByNumber(number string) (string, bool) {
	key, ok := accountKeyByNumber[number]
	return key, ok
}

// sheetToAccountKey maps a statement sheet name to a bank-account registry
// key. The statement workbook names its card sheet "Banregio T " with a
// trailing space; the entry without the space covers cleaned-up copies.
var sheetToAccountKey = map[string]string{
	"Banregio F":   "efectivo",
	"Banregio T ":  "tarjeta",
	"Banregio T":   "tarjeta",
	"BANREGIO GTS": "gastos",
}

// SheetAccountKey resolves a statement sheet name to a bank-account
// registry key.
func SheetAccountKey(sheetName string) (string, bool) {
	key, ok := sheetToAccountKey[sheetName]
	return key, ok
}

// Config is the process-wide configuration, loaded from the environment on
// process start.
type Config struct {
	DBPath  string
	DryRun  bool
	Company string
	Currency string

	// ToleranceCents is the exact-sum matching tolerance ($0.01).
	ToleranceCents decimal.Decimal
	// ToleranceValidation is the soft validation/fuzzy-match tolerance
	// ($0.50).
	ToleranceValidation decimal.Decimal

	// MonthEdgeDays is the number of days at the start/end of the month
	// during which cash-sale deposits are force-skipped; cross-month
	// deposit-to-sale alignment is handled manually.
	MonthEdgeDays int

	// SupplierReconcileWindowDays is the ±N day window used by the
	// supplier-payment and customer-collection reconciliation processors.
	// Wide enough to cover weekend settlement; widening it further risks
	// reconciling the wrong payment.
	SupplierReconcileWindowDays int

	LogLevel string
}

// DefaultConfig returns the engine's built-in defaults.
func DefaultConfig() Config {
	return Config{
		DBPath:                      "reconbank.db",
		DryRun:                      false,
		Company:                     "DCM",
		Currency:                    "PESOS",
		ToleranceCents:              decimal.New(1, -2),
		ToleranceValidation:         decimal.New(50, -2),
		MonthEdgeDays:               4,
		SupplierReconcileWindowDays: 2,
		LogLevel:                    "info",
	}
}

// ConfigFromEnv loads configuration from the environment, falling back to
// DefaultConfig for anything unset.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("RECONBANK_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("RECONBANK_DRY_RUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DryRun = b
		}
	}
	if v := os.Getenv("RECONBANK_COMPANY"); v != "" {
		cfg.Company = v
	}
	if v := os.Getenv("RECONBANK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RECONBANK_MONTH_EDGE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MonthEdgeDays = n
		}
	}

	return cfg
}

// Provider identity for the fabricated bank-fee purchase invoice.
const (
	BankFeeProviderCode = "001081"
	BankFeeProviderName = "BANCO REGIONAL"
)
