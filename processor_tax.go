package reconbank

// Tax processor: TAX_FEDERAL, TAX_STATE, TAX_SOCIAL_SECURITY. Matches
// bank-movement amounts against line items of the parsed tax filings;
// operates only when the parse carries full confidence.

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BuildFederalTaxPlan matches bank movements against the parsed federal
// filing's line items. Only operates when Confidence100 is set; otherwise
// emits warnings and produces no movements.
func BuildFederalTaxPlan(movements []BankMovement, date time.Time, ft *FederalTax) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "IMPUESTO_FEDERAL", Description: fmt.Sprintf("Federal tax %s", date.Format("2006-01-02")), Date: date}

	if ft == nil {
		plan.Warnings = append(plan.Warnings, "missing federal tax side-channel data")
		return plan, nil
	}
	if !ft.Confidence100 {
		plan.Warnings = append(plan.Warnings, "federal tax parse confidence below 100%, skipping")
		plan.Warnings = append(plan.Warnings, ft.Warnings...)
		return plan, nil
	}

	bank := BankAccounts["efectivo"]

	for i, m := range movements {
		amount := m.Amount()
		description := fmt.Sprintf("IMPUESTO FEDERAL %s", ft.Period)

		switch {
		case amount.Equal(ft.ISRWithholdingFees.Add(ft.ISRWithholdingRent).Add(ft.ExciseNet)):
			mv := MovementRow{Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date, Kind: 2, Expense: amount, Description: description, Class: "IMPUESTOS", ExpenseKind: "TRANSFERENCIA", LedgerKind: "EXPENSE"}
			plan.Movements = append(plan.Movements, mv)
			plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0)
			plan.SourceLines = append(plan.SourceLines, []int{i})
			lines := retentionBlock(ft, amount, bank, description)
			plan.Lines = append(plan.Lines, lines...)
			plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))

		case amount.Equal(ft.ISRCorporate.Add(ft.ISRSalaryWithheld).Add(ft.VATGross).Sub(ft.VATCreditable).Add(ft.VATFavorable)):
			mv := MovementRow{Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date, Kind: 2, Expense: amount, Description: description, Class: "IMPUESTOS", ExpenseKind: "TRANSFERENCIA", LedgerKind: "EXPENSE"}
			plan.Movements = append(plan.Movements, mv)
			plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0)
			plan.SourceLines = append(plan.SourceLines, []int{i})
			lines := incomeVATBlock(ft, amount, bank, description)
			plan.Lines = append(plan.Lines, lines...)
			plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))

		default:
			if matched := matchSupplierVATRetention(ft, amount); matched != nil {
				mv := MovementRow{Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date, Kind: 2, Expense: amount, Description: description, Class: "IMPUESTOS", ExpenseKind: "TRANSFERENCIA", LedgerKind: "EXPENSE", Counterparty: matched.SupplierCode, CounterpartyName: matched.SupplierName}
				plan.Movements = append(plan.Movements, mv)
				plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0)
				plan.SourceLines = append(plan.SourceLines, []int{i})
				lines := supplierVATRetentionBlock(matched.Amount, bank, description)
				plan.Lines = append(plan.Lines, lines...)
				plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
			} else {
				plan.Warnings = append(plan.Warnings, fmt.Sprintf("no federal-tax line item matches amount %s", amount))
				plan.Unmatched = append(plan.Unmatched, UnmatchedLine{
					Line: i, Action: ActionNeedsReview,
					Note: fmt.Sprintf("no federal-tax line item matches amount %s", amount),
				})
			}
		}
	}

	return plan, nil
}

// retentionBlock: 5 lines (Dr ISR-fees, Dr ISR-rent, Cr CASH, Dr excise
// gross, Cr excise (gross - net)).
func retentionBlock(ft *FederalTax, total decimal.Decimal, bank BankAccountConfig, note string) []LedgerLine {
	return []LedgerLine{
		{Account: LedgerAccounts.ISRRetHonorarios.Account, SubAccount: LedgerAccounts.ISRRetHonorarios.SubAccount, Side: Debit, Debit: ft.ISRWithholdingFees, Note: note},
		{Account: LedgerAccounts.ISRRetArrendamiento.Account, SubAccount: LedgerAccounts.ISRRetArrendamiento.SubAccount, Side: Debit, Debit: ft.ISRWithholdingRent, Note: note},
		{Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Credit, Credit: total, Note: note},
		{Account: LedgerAccounts.IEPSAcumulableCobrado.Account, SubAccount: LedgerAccounts.IEPSAcumulableCobrado.SubAccount, Side: Debit, Debit: ft.ExciseGross, Note: note},
		{Account: LedgerAccounts.IEPSAcreditablePagado.Account, SubAccount: LedgerAccounts.IEPSAcreditablePagado.SubAccount, Side: Credit, Credit: ft.ExciseGross.Sub(ft.ExciseNet), Note: note},
	}
}

// incomeVATBlock: 6 lines (Dr ISR provisional, Dr ISR-salary, Cr CASH,
// Dr VAT collected gross, Cr VAT creditable, Dr VAT favorable).
func incomeVATBlock(ft *FederalTax, total decimal.Decimal, bank BankAccountConfig, note string) []LedgerLine {
	return []LedgerLine{
		{Account: LedgerAccounts.ISRProvisional.Account, SubAccount: LedgerAccounts.ISRProvisional.SubAccount, Side: Debit, Debit: ft.ISRCorporate, Note: note},
		{Account: LedgerAccounts.RetencionISR.Account, SubAccount: LedgerAccounts.RetencionISR.SubAccount, Side: Debit, Debit: ft.ISRSalaryWithheld, Note: note},
		{Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Credit, Credit: total, Note: note},
		{Account: LedgerAccounts.IVAAcumulableCobrado.Account, SubAccount: LedgerAccounts.IVAAcumulableCobrado.SubAccount, Side: Debit, Debit: ft.VATGross, Note: note},
		{Account: LedgerAccounts.IVAAcreditablePagado.Account, SubAccount: LedgerAccounts.IVAAcreditablePagado.SubAccount, Side: Credit, Credit: ft.VATCreditable, Note: note},
		{Account: LedgerAccounts.IVAAFavor.Account, SubAccount: LedgerAccounts.IVAAFavor.SubAccount, Side: Debit, Debit: ft.VATFavorable, Note: note},
	}
}

func matchSupplierVATRetention(ft *FederalTax, amount decimal.Decimal) *VATRetentionBySupplier {
	for i := range ft.VATRetentions {
		if ft.VATRetentions[i].Amount.Equal(amount) {
			return &ft.VATRetentions[i]
		}
	}
	return nil
}

// supplierVATRetentionBlock: 4 lines per-supplier (Dr VAT withheld paid,
// Cr CASH, Dr VAT paid, Cr VAT pending payment).
func supplierVATRetentionBlock(amount decimal.Decimal, bank BankAccountConfig, note string) []LedgerLine {
	return []LedgerLine{
		{Account: LedgerAccounts.IVARetenidoPagado.Account, SubAccount: LedgerAccounts.IVARetenidoPagado.SubAccount, Side: Debit, Debit: amount, Note: note},
		{Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Credit, Credit: amount, Note: note},
		{Account: LedgerAccounts.IVAAcreditablePagado.Account, SubAccount: LedgerAccounts.IVAAcreditablePagado.SubAccount, Side: Debit, Debit: amount, Note: note},
		{Account: LedgerAccounts.IVAAcreditablePtePago.Account, SubAccount: LedgerAccounts.IVAAcreditablePtePago.SubAccount, Side: Credit, Credit: amount, Note: note},
	}
}

// BuildStateTaxPlan builds the 2-line state 3%-payroll-tax entry.
func BuildStateTaxPlan(movements []BankMovement, date time.Time, st *StateTax) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "IMPUESTO_ESTATAL", Description: fmt.Sprintf("State tax %s", date.Format("2006-01-02")), Date: date}

	if st == nil {
		plan.Warnings = append(plan.Warnings, "missing state tax side-channel data")
		return plan, nil
	}
	if !st.Confidence100 {
		plan.Warnings = append(plan.Warnings, "state tax parse confidence below 100%, skipping")
		plan.Warnings = append(plan.Warnings, st.Warnings...)
		return plan, nil
	}

	bank := BankAccounts["efectivo"]
	for i, m := range movements {
		if !m.Amount().Equal(st.Amount) {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("state tax amount %s does not match movement %s", st.Amount, m.Amount()))
			plan.Unmatched = append(plan.Unmatched, UnmatchedLine{
				Line: i, Action: ActionNeedsReview,
				Note: fmt.Sprintf("movement %s does not match state-tax filing amount %s", m.Amount(), st.Amount),
			})
			continue
		}
		description := fmt.Sprintf("IMPUESTO ESTATAL 3%% %s", st.Period)
		mv := MovementRow{Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date, Kind: 2, Expense: m.Amount(), Description: description, Class: "IMPUESTOS", ExpenseKind: "TRANSFERENCIA", LedgerKind: "EXPENSE"}
		plan.Movements = append(plan.Movements, mv)
		plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0)
		plan.SourceLines = append(plan.SourceLines, []int{i})
		lines := []LedgerLine{
			{Account: LedgerAccounts.Nominas3Pct.Account, SubAccount: LedgerAccounts.Nominas3Pct.SubAccount, Side: Debit, Debit: m.Amount(), Note: description},
			{Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Credit, Credit: m.Amount(), Note: description},
		}
		plan.Lines = append(plan.Lines, lines...)
		plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
	}
	return plan, nil
}

// BuildSocialSecurityTaxPlan queries the ledger balance table for the
// retention accumulated two calendar months before the pay date (the M-2
// rule), subtracts it from the SS total, and builds a 3-line (monthly) or
// 7-line (bimestrial, with housing fund) ledger entry.
func BuildSocialSecurityTaxPlan(storage *Storage, movements []BankMovement, date time.Time, ss *SSTax) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "IMPUESTO_IMSS", Description: fmt.Sprintf("Social security %s", date.Format("2006-01-02")), Date: date}

	if ss == nil {
		plan.Warnings = append(plan.Warnings, "missing social-security side-channel data")
		return plan, nil
	}
	if !ss.Confidence100 {
		plan.Warnings = append(plan.Warnings, "social-security parse confidence below 100%, skipping")
		plan.Warnings = append(plan.Warnings, ss.Warnings...)
		return plan, nil
	}

	retroYear, retroMonth := monthsBack(ss.PayDate.Year(), int(ss.PayDate.Month()), 2)
	retention, found, err := storage.ViewMonthlyLedgerCredits(LedgerAccounts.RetencionIMSS.Account, LedgerAccounts.RetencionIMSS.SubAccount, retroYear, retroMonth)
	if err != nil {
		return plan, fmt.Errorf("monthly ledger credits lookup: %w", err)
	}
	if !found {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("no ledger-balance row for %s/%s period %d", LedgerAccounts.RetencionIMSS.Account, LedgerAccounts.RetencionIMSS.SubAccount, retroYear))
	}

	bank := BankAccounts["efectivo"]
	// totalIMSS is the IMSS-only figure the M-2 expense is derived from. A
	// monthly filing reports only one total, so TotalIMSS is left zero by
	// the caller and falls back to Total; a bimestrial filing must set it
	// explicitly since Total also carries SAR/Cesantia-Vejez/INFONAVIT.
	totalIMSS := ss.TotalIMSS
	if totalIMSS.IsZero() {
		totalIMSS = ss.Total
	}
	expense := totalIMSS.Sub(retention)
	description := fmt.Sprintf("IMSS/INFONAVIT %s", ss.PayDate.Format("02/01/2006"))

	for i, m := range movements {
		if !m.Amount().Equal(ss.Total) {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("movement %s does not match social-security filing total %s", m.Amount(), ss.Total))
			plan.Unmatched = append(plan.Unmatched, UnmatchedLine{
				Line: i, Action: ActionNeedsReview,
				Note: fmt.Sprintf("movement %s does not match social-security filing total %s", m.Amount(), ss.Total),
			})
			continue
		}
		mv := MovementRow{Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date, Kind: 2, Expense: m.Amount(), Description: description, Class: "IMPUESTOS", ExpenseKind: "TRANSFERENCIA", LedgerKind: "EXPENSE"}
		plan.Movements = append(plan.Movements, mv)
		plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0)
		plan.SourceLines = append(plan.SourceLines, []int{i})

		var lines []LedgerLine
		if ss.Bimestrial {
			// Bimestrial filings add the SAR, Cesantia-Vejez, 5% housing-fund
			// and INFONAVIT-amortization lines, each carrying its figure
			// from the SUA summary. All six non-bank lines are debits; only
			// the bank line is a credit.
			housingFund := ss.HousingFundA.Add(ss.HousingFundB)
			lines = []LedgerLine{
				{Account: LedgerAccounts.RetencionIMSS.Account, SubAccount: LedgerAccounts.RetencionIMSS.SubAccount, Side: Debit, Debit: retention, Note: description},
				{Account: LedgerAccounts.IMSSGasto.Account, SubAccount: LedgerAccounts.IMSSGasto.SubAccount, Side: Debit, Debit: expense, Note: description},
				{Account: LedgerAccounts.Aportacion2PctSAR.Account, SubAccount: LedgerAccounts.Aportacion2PctSAR.SubAccount, Side: Debit, Debit: ss.SAR, Note: description},
				{Account: LedgerAccounts.CesantiaVejez.Account, SubAccount: LedgerAccounts.CesantiaVejez.SubAccount, Side: Debit, Debit: ss.CesantiaVejez, Note: description},
				{Account: LedgerAccounts.Infonavit5Pct.Account, SubAccount: LedgerAccounts.Infonavit5Pct.SubAccount, Side: Debit, Debit: housingFund, Note: description},
				{Account: LedgerAccounts.RetencionInfonavit.Account, SubAccount: LedgerAccounts.RetencionInfonavit.SubAccount, Side: Debit, Debit: ss.InfonavitAmortization, Note: description},
				{Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Credit, Credit: m.Amount(), Note: description},
			}
		} else {
			lines = []LedgerLine{
				{Account: LedgerAccounts.RetencionIMSS.Account, SubAccount: LedgerAccounts.RetencionIMSS.SubAccount, Side: Debit, Debit: retention, Note: description},
				{Account: LedgerAccounts.IMSSGasto.Account, SubAccount: LedgerAccounts.IMSSGasto.SubAccount, Side: Debit, Debit: expense, Note: description},
				{Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Credit, Credit: m.Amount(), Note: description},
			}
		}
		if !IsBalanced(lines) {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("social-security ledger does not balance: debits=%s credits=%s", SumDebits(lines), SumCredits(lines)))
		}
		plan.Lines = append(plan.Lines, lines...)
		plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
	}

	return plan, nil
}

// monthsBack subtracts n calendar months from (year, month), rolling the
// year back across the boundary as needed (e.g. Feb 2026 - 2 = Dec 2025).
func monthsBack(year, month, n int) (int, int) {
	total := year*12 + (month - 1) - n
	return total / 12, total%12 + 1
}
