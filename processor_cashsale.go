package reconbank

// Cash-sale processor: CASH_SALE. Each deposit links every individual
// invoice of the close at its full amount plus the global invoice for
// whatever remains.

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BuildCashSalePlan builds the plan for one day's cash deposits, linking
// each individual invoice of the close plus the global invoice for the
// remainder.
func BuildCashSalePlan(storage *Storage, movements []BankMovement, date time.Time, close DailyClose) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "CASH_SALE", Description: fmt.Sprintf("Cash sales %s", date.Format("2006-01-02")), Date: date}

	if len(movements) == 0 {
		plan.Warnings = append(plan.Warnings, "no cash deposits for this day")
		return plan, nil
	}

	if close.GlobalNumber == "" && len(close.Individual) == 0 {
		for range movements {
			plan.Warnings = append(plan.Warnings, "NOT_PROCESSED: no close for date")
		}
		return plan, nil
	}

	bank := BankAccounts["efectivo"]

	for _, m := range movements {
		amount := m.Amount()
		description := fmt.Sprintf("VENTA EFECTIVO CORTE %s", close.CloseDate.Format("02/01/2006"))

		mv := MovementRow{
			Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date,
			Kind: 4, Income: amount, Description: description,
			Class: "DAILY_SALE", PaymentMethod: "Cash", LedgerKind: "INCOME",
		}
		plan.Movements = append(plan.Movements, mv)

		lines := []LedgerLine{
			{Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Debit, Debit: amount, Note: description},
		}

		nInvoices := 0
		remainder := amount
		for _, inv := range close.Individual {
			applied := inv.Amount
			if applied.IsZero() {
				continue
			}
			plan.InvoiceLinks = append(plan.InvoiceLinks, InvoiceLinkRow{
				Series: inv.Series, Number: inv.Number, Applied: applied, Date: close.CloseDate, Kind: LinkIndividual,
			})
			nInvoices++
			remainder = remainder.Sub(applied)

			vat, ieps, _, err := storage.ViewInvoiceVATAndExcise(inv.Series, inv.Number)
			if err != nil {
				return plan, fmt.Errorf("invoice tax lookup %s-%s: %w", inv.Series, inv.Number, err)
			}
			lines = append(lines, invoiceLinkLedgerBlock(applied, vat, ieps, description)...)
		}

		if remainder.IsNegative() {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("individual invoices exceed deposit %s by %s; global remainder capped at zero", amount, remainder.Abs()))
			remainder = decimal.Zero
		}

		if close.GlobalNumber != "" && remainder.IsPositive() {
			plan.InvoiceLinks = append(plan.InvoiceLinks, InvoiceLinkRow{
				Series: "FD", Number: close.GlobalNumber, Applied: remainder, Date: close.CloseDate, Kind: LinkGlobal,
			})
			nInvoices++
			vat, ieps, _, err := storage.ViewInvoiceVATAndExcise("FD", close.GlobalNumber)
			if err != nil {
				return plan, fmt.Errorf("global invoice tax lookup: %w", err)
			}
			lines = append(lines, invoiceLinkLedgerBlock(remainder, vat, ieps, description)...)
		}

		plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, nInvoices)
		plan.Lines = append(plan.Lines, lines...)
		plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
	}

	plan.Validations = append(plan.Validations, fmt.Sprintf("cash sales: %d movements", len(movements)))
	return plan, nil
}

// invoiceLinkLedgerBlock builds the 1-5 line block per linked invoice: Cr
// customers, Cr/Dr VAT pair if nonzero, Cr/Dr sales-tax pair if nonzero.
func invoiceLinkLedgerBlock(applied, vat, ieps decimal.Decimal, note string) []LedgerLine {
	lines := []LedgerLine{
		{Account: LedgerAccounts.ClientesGlobal.Account, SubAccount: LedgerAccounts.ClientesGlobal.SubAccount, Side: Credit, Credit: applied, Note: note},
	}
	if vat.IsPositive() {
		lines = append(lines,
			LedgerLine{Account: LedgerAccounts.IVAAcumulableCobrado.Account, SubAccount: LedgerAccounts.IVAAcumulableCobrado.SubAccount, Side: Credit, Credit: vat, Note: note},
			LedgerLine{Account: LedgerAccounts.IVAAcumulablePteCobro.Account, SubAccount: LedgerAccounts.IVAAcumulablePteCobro.SubAccount, Side: Debit, Debit: vat, Note: note},
		)
	}
	if ieps.IsPositive() {
		lines = append(lines,
			LedgerLine{Account: LedgerAccounts.IEPSAcumulableCobrado.Account, SubAccount: LedgerAccounts.IEPSAcumulableCobrado.SubAccount, Side: Credit, Credit: ieps, Note: note},
			LedgerLine{Account: LedgerAccounts.IEPSAcumulablePteCobro.Account, SubAccount: LedgerAccounts.IEPSAcumulablePteCobro.SubAccount, Side: Debit, Debit: ieps, Note: note},
		)
	}
	return lines
}
