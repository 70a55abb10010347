package reconbank

// Card-sale processor: CARD_CREDIT_SALE / CARD_DEBIT_SALE. Each deposit
// settles the prior sales day's card total and links only the close's
// global invoice; card sales never link individual invoices.

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BuildCardSalePlan builds the plan for one day's card deposits against the
// treasury close that funded them. Read-only: looks up the global
// invoice's VAT/excise breakdown via storage, never writes.
func BuildCardSalePlan(storage *Storage, movements []BankMovement, date time.Time, close DailyClose) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "CARD_SALE", Description: fmt.Sprintf("Card sales %s", date.Format("2006-01-02")), Date: date}

	if len(movements) == 0 {
		plan.Warnings = append(plan.Warnings, "no card deposits for this day")
		return plan, nil
	}

	if close.GlobalNumber == "" {
		for range movements {
			plan.Warnings = append(plan.Warnings, "NOT_PROCESSED: no close for date")
		}
		return plan, nil
	}

	vat, ieps, _, err := storage.ViewInvoiceVATAndExcise("FD", close.GlobalNumber)
	if err != nil {
		return plan, fmt.Errorf("invoice tax lookup: %w", err)
	}

	bank := BankAccounts["tarjeta"]

	for _, m := range movements {
		amount := m.Amount()
		paymentMethod := "CreditCard"
		if m.Kind == CardDebitSale {
			paymentMethod = "DebitCard"
		}

		description := fmt.Sprintf("VENTA TDC/TDD CORTE %s", close.CloseDate.Format("02/01/2006"))

		mv := MovementRow{
			Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date,
			Kind: 4, Income: amount, Description: description,
			Class: "DAILY_SALE", PaymentMethod: paymentMethod,
			LedgerKind: "INCOME",
		}
		plan.Movements = append(plan.Movements, mv)

		plan.InvoiceLinks = append(plan.InvoiceLinks, InvoiceLinkRow{
			Series: "FD", Number: close.GlobalNumber, Applied: amount,
			Date: close.CloseDate, Kind: LinkGlobal,
		})
		plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 1)

		lines := cardSaleLedgerLines(amount, vat, ieps, bank.LedgerAccount, bank.LedgerSubAccount, description)
		plan.Lines = append(plan.Lines, lines...)
		plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
	}

	plan.Validations = append(plan.Validations, fmt.Sprintf("card sales: %d movements", len(movements)))
	return plan, nil
}

// cardSaleLedgerLines builds the fixed 6-line card-sale template.
func cardSaleLedgerLines(amount, vat, ieps decimal.Decimal, account, subaccount, note string) []LedgerLine {
	return []LedgerLine{
		{Account: account, SubAccount: subaccount, Side: Debit, Debit: amount, Note: note},
		{Account: LedgerAccounts.ClientesGlobal.Account, SubAccount: LedgerAccounts.ClientesGlobal.SubAccount, Side: Credit, Credit: amount, Note: note},
		{Account: LedgerAccounts.IVAAcumulableCobrado.Account, SubAccount: LedgerAccounts.IVAAcumulableCobrado.SubAccount, Side: Credit, Credit: vat, Note: note},
		{Account: LedgerAccounts.IVAAcumulablePteCobro.Account, SubAccount: LedgerAccounts.IVAAcumulablePteCobro.SubAccount, Side: Debit, Debit: vat, Note: note},
		{Account: LedgerAccounts.IEPSAcumulableCobrado.Account, SubAccount: LedgerAccounts.IEPSAcumulableCobrado.SubAccount, Side: Credit, Credit: ieps, Note: note},
		{Account: LedgerAccounts.IEPSAcumulablePteCobro.Account, SubAccount: LedgerAccounts.IEPSAcumulablePteCobro.SubAccount, Side: Debit, Debit: ieps, Note: note},
	}
}
