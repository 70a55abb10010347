package reconbank

// Internal-transfer processor: INTERNAL_TRANSFER_OUT. Builds both legs
// of the transfer; the matching INTERNAL_TRANSFER_IN statement line is
// skipped by the dispatcher since the in-leg is generated here.

import (
	"fmt"
	"time"
)

// BuildTransferPlan builds a two-leg transfer plan from the source account
// (the movement's own account) to the destination extracted from its
// description. linesPerMovement = [2, 0]: the out-leg carries the two
// ledger lines, the in-leg carries none (explicit shape the executor
// depends on to avoid double-booking).
func BuildTransferPlan(movements []BankMovement, date time.Time) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "TRANSFER", Description: fmt.Sprintf("Transfers %s", date.Format("2006-01-02")), Date: date}

	if len(movements) == 0 {
		plan.Warnings = append(plan.Warnings, "no transfers for this day")
		return plan, nil
	}

	for _, m := range movements {
		destKey, ok := ExtractTransferDestination(m.Description)
		if !ok {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("cannot extract destination account from %q", m.Description))
			continue
		}
		destAccountKey, ok := AccountKeyByNumber(destKey)
		if !ok {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("unrecognized destination account %s", destKey))
			continue
		}
		srcAccountKey, ok := AccountKeyByNumber(m.Account)
		if !ok {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("unrecognized source account %s", m.Account))
			continue
		}

		src := BankAccounts[srcAccountKey]
		dest := BankAccounts[destAccountKey]
		amount := m.Amount()

		outLeg := MovementRow{
			Bank: src.Bank, Account: src.AccountNumber, Date: m.Date,
			Kind: 2, Expense: amount, Description: m.Description,
			Class: "TRASPASOS", ExpenseKind: "TRANSFERENCIA", LedgerKind: "JOURNAL",
		}
		inLeg := MovementRow{
			Bank: dest.Bank, Account: dest.AccountNumber, Date: m.Date,
			Kind: 1, Income: amount, Description: m.Description,
			Class: "TRASPASOS", LedgerKind: "JOURNAL",
		}

		plan.Movements = append(plan.Movements, outLeg, inLeg)
		plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0, 0)

		lines := []LedgerLine{
			{Account: dest.LedgerAccount, SubAccount: dest.LedgerSubAccount, Side: Debit, Debit: amount, Note: m.Description, DocType: "TRANSFER"},
			{Account: src.LedgerAccount, SubAccount: src.LedgerSubAccount, Side: Credit, Credit: amount, Note: m.Description, DocType: "TRANSFER"},
		}
		plan.Lines = append(plan.Lines, lines...)
		plan.LinesPerMovement = append(plan.LinesPerMovement, 2, 0)
	}

	plan.Validations = append(plan.Validations, fmt.Sprintf("transfers: %d movements", len(movements)))
	return plan, nil
}

// BuildPettyCashTransferPlan builds a transfer between a regular bank
// account and the petty-cash pseudo-account. fromPettyCash selects which
// side is the source.
func BuildPettyCashTransferPlan(m BankMovement, bankAccountKey string, fromPettyCash bool) (ExecutionPlan, error) {
	bank := BankAccounts[bankAccountKey]
	amount := m.Amount()

	pettyCashLedger := LedgerAccountPair{Account: "1110", SubAccount: "010000"} // petty-cash pseudo-account

	src, dest := bank.LedgerAccount, pettyCashLedger.Account
	srcSub, destSub := bank.LedgerSubAccount, pettyCashLedger.SubAccount
	if fromPettyCash {
		src, dest = pettyCashLedger.Account, bank.LedgerAccount
		srcSub, destSub = pettyCashLedger.SubAccount, bank.LedgerSubAccount
	}

	plan := ExecutionPlan{ProcessKind: "TRANSFER", Description: "Petty cash transfer", Date: m.Date}
	outLeg := MovementRow{Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date, Kind: 2, Expense: amount, Description: m.Description, Class: "TRASPASOS", ExpenseKind: "TRANSFERENCIA", LedgerKind: "JOURNAL"}
	inLeg := MovementRow{Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date, Kind: 1, Income: amount, Description: m.Description, Class: "TRASPASOS", LedgerKind: "JOURNAL"}
	plan.Movements = append(plan.Movements, outLeg, inLeg)
	plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0, 0)
	plan.Lines = []LedgerLine{
		{Account: dest, SubAccount: destSub, Side: Debit, Debit: amount, Note: m.Description, DocType: "TRANSFER"},
		{Account: src, SubAccount: srcSub, Side: Credit, Credit: amount, Note: m.Description, DocType: "TRANSFER"},
	}
	plan.LinesPerMovement = append(plan.LinesPerMovement, 2, 0)
	return plan, nil
}
