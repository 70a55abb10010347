package reconbank

// Supplier-payment processor: SUPPLIER_PAYMENT. Never inserts a movement
// row: it only matches a bank debit against a pending reconciliation row
// already entered by another ERP module and marks it reconciled. The
// dispatcher holds these lines for one day before calling this, to guard
// against reversals.

import (
	"fmt"
	"time"
)

// BuildSupplierPaymentPlan matches each movement against an open
// SUPPLIER-kind pending reconciliation within the configured day window
// and $0.01 tolerance. Unmatched movements are reported as warnings and
// as NEEDS_REVIEW entries in plan.Unmatched.
func BuildSupplierPaymentPlan(storage *Storage, cfg Config, movements []BankMovement, date time.Time) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "PAGO_PROVEEDOR", Description: fmt.Sprintf("Supplier payments %s", date.Format("2006-01-02")), Date: date}

	if len(movements) == 0 {
		return plan, nil
	}

	for i, m := range movements {
		row, found, err := storage.ViewFindPendingReconciliation(m.Account, "SUPPLIER", date, cfg.SupplierReconcileWindowDays, m.Amount(), cfg.ToleranceCents)
		if err != nil {
			return plan, fmt.Errorf("pending reconciliation lookup: %w", err)
		}
		if !found {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("no pending supplier reconciliation matches %s on %s", m.Amount(), m.Description))
			plan.Unmatched = append(plan.Unmatched, UnmatchedLine{
				Line: i, Action: ActionNeedsReview,
				Note: fmt.Sprintf("no pending supplier reconciliation matches %s", m.Amount()),
			})
			continue
		}
		plan.Reconciliations = append(plan.Reconciliations, ReconciliationUpdate{
			Folio:      row.Folio,
			Note:       fmt.Sprintf("supplier payment reconciled against statement line %q", m.Description),
			SourceLine: i,
		})
	}

	plan.Validations = append(plan.Validations, fmt.Sprintf("supplier payments matched: %d/%d", len(plan.Reconciliations), len(movements)))
	return plan, nil
}
