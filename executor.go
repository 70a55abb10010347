package reconbank

// Executor runs one DB transaction per ExecutionPlan, minting folios
// and ledger numbers, writing rows in dependency order, and resolving
// idempotency against already-registered movements.

import (
	"fmt"

	"go.etcd.io/bbolt"
)

// Executor applies ExecutionPlans against a Storage.
type Executor struct {
	storage *Storage
}

func NewExecutor(storage *Storage) *Executor {
	return &Executor{storage: storage}
}

// PlanResult is the executor's outcome for one plan.
type PlanResult struct {
	Folios   []int64
	Inserted int
	Updated  int

	// FolioByMovement[i] is the folio movement i resolved to: freshly
	// minted on insert, the pre-existing folio on a reconcile, 0 when the
	// movement was skipped as already registered and reconciled. Parallel
	// to plan.Movements.
	FolioByMovement []int64

	// ActionByMovement[i] is how movement i resolved: ActionInsert,
	// ActionReconcile, or ActionSkip. Parallel to plan.Movements.
	ActionByMovement []Action
}

const defaultInvoicesPerMovement = 1
const defaultLinesPerMovement = 6

// Execute runs plan inside a single bbolt write transaction. Dependency
// order inside the transaction is strict: movement header -> invoice
// links -> AP invoice (fees) -> ledger lines -> movement's ledger pointer
// update -> AP/AR settlements -> standalone reconciliations. On any error
// the whole transaction rolls back and the plan fails as a unit.
func (e *Executor) Execute(plan ExecutionPlan) (PlanResult, error) {
	var result PlanResult

	err := e.storage.db.Update(func(tx *bbolt.Tx) error {
		invCursor, lineCursor, apCursor := 0, 0, 0

		for i, mvmt := range plan.Movements {
			nInvoices := defaultInvoicesPerMovement
			if len(plan.InvoicesPerMovement) > i {
				nInvoices = plan.InvoicesPerMovement[i]
			}
			nLines := defaultLinesPerMovement
			if len(plan.LinesPerMovement) > i {
				nLines = plan.LinesPerMovement[i]
			}

			existingFolio, reconciled, found, err := e.storage.LookupUnreconciled(tx, mvmt)
			if err != nil {
				return fmt.Errorf("lookup movement %d: %w", i, err)
			}
			if found && reconciled {
				result.FolioByMovement = append(result.FolioByMovement, 0)
				result.ActionByMovement = append(result.ActionByMovement, ActionSkip)
				invCursor += nInvoices
				lineCursor += nLines
				continue
			}
			if found && !reconciled {
				if err := e.storage.Reconcile(tx, existingFolio); err != nil {
					return fmt.Errorf("reconcile existing movement %d: %w", i, err)
				}
				result.Folios = append(result.Folios, existingFolio)
				result.FolioByMovement = append(result.FolioByMovement, existingFolio)
				result.ActionByMovement = append(result.ActionByMovement, ActionReconcile)
				result.Updated++
				invCursor += nInvoices
				lineCursor += nLines
				continue
			}

			folio, err := e.storage.NextFolio(tx)
			if err != nil {
				return fmt.Errorf("mint folio for movement %d: %w", i, err)
			}
			if err := e.storage.InsertMovement(tx, folio, mvmt); err != nil {
				return fmt.Errorf("insert movement %d: %w", i, err)
			}

			for j := 0; j < nInvoices && invCursor < len(plan.InvoiceLinks); j++ {
				if err := e.storage.InsertInvoiceLink(tx, folio, plan.InvoiceLinks[invCursor]); err != nil {
					return fmt.Errorf("insert invoice link for movement %d: %w", i, err)
				}
				invCursor++
			}

			if apCursor < len(plan.APInvoices) {
				if err := e.storage.InsertAPInvoice(tx, plan.APInvoices[apCursor]); err != nil {
					return fmt.Errorf("insert AP invoice for movement %d: %w", i, err)
				}
				apCursor++
			}

			if nLines > 0 {
				end := lineCursor + nLines
				if end > len(plan.Lines) {
					end = len(plan.Lines)
				}
				lines := plan.Lines[lineCursor:end]
				if !IsBalanced(lines) {
					return fmt.Errorf("%w: movement %d (debits=%s credits=%s)", ErrPlanUnbalanced, i, SumDebits(lines), SumCredits(lines))
				}
				ledgerNumber, err := e.storage.NextLedger(tx)
				if err != nil {
					return fmt.Errorf("mint ledger number for movement %d: %w", i, err)
				}
				if err := e.storage.InsertLedger(tx, ledgerNumber, folio, lines); err != nil {
					return fmt.Errorf("insert ledger lines for movement %d: %w", i, err)
				}
				if err := e.storage.UpdateMovementLedgerNumber(tx, folio, ledgerNumber); err != nil {
					return fmt.Errorf("update movement ledger pointer %d: %w", i, err)
				}
				lineCursor = end
			}

			result.Folios = append(result.Folios, folio)
			result.FolioByMovement = append(result.FolioByMovement, folio)
			result.ActionByMovement = append(result.ActionByMovement, ActionInsert)
			result.Inserted++
		}

		// Third executor variant: expense-account-payment AP settlement.
		for _, settlement := range plan.APPaymentSettlements {
			if settlement.MovementIndex >= len(result.FolioByMovement) || result.FolioByMovement[settlement.MovementIndex] == 0 {
				continue
			}
			folio := result.FolioByMovement[settlement.MovementIndex]
			if err := e.storage.InsertAPPaymentLink(tx, APPaymentLinkRecord{
				Supplier: settlement.Supplier,
				Invoice:  settlement.Invoice,
				Folio:    folio,
				Amount:   settlement.Amount.String(),
			}); err != nil {
				return fmt.Errorf("insert AP payment link: %w", err)
			}
			inv, found, err := e.storage.GetPendingAPInvoice(tx, settlement.Supplier, settlement.Invoice)
			if err == nil && found {
				inv.BalanceDec = settlement.NewBalance.String()
				inv.Status = settlement.NewStatus
				if err := e.storage.PutPendingAPInvoice(tx, inv); err != nil {
					return fmt.Errorf("update AP invoice balance: %w", err)
				}
			}
		}

		// Customer-collection Phase A: AR settlement.
		for _, settlement := range plan.ARCollectionSettlements {
			if settlement.MovementIndex >= len(result.FolioByMovement) || result.FolioByMovement[settlement.MovementIndex] == 0 {
				continue
			}
			folio := result.FolioByMovement[settlement.MovementIndex]
			if err := e.storage.InsertARCollection(tx, settlement.InvoiceNumber, folio, settlement.Amount); err != nil {
				return fmt.Errorf("insert AR collection: %w", err)
			}
			if err := e.storage.UpdateARInvoiceBalance(tx, settlement.InvoiceNumber, settlement.NewBalance); err != nil {
				return fmt.Errorf("update AR invoice balance: %w", err)
			}
		}

		// Second executor variant: pure-reconciliation plans (no inserts).
		for _, rec := range plan.Reconciliations {
			if err := e.storage.MarkPendingReconciliationReconciled(tx, rec.Folio); err != nil {
				return fmt.Errorf("mark reconciled folio %d: %w", rec.Folio, err)
			}
			result.Folios = append(result.Folios, rec.Folio)
			result.Updated++
		}

		return nil
	})

	if err != nil {
		return PlanResult{}, fmt.Errorf("%w: %w", ErrDBTransient, err)
	}
	return result, nil
}
