package reconbank

// Day dispatcher: classifies one day's statement lines, groups them by
// process kind, and walks the fixed processor order: transfers, fees,
// card sales, cash sales, payroll, checks cashed, expense payments,
// supplier/customer reconciliations, taxes. Payroll must precede
// check-cashed (checks consume the payroll's provisioned buckets); the
// rest of the order keeps bank-balance-affecting families ahead of the
// families that read those balances.

import (
	"fmt"
	"time"
)

// DaySideChannel bundles the parsed treasury/payroll/tax data a single
// day's dispatch may need. Nil fields mean "not supplied for this date".
type DaySideChannel struct {
	Close       DailyClose
	Payroll     *Payroll
	FederalTax  *FederalTax
	StateTax    *StateTax
	SSTax       *SSTax
	TDCCloses   []TDCClose // populated only when multiple closes plausibly fund this deposit date
}

// DispatchResult is everything one day's dispatch produced.
type DispatchResult struct {
	Results []LineResult
	// HeldForNextDay carries today's SUPPLIER_PAYMENT/EXPENSE_ACCOUNT_PAYMENT
	// movements forward; the caller must pass these back in as
	// heldFromPriorDay on the following date's dispatch.
	HeldForNextDay []BankMovement
}

// DispatchDay classifies and groups one day's movements, invokes the
// fixed processor order, executes each resulting plan, and returns one
// LineResult per original statement line. heldFromPriorDay is the
// previous day's SUPPLIER_PAYMENT/EXPENSE_ACCOUNT_PAYMENT movements,
// reconciled/settled now: users wait one day before committing those
// to guard against reversals.
func DispatchDay(storage *Storage, executor *Executor, cfg Config, date time.Time, movements []BankMovement, side DaySideChannel, heldFromPriorDay []BankMovement) (DispatchResult, error) {
	var out DispatchResult
	logDispatcher.WithField("date", date.Format("2006-01-02")).WithField("movements", len(movements)).Debug("dispatching day")

	results := make(map[int]*LineResult, len(movements))
	for i, m := range movements {
		m.Kind = Classify(m)
		movements[i] = m
		results[i] = &LineResult{Movement: m, Kind: m.Kind, Action: ActionUnknown}
	}

	groups := map[ProcessKind][]int{}
	for i, m := range movements {
		groups[m.Kind] = append(groups[m.Kind], i)
	}

	runPlan := func(kind string, plan ExecutionPlan, indices []int, err error, note string) error {
		if err != nil {
			for _, i := range indices {
				results[i].Action = ActionError
				results[i].Note = err.Error()
			}
			return fmt.Errorf("%s: %w", kind, err)
		}
		// Lines the processor explicitly dropped (no bucket, filing line,
		// or open invoice matched) keep their own action and note no
		// matter how the rest of the group resolves.
		applyUnmatched := func() {
			for _, u := range plan.Unmatched {
				if u.Line >= 0 && u.Line < len(indices) {
					results[indices[u.Line]].Action = u.Action
					results[indices[u.Line]].Note = u.Note
				}
			}
		}
		if plan.TotalInserts() == 0 && plan.TotalUpdates() == 0 {
			for _, i := range indices {
				results[i].Action = ActionNotProcessed
				if len(plan.Warnings) > 0 {
					results[i].Note = plan.Warnings[0]
				} else {
					results[i].Note = note
				}
			}
			applyUnmatched()
			return nil
		}
		if cfg.DryRun {
			for _, i := range indices {
				results[i].Action = ActionNotProcessed
				results[i].Note = fmt.Sprintf("dry run: %d inserts, %d updates planned", plan.TotalInserts(), plan.TotalUpdates())
			}
			applyUnmatched()
			return nil
		}
		res, err := executor.Execute(plan)
		if err != nil {
			for _, i := range indices {
				results[i].Action = ActionError
				results[i].Note = err.Error()
			}
			logDispatcher.WithError(err).WithField("process_kind", kind).Warn("plan execution failed, lines marked ERROR")
			return nil
		}
		if plan.PerLine() {
			// The processor told us which statement lines fed each
			// movement (a split TDC deposit feeds two) and which lines it
			// dropped; give every line only its own outcome and folios.
			for k, act := range res.ActionByMovement {
				mnote := note
				switch act {
				case ActionReconcile:
					mnote = "reconciled now"
				case ActionSkip:
					mnote = "already registered and reconciled"
				}
				folio := res.FolioByMovement[k]
				for _, s := range plan.SourceLines[k] {
					if s < 0 || s >= len(indices) {
						continue
					}
					r := results[indices[s]]
					r.Action = act
					r.Note = mnote
					if folio != 0 {
						r.Folios = append(r.Folios, folio)
					}
				}
			}
			for _, rec := range plan.Reconciliations {
				if rec.SourceLine < 0 || rec.SourceLine >= len(indices) {
					continue
				}
				r := results[indices[rec.SourceLine]]
				r.Action = ActionReconcile
				r.Note = "reconciled now"
				r.Folios = append(r.Folios, rec.Folio)
			}
			applyUnmatched()
			return nil
		}
		// A first run mints new folios. A re-run against a day settled but
		// not yet reconciled resolves every movement via Executor.Reconcile;
		// a re-run against a fully reconciled day touches nothing at all.
		// Label the group by which case actually happened so a caller can
		// tell an idempotent re-run from a genuine insert.
		action := ActionInsert
		switch {
		case res.Inserted == 0 && res.Updated > 0:
			action = ActionReconcile
			note = "reconciled now"
		case res.Inserted == 0 && res.Updated == 0:
			action = ActionSkip
			note = "already registered and reconciled"
		}
		for _, i := range indices {
			results[i].Action = action
			results[i].Folios = res.Folios
			results[i].Note = note
		}
		return nil
	}

	// 1. INTERNAL_TRANSFER_IN is never dispatched; auto-skip.
	for _, i := range groups[InternalTransferIn] {
		results[i].Action = ActionSkip
		results[i].Note = "auto-generated by the out-leg"
	}

	// 1 continued. INTERNAL_TRANSFER_OUT.
	if idx := groups[InternalTransferOut]; len(idx) > 0 {
		group := pickMovements(movements, idx)
		plan, err := BuildTransferPlan(group, date)
		if err2 := runPlan("transfer", plan, idx, err, "transfer processed"); err2 != nil {
			return out, err2
		}
	}

	// 2. FEE_*.
	feeIdx := append(append(append(append([]int{},
		groups[FeeWire]...), groups[FeeWireVAT]...), groups[FeeCard]...), groups[FeeCardVAT]...)
	if len(feeIdx) > 0 {
		group := pickMovements(movements, feeIdx)
		plan, err := BuildFeesPlan(group, date)
		if err2 := runPlan("fees", plan, feeIdx, err, "bank fees processed"); err2 != nil {
			return out, err2
		}
	}

	// 3. CARD_*.
	cardIdx := append(append([]int{}, groups[CardCreditSale]...), groups[CardDebitSale]...)
	if len(cardIdx) > 0 {
		group := pickMovements(movements, cardIdx)
		var plan ExecutionPlan
		var err error
		if len(side.TDCCloses) > 1 {
			plan, err = AssignTDCDeposits(storage, group, side.TDCCloses, date, cfg.ToleranceCents)
		} else {
			plan, err = BuildCardSalePlan(storage, group, date, side.Close)
		}
		if err2 := runPlan("card sale", plan, cardIdx, err, "card sale processed"); err2 != nil {
			return out, err2
		}
	}

	// 4. CASH_SALE, subject to the month-edge force-skip.
	if idx := groups[CashSale]; len(idx) > 0 {
		if isMonthEdge(date, cfg.MonthEdgeDays) {
			for _, i := range idx {
				results[i].Action = ActionSkip
				results[i].Note = "month edge: manual process"
			}
		} else {
			group := pickMovements(movements, idx)
			plan, err := BuildCashSalePlan(storage, group, date, side.Close)
			if err2 := runPlan("cash sale", plan, idx, err, "cash sale processed"); err2 != nil {
				return out, err2
			}
		}
	}

	// 5. PAYROLL.
	if idx := groups[PayrollDispersion]; len(idx) > 0 {
		group := pickMovements(movements, idx)
		plan, err := BuildPayrollPlan(group, date, side.Payroll)
		if err2 := runPlan("payroll", plan, idx, err, "payroll dispersion processed"); err2 != nil {
			return out, err2
		}
	}

	// 6. CHECK_CASHED.
	if idx := groups[CheckCashed]; len(idx) > 0 {
		group := pickMovements(movements, idx)
		plan, err := BuildCheckCashedPlan(cfg, group, date, side.Payroll)
		if err2 := runPlan("check cashed", plan, idx, err, "check cashed processed"); err2 != nil {
			return out, err2
		}
	}

	// 7. EXPENSE_ACCOUNT_PAYMENT: today's are held for D+1, not processed now.
	for _, i := range groups[ExpenseAccountPayment] {
		results[i].Action = ActionNotProcessed
		results[i].Note = "pending: settled on next day's dispatch"
		out.HeldForNextDay = append(out.HeldForNextDay, movements[i])
	}
	if len(heldFromPriorDay) > 0 {
		var heldExpense []BankMovement
		for _, m := range heldFromPriorDay {
			if m.Kind == ExpenseAccountPayment {
				heldExpense = append(heldExpense, m)
			}
		}
		if len(heldExpense) > 0 {
			plan, err := BuildExpenseAccountPaymentPlan(storage, cfg, heldExpense, date)
			if err != nil {
				return out, fmt.Errorf("expense account payment (held): %w", err)
			}
			if !cfg.DryRun {
				if _, err := executor.Execute(plan); err != nil {
					return out, fmt.Errorf("expense account payment (held): execute: %w", err)
				}
			}
		}
	}

	// 8. SUPPLIER_PAYMENT (held for D+1) + CUSTOMER_COLLECTION (same day).
	for _, i := range groups[SupplierPayment] {
		results[i].Action = ActionNotProcessed
		results[i].Note = "pending: settled on next day's dispatch"
		out.HeldForNextDay = append(out.HeldForNextDay, movements[i])
	}
	if len(heldFromPriorDay) > 0 {
		var heldSupplier []BankMovement
		for _, m := range heldFromPriorDay {
			if m.Kind == SupplierPayment {
				heldSupplier = append(heldSupplier, m)
			}
		}
		if len(heldSupplier) > 0 {
			plan, err := BuildSupplierPaymentPlan(storage, cfg, heldSupplier, date)
			if err != nil {
				return out, fmt.Errorf("supplier payment (held): %w", err)
			}
			if !cfg.DryRun {
				if _, err := executor.Execute(plan); err != nil {
					return out, fmt.Errorf("supplier payment (held): execute: %w", err)
				}
			}
		}
	}
	if idx := groups[CustomerCollection]; len(idx) > 0 {
		group := pickMovements(movements, idx)
		plan, err := BuildCustomerCollectionPlan(storage, cfg, group, date)
		if err2 := runPlan("customer collection", plan, idx, err, "customer collection processed"); err2 != nil {
			return out, err2
		}
	}

	// 9. TAX_*.
	if idx := groups[TaxFederal]; len(idx) > 0 {
		group := pickMovements(movements, idx)
		plan, err := BuildFederalTaxPlan(group, date, side.FederalTax)
		if err2 := runPlan("federal tax", plan, idx, err, "federal tax processed"); err2 != nil {
			return out, err2
		}
	}
	if idx := groups[TaxState]; len(idx) > 0 {
		group := pickMovements(movements, idx)
		plan, err := BuildStateTaxPlan(group, date, side.StateTax)
		if err2 := runPlan("state tax", plan, idx, err, "state tax processed"); err2 != nil {
			return out, err2
		}
	}
	if idx := groups[TaxSocialSecurity]; len(idx) > 0 {
		group := pickMovements(movements, idx)
		plan, err := BuildSocialSecurityTaxPlan(storage, group, date, side.SSTax)
		if err2 := runPlan("social security tax", plan, idx, err, "social security tax processed"); err2 != nil {
			return out, err2
		}
	}

	out.Results = make([]LineResult, len(movements))
	for i := range movements {
		out.Results[i] = *results[i]
	}
	return out, nil
}

func pickMovements(all []BankMovement, idx []int) []BankMovement {
	group := make([]BankMovement, len(idx))
	for k, i := range idx {
		group[k] = all[i]
	}
	return group
}

// isMonthEdge reports whether date falls within the first or last
// MonthEdgeDays days of its calendar month.
func isMonthEdge(date time.Time, n int) bool {
	day := date.Day()
	lastDay := time.Date(date.Year(), date.Month()+1, 0, 0, 0, 0, 0, date.Location()).Day()
	return day <= n || day > lastDay-n
}
