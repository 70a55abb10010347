package reconbank

// TDC multi-day deposit assigner. Card deposits settle
// next-business-day, so a single deposit date can be funded by more than
// one treasury close (Friday/Saturday/Sunday sales all land in Monday's
// statement). This assigner is invoked only when multiple closes
// plausibly feed one deposit day; the ordinary 1:1 case stays in
// processor_cardsale.go.

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const maxCombinationsPerSize = 10000

// TDCClose is one treasury close competing for a share of the day's card
// deposits.
type TDCClose struct {
	CloseDate           time.Time
	CardTotal           decimal.Decimal
	GlobalInvoiceNumber string
}

// tdcDeposit is one deposit under assignment. sourceIndex always points
// back to the original statement line, even after a split produces a
// virtual child, so all effects attribute to that one line.
type tdcDeposit struct {
	movement    BankMovement
	sourceIndex int
	amount      decimal.Decimal
}

// tdcAssignment is one (close, amount) pairing produced by either phase.
type tdcAssignment struct {
	closeIndex  int
	sourceIndex int
	movement    BankMovement
	amount      decimal.Decimal
}

// TDCLookBackDays computes the dynamic look-back window for deposit date
// d: the gap to the previous deposit date in the statement minus 1, or 7
// days if d is the first deposit date of the run.
func TDCLookBackDays(d time.Time, priorDepositDates []time.Time) int {
	var best time.Time
	found := false
	for _, p := range priorDepositDates {
		if p.Before(d) && (!found || p.After(best)) {
			best = p
			found = true
		}
	}
	if !found {
		return 7
	}
	gapDays := int(d.Sub(best).Hours() / 24)
	if gapDays < 1 {
		return 0
	}
	return gapDays - 1
}

// AssignTDCDeposits partitions one day's card deposits across the
// candidate treasury closes using Phase 1 (exact subset-sum) with a
// Phase 2 (sequential-with-split) fallback, and turns the result into an
// ExecutionPlan: one card-sale-shaped movement+ledger block per close
// that received a share, plus a bank-adjustment block for any leftover.
func AssignTDCDeposits(storage *Storage, deposits []BankMovement, closes []TDCClose, date time.Time, tol decimal.Decimal) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "TDC_MULTIDIA", Description: fmt.Sprintf("TDC multi-day assignment %s", date.Format("2006-01-02")), Date: date}

	if len(deposits) == 0 || len(closes) == 0 {
		return plan, nil
	}

	pool := make([]tdcDeposit, len(deposits))
	for i, m := range deposits {
		pool[i] = tdcDeposit{movement: m, sourceIndex: i, amount: m.Amount()}
	}

	assignments, leftovers, phase1OK := assignExactSubsetSum(pool, closes, tol)
	if !phase1OK {
		logTDC.WithField("date", date.Format("2006-01-02")).Debug("phase 1 exact subset-sum failed, falling back to sequential split")
		assignments, leftovers = assignSequentialWithSplit(pool, closes, tol)
	}

	bank := BankAccounts["tarjeta"]

	byClose := map[int][]tdcAssignment{}
	for _, a := range assignments {
		byClose[a.closeIndex] = append(byClose[a.closeIndex], a)
	}

	for ci, close := range closes {
		group := byClose[ci]
		if len(group) == 0 {
			continue
		}
		total := decimal.Zero
		seen := map[int]bool{}
		var sources []int
		for _, a := range group {
			total = total.Add(a.amount)
			if !seen[a.sourceIndex] {
				seen[a.sourceIndex] = true
				sources = append(sources, a.sourceIndex)
			}
		}
		if !total.IsPositive() {
			continue
		}

		vat, ieps, _, err := storage.ViewInvoiceVATAndExcise("FD", close.GlobalInvoiceNumber)
		if err != nil {
			return plan, fmt.Errorf("invoice tax lookup for close %s: %w", close.CloseDate.Format("2006-01-02"), err)
		}

		description := fmt.Sprintf("VENTA TDC/TDD CORTE %s (multi-dia)", close.CloseDate.Format("02/01/2006"))
		mv := MovementRow{
			Bank: bank.Bank, Account: bank.AccountNumber, Date: date,
			Kind: 4, Income: total, Description: description,
			Class: "DAILY_SALE", LedgerKind: "INCOME",
		}
		plan.Movements = append(plan.Movements, mv)
		plan.InvoiceLinks = append(plan.InvoiceLinks, InvoiceLinkRow{
			Series: "FD", Number: close.GlobalInvoiceNumber, Applied: total,
			Date: close.CloseDate, Kind: LinkGlobal,
		})
		plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 1)
		plan.SourceLines = append(plan.SourceLines, sources)

		lines := cardSaleLedgerLines(total, vat, ieps, bank.LedgerAccount, bank.LedgerSubAccount, description)
		plan.Lines = append(plan.Lines, lines...)
		plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
	}

	for _, l := range leftovers {
		if !l.amount.IsPositive() {
			continue
		}
		description := fmt.Sprintf("AJUSTE BANCARIO TDC %s", date.Format("02/01/2006"))
		mv := MovementRow{
			Bank: bank.Bank, Account: bank.AccountNumber, Date: date,
			Kind: 1, Income: l.amount, Description: description,
			Class: "BANK_ADJUSTMENT", LedgerKind: "INCOME",
		}
		plan.Movements = append(plan.Movements, mv)
		plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0)
		plan.SourceLines = append(plan.SourceLines, []int{l.sourceIndex})

		lines := []LedgerLine{
			{Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Debit, Debit: l.amount, Note: description},
			{Account: LedgerAccounts.AcreedoresBanregio.Account, SubAccount: LedgerAccounts.AcreedoresBanregio.SubAccount, Side: Credit, Credit: l.amount, Note: description},
		}
		plan.Lines = append(plan.Lines, lines...)
		plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("deposit %s left unassigned, converted to bank adjustment", l.amount))
	}

	plan.Validations = append(plan.Validations, fmt.Sprintf("TDC multi-day: %d deposits across %d closes, %d leftover", len(deposits), len(closes), len(leftovers)))
	return plan, nil
}

// assignExactSubsetSum implements Phase 1: for each close-target in
// close-date order, enumerate subsets of the not-yet-assigned deposits
// (whole set first, then size n-1 down to 1, capped at
// maxCombinationsPerSize combinations per size) looking for a sum within
// tolerance. Commits only if every target is matched.
func assignExactSubsetSum(pool []tdcDeposit, closes []TDCClose, tol decimal.Decimal) ([]tdcAssignment, []tdcDeposit, bool) {
	remaining := append([]tdcDeposit(nil), pool...)
	var assignments []tdcAssignment

	for ci, close := range closes {
		idx, ok := findSubsetMatching(remaining, close.CardTotal, tol)
		if !ok {
			return nil, nil, false
		}
		chosen := make(map[int]bool, len(idx))
		for _, i := range idx {
			chosen[i] = true
			assignments = append(assignments, tdcAssignment{
				closeIndex:  ci,
				sourceIndex: remaining[i].sourceIndex,
				movement:    remaining[i].movement,
				amount:      remaining[i].amount,
			})
		}
		var next []tdcDeposit
		for i, d := range remaining {
			if !chosen[i] {
				next = append(next, d)
			}
		}
		remaining = next
	}

	return assignments, remaining, true
}

// findSubsetMatching enumerates subsets of deposits by decreasing size,
// returning the first whose sum is within tol of target.
func findSubsetMatching(deposits []tdcDeposit, target, tol decimal.Decimal) ([]int, bool) {
	n := len(deposits)
	if n == 0 {
		return nil, false
	}
	for size := n; size >= 1; size-- {
		combos := combinations(n, size, maxCombinationsPerSize)
		for _, combo := range combos {
			sum := decimal.Zero
			for _, i := range combo {
				sum = sum.Add(deposits[i].amount)
			}
			if WithinTolerance(sum, target, tol) {
				return combo, true
			}
		}
	}
	return nil, false
}

// combinations returns up to limit index-combinations of size `size` out
// of n items, in lexicographic order.
func combinations(n, size, limit int) [][]int {
	if size > n || size <= 0 {
		return nil
	}
	var out [][]int
	idx := make([]int, size)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := append([]int(nil), idx...)
		out = append(out, combo)
		if len(out) >= limit {
			return out
		}

		i := size - 1
		for i >= 0 && idx[i] == n-size+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < size; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// assignSequentialWithSplit implements Phase 2: consume deposits in
// statement input order, never re-sorted, accumulating into the current
// close-target; a deposit that
// would overshoot is split into the portion that fits plus a virtual
// remainder carried over to the next target. Remaining deposits after all
// targets are satisfied become leftovers.
func assignSequentialWithSplit(pool []tdcDeposit, closes []TDCClose, tol decimal.Decimal) ([]tdcAssignment, []tdcDeposit) {
	queue := append([]tdcDeposit(nil), pool...)
	var assignments []tdcAssignment

	for ci, close := range closes {
		target := close.CardTotal
		running := decimal.Zero

		for len(queue) > 0 && running.LessThan(target) && !WithinTolerance(running, target, tol) {
			d := queue[0]
			queue = queue[1:]

			remainingNeeded := target.Sub(running)
			if d.amount.GreaterThan(remainingNeeded) && !WithinTolerance(d.amount, remainingNeeded, tol) {
				fit := remainingNeeded
				remainder := d.amount.Sub(fit)
				assignments = append(assignments, tdcAssignment{
					closeIndex: ci, sourceIndex: d.sourceIndex, movement: d.movement, amount: fit,
				})
				running = running.Add(fit)
				queue = append([]tdcDeposit{{movement: d.movement, sourceIndex: d.sourceIndex, amount: remainder}}, queue...)
				continue
			}

			assignments = append(assignments, tdcAssignment{
				closeIndex: ci, sourceIndex: d.sourceIndex, movement: d.movement, amount: d.amount,
			})
			running = running.Add(d.amount)
		}
	}

	return assignments, queue
}
