package reconbank

import "errors"

// Classification-unknown is not a failure (it is a value, the Unknown
// ProcessKind) so it has no sentinel here. The kinds that represent
// genuine, distinguishable failure modes do.
var (
	// ErrMissingSideChannelData means a processor needed treasury/payroll/
	// tax data that was not supplied for the date in question.
	ErrMissingSideChannelData = errors.New("reconbank: missing side-channel data")

	// ErrDBTransient wraps a failed DB transaction; the caller should mark
	// the plan ERROR and continue with the next one, not abort the job.
	ErrDBTransient = errors.New("reconbank: transient storage failure")

	// ErrParseCorruption means an upstream side-channel loader returned a
	// null parse; the processor that depends on it short-circuits.
	ErrParseCorruption = errors.New("reconbank: side-channel parse corruption")

	// ErrNoCloseForDate means a deposit has no matching treasury close and
	// no TDC assignment could be made either.
	ErrNoCloseForDate = errors.New("reconbank: no treasury close for date")

	// ErrPlanUnbalanced means a processor produced ledger lines whose
	// debits and credits do not sum to the same total; this indicates a
	// programming defect, not a recoverable runtime condition.
	ErrPlanUnbalanced = errors.New("reconbank: ledger lines do not balance")
)
