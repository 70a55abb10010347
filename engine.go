package reconbank

// Engine is the top-level entry point wiring storage, the classifier, the
// day dispatcher, the plan executor, and the audit log together, built
// from a Config.

import (
	"fmt"
	"time"
)

// Engine runs the reconciliation process for one job (one statement
// month) against a single bbolt database.
type Engine struct {
	Config   Config
	Storage  *Storage
	Executor *Executor
	JobsLog  *JobsLog
}

// NewEngine opens storage at cfg.DBPath and wires the executor/audit log
// on top of it.
func NewEngine(cfg Config) (*Engine, error) {
	storage, err := OpenStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("reconbank: new engine: %w", err)
	}
	return &Engine{
		Config:   cfg,
		Storage:  storage,
		Executor: NewExecutor(storage),
		JobsLog:  NewJobsLog(storage),
	}, nil
}

// Close releases the underlying storage handle.
func (e *Engine) Close() error {
	return e.Storage.Close()
}

// maxPeriodDays caps the [from, to] period selector window.
const maxPeriodDays = 7

// RunPeriod dispatches each date in [from, to] in ascending order,
// threading each day's held supplier/expense movements into the next
// day's dispatch. The window is capped at maxPeriodDays. movementsByDate
// and sideByDate supply each date's statement lines and side-channel
// data; either may be nil.
func (e *Engine) RunPeriod(from, to time.Time, movementsByDate func(time.Time) []BankMovement, sideByDate func(time.Time) DaySideChannel) ([]DispatchResult, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("reconbank: period end %s precedes start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > maxPeriodDays {
		return nil, fmt.Errorf("reconbank: period of %d days exceeds the %d-day window", days, maxPeriodDays)
	}

	var out []DispatchResult
	var held []BankMovement
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		var movements []BankMovement
		if movementsByDate != nil {
			movements = movementsByDate(d)
		}
		var side DaySideChannel
		if sideByDate != nil {
			side = sideByDate(d)
		}
		result, err := e.RunDay(d, movements, side, held)
		out = append(out, result)
		if err != nil {
			return out, err
		}
		held = result.HeldForNextDay
	}
	return out, nil
}

// RunDay dispatches one day's movements and side-channel data, recording
// the outcome to the audit log. heldFromPriorDay carries forward
// yesterday's delayed-effect movements; the caller must thread
// DispatchResult.HeldForNextDay into the next call.
func (e *Engine) RunDay(date time.Time, movements []BankMovement, side DaySideChannel, heldFromPriorDay []BankMovement) (DispatchResult, error) {
	run := e.JobsLog.NewRun()
	logEngine.WithField("date", date.Format("2006-01-02")).Info("running day")

	result, err := DispatchDay(e.Storage, e.Executor, e.Config, date, movements, side, heldFromPriorDay)

	outcome := PlanOutcome{Date: date}
	for _, r := range result.Results {
		outcome.Folios = append(outcome.Folios, r.Folios...)
	}
	if err != nil {
		outcome.Error = err.Error()
	}
	run.RecordOutcome(outcome)
	if saveErr := e.JobsLog.Save(run); saveErr != nil {
		logEngine.WithError(saveErr).Warn("failed to persist job run audit record")
	}

	return result, err
}
