package reconbank

// Append-only audit trail of dispatch runs: one JobRun per Engine.RunDay
// call, whose PlanOutcome covers the whole day (every folio the day's
// lines touched, and the dispatch error if any).
// Nothing in the engine reads it back; it is purely an audit log a
// caller can inspect after the fact.

import (
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// PlanOutcome is the audit record of one day's dispatch (or its failure).
type PlanOutcome struct {
	ProcessKind string
	Date        time.Time
	Folios      []int64
	Inserted    int
	Updated     int
	Error       string // empty on success
}

// JobRun is one dispatch invocation's audit trail.
type JobRun struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Outcomes  []PlanOutcome
}

// JobsLog records JobRuns to the jobs_log bucket, keyed by run ID.
type JobsLog struct {
	storage *Storage
}

func NewJobsLog(storage *Storage) *JobsLog {
	return &JobsLog{storage: storage}
}

// NewRun begins a new audit record with a fresh UUID.
func (j *JobsLog) NewRun() *JobRun {
	return &JobRun{ID: uuid.New().String(), StartedAt: time.Now()}
}

// RecordOutcome appends one plan's outcome to run in memory; call Save
// once the run is complete to persist it.
func (run *JobRun) RecordOutcome(o PlanOutcome) {
	run.Outcomes = append(run.Outcomes, o)
}

// Save persists the run to the jobs_log bucket inside its own transaction.
func (j *JobsLog) Save(run *JobRun) error {
	run.EndedAt = time.Now()
	return j.storage.db.Update(func(tx *bbolt.Tx) error {
		data, err := gobEncode(*run)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketJobsLog).Put([]byte(run.ID), data)
	})
}

// Get retrieves a previously saved run by ID.
func (j *JobsLog) Get(id string) (JobRun, bool, error) {
	var run JobRun
	found := false
	err := j.storage.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketJobsLog).Get([]byte(id))
		if raw == nil {
			return nil
		}
		found = true
		return gobDecode(raw, &run)
	})
	return run, found, err
}
