package engine

import (
	"github.com/haven-chat/warden/automod/event"
)

var (
	// max in-channel nudges one user can receive per community per day;
	// beyond this, notice-tier findings accrue weight silently
	QuotaNoticeUserDay = 5
)

type CounterRef struct {
	Name   string
	Val    string
	Period *string
}

type CounterDistinctRef struct {
	Name   string
	Bucket string
	Val    string
}

// Mutable container for all the possible side-effects from rule execution.
// Rules only accumulate here; nothing is persisted or enforced until all
// rules have run.
type Effects struct {
	// Counters to increment as part of processing this event. Collected
	// during rule execution and persisted in bulk at the end.
	CounterIncrements []CounterRef
	// Similar to CounterIncrements, but for "distinct" style counters.
	CounterDistinctIncrements []CounterDistinctRef
	// Findings raised by detectors against this event.
	Findings []event.Finding
}

// Enqueues the named counter to be incremented at the end of all rule processing. Will automatically increment for all time periods.
func (e *Effects) Increment(name, val string) {
	e.CounterIncrements = append(e.CounterIncrements, CounterRef{Name: name, Val: val})
}

// Enqueues the named counter to be incremented at the end of all rule processing. Will only increment the indicated time period bucket.
func (e *Effects) IncrementPeriod(name, val string, period string) {
	e.CounterIncrements = append(e.CounterIncrements, CounterRef{Name: name, Val: val, Period: &period})
}

// Enqueues the named "distinct value" counter to be incremented at the end of all rule processing.
func (e *Effects) IncrementDistinct(name, bucket, val string) {
	e.CounterDistinctIncrements = append(e.CounterDistinctIncrements, CounterDistinctRef{Name: name, Bucket: bucket, Val: val})
}

// Enqueues a finding against the event being processed.
func (e *Effects) AddFinding(f event.Finding) {
	e.Findings = append(e.Findings, f)
}
