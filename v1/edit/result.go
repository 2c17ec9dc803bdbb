package edit

import (
	"errors"
	"fmt"

	"github.com/mirkobrombin/go-fedit/v1/model"
)

// Outcome is the terminal state of an Apply call.
type Outcome int

const (
	// OutcomeSkipped means the document was not applicable; nothing changed.
	OutcomeSkipped Outcome = iota
	// OutcomeCommitted means the edit was written.
	OutcomeCommitted
	// OutcomeRaceCondition means another worker held the lease; nothing changed.
	OutcomeRaceCondition
	// OutcomePersistenceFault means the transaction failed and was rolled back.
	OutcomePersistenceFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeCommitted:
		return "committed"
	case OutcomeRaceCondition:
		return "race_condition"
	case OutcomePersistenceFault:
		return "persistence_fault"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ErrRaceCondition reports that a concurrent edit of the same status was in
// flight. The edit was not applied and must be redelivered.
var ErrRaceCondition = errors.New("fedit: concurrent edit in progress")

// PersistenceError wraps a failure of the edit transaction.
type PersistenceError struct {
	URI string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("fedit: persist edit of %s: %v", e.URI, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Result describes what Apply did. Err is set for OutcomeRaceCondition and
// OutcomePersistenceFault, and for OutcomeSkipped when the document could not
// be parsed.
type Result struct {
	Outcome Outcome
	// Status holds the committed state for OutcomeCommitted.
	Status *model.Status
	Err    error
}

// Applied reports whether the edit was committed.
func (r Result) Applied() bool {
	return r.Outcome == OutcomeCommitted
}

// Fault returns the error carried by a race condition or persistence fault,
// and nil for committed or skipped results.
func (r Result) Fault() error {
	switch r.Outcome {
	case OutcomeRaceCondition, OutcomePersistenceFault:
		return r.Err
	}
	return nil
}
